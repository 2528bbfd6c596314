package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/interfaces"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// Collection names
	runsCollection = "report_runs"

	// Field names
	fieldGeneratedAt = "generated_at"
)

// Firestore implements Archive interface with Firestore
type Firestore struct {
	client *firestore.Client
}

var _ interfaces.Archive = (*Firestore)(nil)

// NewFirestore creates a new Firestore archive
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	logger := ctxlog.From(ctx)

	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	// Fail fast on invalid project or missing permission. An empty collection is fine.
	_, err = client.Collection(runsCollection).Limit(1).Documents(ctx).Next()
	if err != nil && err != iterator.Done {
		if status.Code(err) == codes.PermissionDenied || status.Code(err) == codes.Unauthenticated {
			_ = client.Close()
			return nil, goerr.Wrap(err, "failed to connect to firestore project",
				goerr.V("firestore error code", status.Code(err).String()),
			)
		}
		logger.Debug("Firestore connection test returned error (may be empty collection)",
			"error", err,
			"errorCode", status.Code(err).String(),
		)
	}

	logger.Info("Firestore archive initialized successfully",
		"projectID", projectID,
		"databaseID", databaseID,
	)

	return &Firestore{
		client: client,
	}, nil
}

// PutRun saves a run record to Firestore
func (f *Firestore) PutRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateRun(run); err != nil {
		return err
	}

	_, err := f.client.Collection(runsCollection).Doc(run.ID.String()).Set(ctx, run)
	if err != nil {
		return goerr.Wrap(err, "failed to save run to firestore", goerr.V("id", run.ID))
	}

	return nil
}

// GetRun retrieves a run record by ID
func (f *Firestore) GetRun(ctx context.Context, id types.RunID) (*model.RunRecord, error) {
	if id == "" {
		return nil, goerr.New("run ID is empty")
	}

	doc, err := f.client.Collection(runsCollection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrRunNotFound, "run not found in firestore", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get run from firestore", goerr.V("id", id))
	}

	var run model.RunRecord
	if err := doc.DataTo(&run); err != nil {
		return nil, goerr.Wrap(err, "failed to decode run", goerr.V("id", id))
	}

	return &run, nil
}

// ListRuns returns up to limit runs, newest first
func (f *Firestore) ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	query := f.client.Collection(runsCollection).OrderBy(fieldGeneratedAt, firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var runs []*model.RunRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate runs")
		}

		var run model.RunRecord
		if err := doc.DataTo(&run); err != nil {
			return nil, goerr.Wrap(err, "failed to decode run", goerr.V("doc", doc.Ref.ID))
		}
		runs = append(runs, &run)
	}

	// Firestore only orders by the timestamp; ties are resolved like the other archives
	sortRuns(runs)
	return runs, nil
}

// Close closes the Firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}
