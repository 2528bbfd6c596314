package interfaces

//go:generate moq -out mocks/archive_mock.go -pkg mocks . Archive

import (
	"context"

	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// Archive stores summaries of generated reports so that runs can be compared over time
type Archive interface {
	PutRun(ctx context.Context, run *model.RunRecord) error
	GetRun(ctx context.Context, id types.RunID) (*model.RunRecord, error)
	// ListRuns returns the latest runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*model.RunRecord, error)

	// Close closes the archive connection
	Close() error
}
