package interfaces

import (
	"context"

	"github.com/secmon-lab/caselens/pkg/domain/model"
)

// Narrator writes the commentary of the executive summary
type Narrator interface {
	Narrate(ctx context.Context, title string, analytics *model.Analytics) (*model.Narrative, error)
}

// Notifier announces finished reports
type Notifier interface {
	NotifyReport(ctx context.Context, result *model.FileResult) error
}
