package render

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// AnalyticsExport is the document written for the json output format
type AnalyticsExport struct {
	RunID       types.RunID         `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Source      *model.FileAnalysis `json:"source"`
	Analytics   *model.Analytics    `json:"analytics"`
	Narrative   *model.Narrative    `json:"narrative,omitempty"`
}

// WriteJSON writes the analytics of a processed file as indented JSON
func WriteJSON(w io.Writer, result *model.FileResult, generatedAt time.Time) error {
	if result.Analytics == nil {
		return goerr.New("result has no analytics", goerr.V("input", result.Input))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&AnalyticsExport{
		RunID:       result.RunID,
		GeneratedAt: generatedAt,
		Source:      result.Analysis,
		Analytics:   result.Analytics,
		Narrative:   result.Narrative,
	}); err != nil {
		return goerr.Wrap(err, "failed to encode analytics", goerr.V("input", result.Input))
	}
	return nil
}
