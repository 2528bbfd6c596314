package normalize

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
	"github.com/secmon-lab/caselens/pkg/service/loader"
	"github.com/secmon-lab/caselens/pkg/service/mapper"
)

// Normalizer turns raw table rows into Case records
type Normalizer struct {
	cfg        *model.ReportConfig
	severities *model.SeveritiesConfig
}

// New creates a Normalizer
func New(cfg *model.ReportConfig) *Normalizer {
	return &Normalizer{
		cfg:        cfg,
		severities: cfg.GetSeveritiesConfig(),
	}
}

// BuildCases converts every data row to a Case.
//
// Rows without a case reference and rows repeating an earlier reference are
// skipped. Rows whose creation date cannot be parsed are kept with a nil
// CreatedAt so that they still count in non time-based breakdowns. Every such
// row yields a warning.
func (x *Normalizer) BuildCases(ctx context.Context, table *loader.Table, m *mapper.Mapping) ([]model.Case, []model.Warning) {
	logger := ctxlog.From(ctx)

	var (
		cases    = make([]model.Case, 0, len(table.Rows))
		warnings []model.Warning
		seen     = make(map[types.CaseID]int)
	)

	bugField := types.FieldBug
	if !m.Has(types.FieldBug) {
		bugField = types.FieldJiraBug
	}

	for i := range table.Rows {
		rowNum := table.SourceRow(i)
		get := func(f types.FieldName) string {
			idx, ok := m.Index(f)
			if !ok {
				return ""
			}
			return table.Cell(i, idx)
		}
		text := func(f types.FieldName) string {
			return model.CleanText(get(f))
		}

		id := types.CaseID(text(types.FieldCaseID))
		if id == model.NotAvailable {
			warnings = append(warnings, model.Warning{Row: rowNum, Message: "row has no case reference and is skipped"})
			continue
		}
		if first, dup := seen[id]; dup {
			warnings = append(warnings, model.Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("case %s already appeared in row %d, duplicate is skipped", id, first),
			})
			continue
		}
		seen[id] = rowNum

		c := model.Case{
			ID:             id,
			Row:            rowNum,
			Subject:        text(types.FieldSubject),
			Status:         text(types.FieldStatus),
			RawCreatedAt:   get(types.FieldCreatedAt),
			Severity:       model.UnknownSeverity,
			Product:        text(types.FieldProduct),
			ProductVersion: text(types.FieldProductVersion),
			BugRef:         text(bugField),
			Internal:       x.cfg.IsInternal(get(types.FieldInternal)),
			Customer:       text(types.FieldCustomer),
			Owner:          text(types.FieldOwner),
			Engineer:       text(types.FieldEngineer),
			Queue:          text(types.FieldQueue),
		}
		if m.Has(types.FieldSeverity) {
			c.Severity = x.severities.Normalize(get(types.FieldSeverity))
		}

		if t, ok := ParseDate(c.RawCreatedAt); ok {
			c.CreatedAt = &t
		} else {
			warnings = append(warnings, model.Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("creation date %q of case %s could not be parsed, case is excluded from time series", c.RawCreatedAt, id),
			})
		}

		if raw := get(types.FieldRespondedAt); raw != "" {
			if t, ok := ParseDate(raw); ok {
				c.RespondedAt = &t
			} else if !model.IsNullText(raw) {
				logger.Debug("Unparseable response date", "case", id, "value", raw)
			}
		}

		cases = append(cases, c)
	}

	if len(warnings) > 0 {
		logger.Warn("Some rows need attention",
			"rows", len(table.Rows),
			"cases", len(cases),
			"warnings", len(warnings),
		)
	}
	return cases, warnings
}
