package mapper

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// Mapping is the result of resolving an export's headers to canonical fields
type Mapping struct {
	Headers  []string
	Missing  []types.FieldName // optional fields without a column
	Warnings []model.Warning

	columns map[types.FieldName]model.ColumnMatch
	order   []types.FieldName
}

// Index returns the column index of a field
func (m *Mapping) Index(field types.FieldName) (int, bool) {
	c, ok := m.columns[field]
	if !ok {
		return -1, false
	}
	return c.Index, true
}

// Has returns true if the field was resolved
func (m *Mapping) Has(field types.FieldName) bool {
	_, ok := m.columns[field]
	return ok
}

// Header returns the source header of a field, empty if unresolved
func (m *Mapping) Header(field types.FieldName) string {
	return m.columns[field].Header
}

// Columns returns the resolved columns in field definition order
func (m *Mapping) Columns() []model.ColumnMatch {
	result := make([]model.ColumnMatch, 0, len(m.order))
	for _, f := range m.order {
		if c, ok := m.columns[f]; ok {
			result = append(result, c)
		}
	}
	return result
}

// Mapper resolves header names using the alias table
type Mapper struct {
	fields *model.FieldsConfig
}

// New creates a Mapper
func New(fields *model.FieldsConfig) *Mapper {
	return &Mapper{fields: fields}
}

// Resolve maps headers to canonical fields.
//
// Every alias of every field is tried first, in field order and then alias
// order, comparing headers without case, spaces, underscores or hyphens. A
// header is claimed by at most one field. Required fields still unresolved
// are then searched by keyword among the unclaimed headers. If a required
// field remains unresolved the export cannot be reported and an error tagged
// ErrTagRequiredField is returned.
func (x *Mapper) Resolve(ctx context.Context, headers []string) (*Mapping, error) {
	logger := ctxlog.From(ctx)

	m := &Mapping{
		Headers: headers,
		columns: make(map[types.FieldName]model.ColumnMatch),
	}
	claimed := make(map[int]bool)

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	for _, f := range x.fields.Fields {
		m.order = append(m.order, f.Name)
		if idx, ok := findByAlias(normalized, claimed, f.Aliases); ok {
			claimed[idx] = true
			m.columns[f.Name] = model.ColumnMatch{Field: f.Name, Header: headers[idx], Index: idx}
		}
	}

	var missingRequired []types.FieldName
	for _, f := range x.fields.Fields {
		if m.Has(f.Name) {
			continue
		}

		if f.Required {
			idx, ok := findByKeyword(headers, claimed, f.Keywords)
			if !ok {
				missingRequired = append(missingRequired, f.Name)
				continue
			}
			claimed[idx] = true
			m.columns[f.Name] = model.ColumnMatch{Field: f.Name, Header: headers[idx], Index: idx, Fallback: true}
			msg := fmt.Sprintf("column %q is used as %s because no known header was found", headers[idx], f.DisplayName())
			m.Warnings = append(m.Warnings, model.Warning{Message: msg})
			logger.Warn("Using fallback column", "field", f.Name, "header", headers[idx])
			continue
		}

		m.Missing = append(m.Missing, f.Name)
		m.Warnings = append(m.Warnings, model.Warning{
			Message: fmt.Sprintf("optional column %s not found, related analysis is skipped", f.DisplayName()),
		})
	}

	if len(missingRequired) > 0 {
		return nil, goerr.New("required columns not found",
			goerr.V("missing", missingRequired),
			goerr.V("headers", headers),
			goerr.T(model.ErrTagRequiredField))
	}

	logger.Debug("Resolved columns",
		"resolved", len(m.columns),
		"missing", m.Missing,
	)
	return m, nil
}

func findByAlias(normalized []string, claimed map[int]bool, aliases []string) (int, bool) {
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for i, h := range normalized {
			if !claimed[i] && h != "" && h == want {
				return i, true
			}
		}
	}
	return -1, false
}

func findByKeyword(headers []string, claimed map[int]bool, keywords []string) (int, bool) {
	for i, h := range headers {
		if claimed[i] {
			continue
		}
		lower := strings.ToLower(h)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return i, true
			}
		}
	}
	return -1, false
}

func normalizeHeader(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}
