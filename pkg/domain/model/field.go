package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// Field describes how a canonical field is found in an export's header row
type Field struct {
	Name     types.FieldName `yaml:"name"`               // Canonical field name
	Label    string          `yaml:"label"`              // Display name used in reports
	Aliases  []string        `yaml:"aliases"`            // Header names in priority order
	Keywords []string        `yaml:"keywords,omitempty"` // Substrings tried when no alias matches
	Required bool            `yaml:"required,omitempty"` // A report cannot be produced without it
}

// Validate validates the field definition
func (f *Field) Validate() error {
	if !f.Name.IsValid() {
		return goerr.New("unknown field name", goerr.V("name", f.Name))
	}
	if len(f.Aliases) == 0 {
		return goerr.New("at least one alias is required", goerr.V("name", f.Name))
	}
	for i, alias := range f.Aliases {
		if alias == "" {
			return goerr.New("alias must not be empty",
				goerr.V("name", f.Name),
				goerr.V("index", i))
		}
	}
	return nil
}

// DisplayName returns Label, or the canonical name when no label is set
func (f *Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name.String()
}

// FieldsConfig is the alias table for all canonical fields
type FieldsConfig struct {
	Fields []Field `yaml:"fields"`
}

// Validate validates the alias table
func (c *FieldsConfig) Validate() error {
	if len(c.Fields) == 0 {
		return goerr.New("at least one field is required")
	}

	seen := make(map[types.FieldName]bool)
	for i, f := range c.Fields {
		if err := f.Validate(); err != nil {
			return goerr.Wrap(err, "invalid field at index",
				goerr.V("index", i),
				goerr.V("name", f.Name))
		}
		if seen[f.Name] {
			return goerr.New("duplicate field", goerr.V("name", f.Name))
		}
		seen[f.Name] = true
	}

	for _, name := range []types.FieldName{types.FieldCaseID, types.FieldStatus, types.FieldCreatedAt} {
		if !seen[name] {
			return goerr.New("essential field is not defined", goerr.V("name", name))
		}
	}

	return nil
}

// FindField finds a field definition by canonical name
func (c *FieldsConfig) FindField(name types.FieldName) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			result := f
			return &result
		}
	}
	return nil
}

// AllAliases returns the header names of every field
func (c *FieldsConfig) AllAliases() []string {
	var result []string
	for _, f := range c.Fields {
		result = append(result, f.Aliases...)
	}
	return result
}

// RequiredFields returns the names of all required fields
func (c *FieldsConfig) RequiredFields() []types.FieldName {
	var result []types.FieldName
	for _, f := range c.Fields {
		if f.Required {
			result = append(result, f.Name)
		}
	}
	return result
}

// DefaultFields returns the alias table for common support case exports
func DefaultFields() []Field {
	return []Field{
		{Name: types.FieldCaseID, Label: "Reference #", Required: true,
			Aliases:  []string{"Reference #", "Reference", "Case #", "Case Number", "Ticket #"},
			Keywords: []string{"case", "ticket", "ref", "#"}},
		{Name: types.FieldSubject, Label: "Subject",
			Aliases: []string{"Subject", "Title", "Summary", "Description"}},
		{Name: types.FieldStatus, Label: "Status", Required: true,
			Aliases:  []string{"Status", "Case Status", "State"},
			Keywords: []string{"status", "state"}},
		{Name: types.FieldCreatedAt, Label: "Date Created", Required: true,
			Aliases:  []string{"Date Created", "Created Date", "Created", "Open Date"},
			Keywords: []string{"date", "created", "open"}},
		{Name: types.FieldQueue, Label: "Queue",
			Aliases: []string{"Queue", "Team", "Group", "Assignment Group"}},
		{Name: types.FieldInternal, Label: "Internal Case",
			Aliases: []string{"Internal Case", "Internal", "Is Internal"}},
		{Name: types.FieldCustomer, Label: "End Customer",
			Aliases: []string{"End Customer", "Customer", "Company", "Organization"}},
		{Name: types.FieldOwner, Label: "Case Owner",
			Aliases: []string{"Full Name", "Name", "Contact Name", "Engineer Name"}},
		{Name: types.FieldEmail, Label: "Email Address",
			Aliases: []string{"Email Address", "Email", "Contact Email"}},
		{Name: types.FieldRespondedAt, Label: "Date Last Responded",
			Aliases: []string{"Date Last Responded", "Last Response", "Last Updated"}},
		{Name: types.FieldEngineer, Label: "Assigned Engineer",
			Aliases: []string{"Assigned Account", "Assigned Engineer", "Owner"}},
		{Name: types.FieldProduct, Label: "Product Hierarchy",
			Aliases: []string{"Product Hierarchy", "Product", "Product Line"}},
		{Name: types.FieldProductVersion, Label: "Product Version",
			Aliases: []string{"Product_Version", "Version", "Product Version"}},
		{Name: types.FieldJiraCase, Label: "Jira Case",
			Aliases: []string{"Jira Case", "Jira", "Jira Ticket"}},
		{Name: types.FieldNFR, Label: "NFR",
			Aliases: []string{"NFR", "Enhancement Request"}},
		{Name: types.FieldSeverity, Label: "Severity",
			Aliases: []string{"Severity", "Priority", "Urgency"}},
		{Name: types.FieldJiraBug, Label: "Jira Bug",
			Aliases: []string{"Jira Bug", "Bug", "Bug ID"}},
		{Name: types.FieldBug, Label: "Experienced Bug",
			Aliases: []string{"Experienced Bug", "Known Bug", "Bug Found"}},
		{Name: types.FieldRelatedCase, Label: "Related Case",
			Aliases: []string{"Similar/Related Case", "Related Cases", "Similar Cases"}},
	}
}
