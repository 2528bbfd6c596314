package types

import (
	"github.com/google/uuid"
)

// FieldName is a canonical column name of a support case record
type FieldName string

// Canonical fields, in the order they are shown in reports
const (
	FieldCaseID         FieldName = "case_id"
	FieldSubject        FieldName = "subject"
	FieldStatus         FieldName = "status"
	FieldCreatedAt      FieldName = "created_at"
	FieldQueue          FieldName = "queue"
	FieldInternal       FieldName = "internal"
	FieldCustomer       FieldName = "customer"
	FieldOwner          FieldName = "owner"
	FieldEmail          FieldName = "email"
	FieldRespondedAt    FieldName = "responded_at"
	FieldEngineer       FieldName = "engineer"
	FieldProduct        FieldName = "product"
	FieldProductVersion FieldName = "product_version"
	FieldJiraCase       FieldName = "jira_case"
	FieldNFR            FieldName = "nfr"
	FieldSeverity       FieldName = "severity"
	FieldJiraBug        FieldName = "jira_bug"
	FieldBug            FieldName = "bug"
	FieldRelatedCase    FieldName = "related_case"
)

// AllFields returns every canonical field
func AllFields() []FieldName {
	return []FieldName{
		FieldCaseID, FieldSubject, FieldStatus, FieldCreatedAt, FieldQueue,
		FieldInternal, FieldCustomer, FieldOwner, FieldEmail, FieldRespondedAt,
		FieldEngineer, FieldProduct, FieldProductVersion, FieldJiraCase,
		FieldNFR, FieldSeverity, FieldJiraBug, FieldBug, FieldRelatedCase,
	}
}

// String returns the string representation
func (f FieldName) String() string {
	return string(f)
}

// IsValid checks if the field is one of the canonical fields
func (f FieldName) IsValid() bool {
	for _, v := range AllFields() {
		if v == f {
			return true
		}
	}
	return false
}

// CaseID represents a support case reference number
type CaseID string

// String returns the string representation
func (id CaseID) String() string {
	return string(id)
}

// RunID identifies one report generation for one input file
type RunID string

// String returns the string representation
func (id RunID) String() string {
	return string(id)
}

// NewRunID creates a new RunID using UUID v7 so that IDs sort by creation time
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		return RunID(uuid.New().String())
	}
	return RunID(id.String())
}
