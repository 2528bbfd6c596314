package model

import (
	"time"

	"github.com/secmon-lab/caselens/pkg/domain/types"
)

// Case is one support case row after column mapping and normalization.
// Text fields hold NotAvailable when the column is missing or the cell is empty.
type Case struct {
	ID             types.CaseID
	Row            int // 1-based data row number in the source file
	Subject        string
	Status         string
	CreatedAt      *time.Time // nil when the creation date could not be parsed
	RawCreatedAt   string
	RespondedAt    *time.Time
	Severity       string
	Product        string
	ProductVersion string
	BugRef         string
	Internal       bool
	Customer       string
	Owner          string
	Engineer       string
	Queue          string
}

// HasCreatedAt returns true if the case can take part in time series
func (c *Case) HasCreatedAt() bool {
	return c.CreatedAt != nil
}

// ResponseTime returns the time from creation to the last response.
// The second value is false when either date is missing or the response is not after creation.
func (c *Case) ResponseTime() (time.Duration, bool) {
	if c.CreatedAt == nil || c.RespondedAt == nil {
		return 0, false
	}
	if !c.RespondedAt.After(*c.CreatedAt) {
		return 0, false
	}
	return c.RespondedAt.Sub(*c.CreatedAt), true
}
