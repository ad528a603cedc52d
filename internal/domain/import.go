package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportStatus enumerates the lifecycle of an import run.
// Terminal states are completed and failed; a failed import is resubmitted,
// never retried in place.
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// MaxRowErrors bounds the per-row error sample persisted with an import so
// the payload stays small no matter how broken the file is.
const MaxRowErrors = 50

// RowError records one rejected CSV row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

// RowErrors is the bounded error sample stored as a JSONB column.
type RowErrors []RowError

func (e RowErrors) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	return json.Marshal(e)
}

func (e *RowErrors) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("row errors: cannot scan %T", value)
	}
	return json.Unmarshal(data, e)
}

// NewListSpec describes a list to create as part of an import, used when the
// upload targets a brand-new audience instead of an existing list.
type NewListSpec struct {
	Name      string `json:"name"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

func (s *NewListSpec) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *NewListSpec) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("new list spec: cannot scan %T", value)
	}
	return json.Unmarshal(data, s)
}

// Import is one CSV ingestion run. Exactly one of ListID / NewList must be
// set. The record is exclusively owned by a single job run from the moment
// it leaves pending; the backing file is deleted on both terminal outcomes.
type Import struct {
	ID       uuid.UUID    `json:"id" db:"id"`
	ListID   *uuid.UUID   `json:"list_id" db:"list_id"`
	NewList  *NewListSpec `json:"new_list" db:"new_list"`
	Filename string       `json:"filename" db:"filename"`

	// StoredPath locates the uploaded file in the file store.
	StoredPath string `json:"-" db:"stored_path"`

	Status         ImportStatus `json:"status" db:"status"`
	TotalRows      int          `json:"total_rows" db:"total_rows"`
	ProcessedRows  int          `json:"processed_rows" db:"processed_rows"`
	SuccessfulRows int          `json:"successful_rows" db:"successful_rows"`
	FailedRows     int          `json:"failed_rows" db:"failed_rows"`
	Errors         RowErrors    `json:"errors" db:"errors"`

	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Percent returns processed progress as a whole percentage, 0 when the
// total is not yet known.
func (i *Import) Percent() int {
	if i.TotalRows <= 0 {
		return 0
	}
	return i.ProcessedRows * 100 / i.TotalRows
}

// AddError appends a row error, keeping only the first MaxRowErrors entries.
func (i *Import) AddError(row int, message, email string) {
	i.FailedRows++
	if len(i.Errors) >= MaxRowErrors {
		return
	}
	i.Errors = append(i.Errors, RowError{Row: row, Message: message, Email: email})
}
