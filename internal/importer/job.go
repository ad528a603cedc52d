// Package importer processes uploaded subscriber CSV files: counting,
// validating and inserting rows with progress checkpoints an observer can
// poll mid-run.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/events"
	"github.com/ignite/courier/internal/pkg/logger"
	"github.com/ignite/courier/internal/storage"
)

var (
	ErrEmptyFile          = errors.New("file is empty")
	ErrMissingEmailColumn = errors.New("no email column found in header")
)

const (
	// checkpointRows is the row-count interval between progress writes.
	checkpointRows = 100
)

// headerAliases maps accepted CSV header spellings to canonical fields.
var headerAliases = map[string]string{
	"email":         "email",
	"e-mail":        "email",
	"email_address": "email",
	"emailaddress":  "email",
	"first_name":    "first_name",
	"firstname":     "first_name",
	"first":         "first_name",
	"fname":         "first_name",
	"last_name":     "last_name",
	"lastname":      "last_name",
	"last":          "last_name",
	"lname":         "last_name",
	"surname":       "last_name",
}

// Store is the slice of persistence the job needs.
type Store interface {
	CreateList(ctx context.Context, list *domain.List) error
	ListShortcodeExists(ctx context.Context, code string) (bool, error)
	CreateSubscriberIfAbsent(ctx context.Context, sub *domain.Subscriber) (bool, error)
	SetImportTotal(ctx context.Context, importID uuid.UUID, total int) error
	CheckpointImport(ctx context.Context, imp *domain.Import) error
	FinishImport(ctx context.Context, imp *domain.Import, status domain.ImportStatus) error
}

// Job processes one claimed import record end to end.
type Job struct {
	store    Store
	files    storage.FileStore
	notifier events.Notifier
	log      *logger.Logger
}

func NewJob(store Store, files storage.FileStore, notifier events.Notifier) *Job {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Job{
		store:    store,
		files:    files,
		notifier: notifier,
		log:      logger.New("importer", logger.INFO),
	}
}

// Run executes the import. The record must already be claimed
// (status=processing). On any outcome, success or failure, the uploaded
// file is deleted; a fatal error is recorded on the record and returned
// so the caller sees the run failed.
func (j *Job) Run(ctx context.Context, imp *domain.Import) (err error) {
	defer func() {
		// The file is gone once the run is over, whichever way it went.
		if derr := j.files.Delete(ctx, imp.StoredPath); derr != nil {
			j.log.Warn("delete import file", "error", derr, "import_id", imp.ID)
		}
		if err != nil {
			imp.Errors = append(imp.Errors, domain.RowError{Row: 0, Message: err.Error()})
			if ferr := j.store.FinishImport(ctx, imp, domain.ImportFailed); ferr != nil {
				j.log.Error("mark import failed", "error", ferr, "import_id", imp.ID)
			}
			j.notifier.ImportStatus(ctx, imp.ID, string(domain.ImportFailed))
		}
	}()

	j.notifier.ImportStatus(ctx, imp.ID, string(domain.ImportProcessing))

	listID, err := j.resolveList(ctx, imp)
	if err != nil {
		return err
	}

	// First pass counts data rows so progress is a fraction of a known
	// total, not a guess.
	total, err := j.countRows(ctx, imp.StoredPath)
	if err != nil {
		return err
	}
	imp.TotalRows = total
	if err := j.store.SetImportTotal(ctx, imp.ID, total); err != nil {
		return fmt.Errorf("persist row total: %w", err)
	}

	if err := j.processRows(ctx, imp, listID); err != nil {
		return err
	}

	if err := j.store.FinishImport(ctx, imp, domain.ImportCompleted); err != nil {
		return fmt.Errorf("finish import: %w", err)
	}
	j.notifier.ImportStatus(ctx, imp.ID, string(domain.ImportCompleted))
	j.log.Info("import completed", "import_id", imp.ID,
		"total", imp.TotalRows, "ok", imp.SuccessfulRows, "failed", imp.FailedRows)
	return nil
}

// resolveList returns the target list ID, creating the list first when the
// import carries an inline list spec.
func (j *Job) resolveList(ctx context.Context, imp *domain.Import) (uuid.UUID, error) {
	if imp.ListID != nil {
		return *imp.ListID, nil
	}
	if imp.NewList == nil {
		return uuid.Nil, errors.New("import has neither list_id nor new_list")
	}

	code, err := domain.GenerateShortcode(ctx, j.store.ListShortcodeExists)
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate list shortcode: %w", err)
	}
	list := &domain.List{
		Shortcode: code,
		Name:      imp.NewList.Name,
		FromEmail: imp.NewList.FromEmail,
		FromName:  imp.NewList.FromName,
	}
	if err := j.store.CreateList(ctx, list); err != nil {
		return uuid.Nil, fmt.Errorf("create list: %w", err)
	}
	imp.ListID = &list.ID
	return list.ID, nil
}

// countRows streams through the file and counts data rows (header
// excluded). Ragged rows still count: they will be reported as row errors
// in the second pass, and the total must match what that pass walks.
func (j *Job) countRows(ctx context.Context, path string) (int, error) {
	f, err := j.files.Open(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	r := newCSVReader(f)
	if _, err := r.Read(); err == io.EOF {
		return 0, ErrEmptyFile
	} else if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}

	total := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil && !isRaggedRow(err) {
			return 0, fmt.Errorf("count rows: %w", err)
		}
		total++
	}
	return total, nil
}

func (j *Job) processRows(ctx context.Context, imp *domain.Import, listID uuid.UUID) error {
	f, err := j.files.Open(ctx, imp.StoredPath)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	r := newCSVReader(f)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return err
	}

	lastBucket := -1
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		row++

		if err != nil {
			if isRaggedRow(err) {
				imp.AddError(row, "Column count mismatch", "")
				imp.ProcessedRows++
				lastBucket = j.maybeCheckpoint(ctx, imp, row, lastBucket)
				continue
			}
			return fmt.Errorf("read row %d: %w", row, err)
		}

		email := strings.TrimSpace(record[cols.email])
		if !domain.ValidateEmail(email) {
			imp.AddError(row, "Invalid email address", email)
			imp.ProcessedRows++
			lastBucket = j.maybeCheckpoint(ctx, imp, row, lastBucket)
			continue
		}

		sub := domain.NewSubscriber(listID, email, cols.get(record, "first_name"), cols.get(record, "last_name"))
		inserted, err := j.store.CreateSubscriberIfAbsent(ctx, sub)
		if err != nil {
			return fmt.Errorf("insert row %d: %w", row, err)
		}
		if inserted {
			imp.SuccessfulRows++
		} else {
			// First write wins; a repeated address never overwrites the
			// earlier row.
			imp.AddError(row, "Duplicate email", email)
		}
		imp.ProcessedRows++
		lastBucket = j.maybeCheckpoint(ctx, imp, row, lastBucket)
	}
	return nil
}

// maybeCheckpoint persists progress every checkpointRows rows and at every
// new 10% boundary, whichever comes first. Checkpoint failures are logged
// and skipped: losing a progress write must not kill the import.
func (j *Job) maybeCheckpoint(ctx context.Context, imp *domain.Import, row, lastBucket int) int {
	bucket := lastBucket
	if imp.TotalRows > 0 {
		bucket = imp.ProcessedRows * 10 / imp.TotalRows
	}
	if row%checkpointRows != 0 && bucket == lastBucket {
		return lastBucket
	}
	if err := j.store.CheckpointImport(ctx, imp); err != nil {
		j.log.Warn("checkpoint import", "error", err, "import_id", imp.ID)
	}
	j.notifier.ImportProgress(ctx, imp.ID, imp.ProcessedRows, imp.TotalRows)
	return bucket
}

// columnMap holds resolved header positions.
type columnMap struct {
	email  int
	fields map[string]int
}

func (c columnMap) get(record []string, field string) string {
	idx, ok := c.fields[field]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// mapHeader resolves canonical fields from the header row. The email
// column is mandatory; name columns are optional. The first cell is
// stripped of a UTF-8 BOM, which Excel exports reliably include.
func mapHeader(header []string) (columnMap, error) {
	cols := columnMap{email: -1, fields: make(map[string]int)}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, seen := cols.fields[canonical]; seen {
			continue
		}
		cols.fields[canonical] = i
		if canonical == "email" {
			cols.email = i
		}
	}
	if cols.email < 0 {
		return cols, ErrMissingEmailColumn
	}
	return cols, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0 // enforce the header's column count
	cr.LazyQuotes = true
	return cr
}

func isRaggedRow(err error) bool {
	return errors.Is(err, csv.ErrFieldCount)
}
