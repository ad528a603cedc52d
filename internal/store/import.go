package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/courier/internal/domain"
)

const importColumns = `id, list_id, new_list, filename, stored_path, status, total_rows,
	processed_rows, successful_rows, failed_rows, errors, started_at, completed_at, created_at, updated_at`

func scanImport(row interface{ Scan(...interface{}) error }) (*domain.Import, error) {
	imp := &domain.Import{}
	err := row.Scan(&imp.ID, &imp.ListID, &imp.NewList, &imp.Filename, &imp.StoredPath,
		&imp.Status, &imp.TotalRows, &imp.ProcessedRows, &imp.SuccessfulRows,
		&imp.FailedRows, &imp.Errors, &imp.StartedAt, &imp.CompletedAt,
		&imp.CreatedAt, &imp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return imp, nil
}

// CreateImport inserts a pending import record.
func (s *Store) CreateImport(ctx context.Context, imp *domain.Import) error {
	imp.ID = uuid.New()
	imp.Status = domain.ImportPending
	imp.CreatedAt = time.Now()
	imp.UpdatedAt = imp.CreatedAt

	query := `INSERT INTO imports (id, list_id, new_list, filename, stored_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query, imp.ID, imp.ListID, imp.NewList,
		imp.Filename, imp.StoredPath, imp.Status, imp.CreatedAt, imp.UpdatedAt)
	return err
}

// GetImport retrieves an import by ID. Returns (nil, nil) when absent.
func (s *Store) GetImport(ctx context.Context, importID uuid.UUID) (*domain.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE id = $1`
	imp, err := scanImport(s.db.QueryRowContext(ctx, query, importID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return imp, err
}

// GetImports retrieves recent imports newest first.
func (s *Store) GetImports(ctx context.Context, limit int) ([]*domain.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []*domain.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// ClaimPendingImport atomically flips the oldest pending import to
// processing and returns it. Returns (nil, nil) when no work is queued.
// The claim makes the record exclusively owned by the calling job run.
func (s *Store) ClaimPendingImport(ctx context.Context) (*domain.Import, error) {
	query := `UPDATE imports SET status = 'processing', started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM imports WHERE status = 'pending'
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + importColumns
	imp, err := scanImport(s.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return imp, err
}

// SetImportTotal records the counted row total before processing begins.
func (s *Store) SetImportTotal(ctx context.Context, importID uuid.UUID, total int) error {
	query := `UPDATE imports SET total_rows = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, importID, total)
	return err
}

// CheckpointImport persists in-flight progress so observers can poll it.
func (s *Store) CheckpointImport(ctx context.Context, imp *domain.Import) error {
	query := `UPDATE imports SET processed_rows = $2, successful_rows = $3,
		failed_rows = $4, errors = $5, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, imp.ID, imp.ProcessedRows,
		imp.SuccessfulRows, imp.FailedRows, imp.Errors)
	return err
}

// FinishImport writes the terminal state with the final tallies.
func (s *Store) FinishImport(ctx context.Context, imp *domain.Import, status domain.ImportStatus) error {
	query := `UPDATE imports SET status = $2, processed_rows = $3, successful_rows = $4,
		failed_rows = $5, errors = $6, completed_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, imp.ID, status, imp.ProcessedRows,
		imp.SuccessfulRows, imp.FailedRows, imp.Errors)
	return err
}
