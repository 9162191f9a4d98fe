package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/model"
)

// FilerRepository provides data access methods for the filers table.
type FilerRepository struct {
	db DBTX
}

// NewFilerRepository creates a new FilerRepository over the provided
// connection or transaction.
func NewFilerRepository(db DBTX) *FilerRepository {
	return &FilerRepository{db: db}
}

const filerColumns = `id, cik, name, COALESCE(description, ''), category, enabled, created_at, updated_at`

// GetByID retrieves a filer by its primary key.
// Returns apperrors.ErrFilerNotFound if no filer matches.
func (s *FilerRepository) GetByID(id string) (model.Filer, error) {
	return s.getOne(`SELECT `+filerColumns+` FROM filers WHERE id = ?`, id)
}

// GetByCIK retrieves a filer by its ten-digit zero-padded CIK.
// Returns apperrors.ErrFilerNotFound if no filer matches.
func (s *FilerRepository) GetByCIK(cik string) (model.Filer, error) {
	return s.getOne(`SELECT `+filerColumns+` FROM filers WHERE cik = ?`, cik)
}

// GetOrCreate returns the filer with the given CIK, creating it from the
// provided fields on first encounter. Calling it repeatedly with the same
// CIK never creates duplicates.
func (s *FilerRepository) GetOrCreate(cik, name, description, category string) (model.Filer, error) {
	filer, err := s.GetByCIK(cik)
	if err == nil {
		return filer, nil
	}
	if err != apperrors.ErrFilerNotFound {
		return model.Filer{}, err
	}

	now := time.Now().UTC()
	filer = model.Filer{
		ID:          uuid.New().String(),
		CIK:         cik,
		Name:        name,
		Description: description,
		Category:    category,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.db.Exec(`
		INSERT INTO filers (id, cik, name, description, category, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		filer.ID,
		filer.CIK,
		filer.Name,
		filer.Description,
		filer.Category,
		filer.Enabled,
		filer.CreatedAt.Format(time.RFC3339),
		filer.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Filer{}, fmt.Errorf("%w: filer cik %s", apperrors.ErrDuplicateEntry, cik)
		}
		return model.Filer{}, fmt.Errorf("failed to insert filer: %w", err)
	}

	return filer, nil
}

// List retrieves all filers ordered by name.
func (s *FilerRepository) List() ([]model.Filer, error) {
	rows, err := s.db.Query(`SELECT ` + filerColumns + ` FROM filers ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filers table: %w", err)
	}
	defer rows.Close()

	filers := []model.Filer{}
	for rows.Next() {
		filer, err := scanFiler(rows.Scan)
		if err != nil {
			return nil, err
		}
		filers = append(filers, filer)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filers table: %w", err)
	}

	return filers, nil
}

func (s *FilerRepository) getOne(query string, arg any) (model.Filer, error) {
	filer, err := scanFiler(s.db.QueryRow(query, arg).Scan)
	if err == sql.ErrNoRows {
		return model.Filer{}, apperrors.ErrFilerNotFound
	}
	if err != nil {
		return model.Filer{}, err
	}
	return filer, nil
}

func scanFiler(scan func(dest ...any) error) (model.Filer, error) {
	var f model.Filer
	var createdAtStr, updatedAtStr string

	err := scan(
		&f.ID,
		&f.CIK,
		&f.Name,
		&f.Description,
		&f.Category,
		&f.Enabled,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return model.Filer{}, err
	}
	if err != nil {
		return model.Filer{}, fmt.Errorf("failed to scan filers table results: %w", err)
	}

	if f.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Filer{}, err
	}
	if f.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Filer{}, err
	}

	return f, nil
}
