package service

import (
	"database/sql"

	"github.com/whalewatch/whale-watcher/internal/model"
	"github.com/whalewatch/whale-watcher/internal/repository"
)

// PositionChangeService handles position change read operations for the
// query API.
type PositionChangeService struct {
	filerRepo  *repository.FilerRepository
	filingRepo *repository.FilingRepository
	changeRepo *repository.PositionChangeRepository
}

// NewPositionChangeService creates a new PositionChangeService over the
// given connection.
func NewPositionChangeService(db *sql.DB) *PositionChangeService {
	return &PositionChangeService{
		filerRepo:  repository.NewFilerRepository(db),
		filingRepo: repository.NewFilingRepository(db),
		changeRepo: repository.NewPositionChangeRepository(db),
	}
}

// ListByFiling returns the position changes computed for a filing,
// optionally filtered by change type. The filing must exist.
func (s *PositionChangeService) ListByFiling(filingID string, changeType model.ChangeType) ([]model.PositionChange, error) {
	if _, err := s.filingRepo.GetByID(filingID); err != nil {
		return nil, err
	}
	return s.changeRepo.ListByFiling(filingID, changeType)
}

// ListByFilerAndType returns every position change of the given type
// across all reconciled periods of the filer with the given CIK, newest
// period first.
func (s *PositionChangeService) ListByFilerAndType(cik string, changeType model.ChangeType) ([]model.PositionChange, error) {
	filer, err := s.filerRepo.GetByCIK(cik)
	if err != nil {
		return nil, err
	}
	return s.changeRepo.ListByFilerAndType(filer.ID, changeType)
}

// TopMovers returns the largest position changes in the most recent
// reconciled period of the filer with the given CIK, ranked by absolute
// value change, or absolute share change when by is "shares".
func (s *PositionChangeService) TopMovers(cik, by string, limit int) ([]model.PositionChange, error) {
	filer, err := s.filerRepo.GetByCIK(cik)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.changeRepo.TopMovers(filer.ID, by, limit)
}
