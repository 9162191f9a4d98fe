package service

import (
	"database/sql"

	"github.com/whalewatch/whale-watcher/internal/model"
	"github.com/whalewatch/whale-watcher/internal/repository"
)

// FilerService handles filer and filing read operations for the query API.
type FilerService struct {
	filerRepo   *repository.FilerRepository
	filingRepo  *repository.FilingRepository
	holdingRepo *repository.HoldingRepository
}

// NewFilerService creates a new FilerService over the given connection.
func NewFilerService(db *sql.DB) *FilerService {
	return &FilerService{
		filerRepo:   repository.NewFilerRepository(db),
		filingRepo:  repository.NewFilingRepository(db),
		holdingRepo: repository.NewHoldingRepository(db),
	}
}

// ListFilers returns all known filers ordered by name.
func (s *FilerService) ListFilers() ([]model.Filer, error) {
	return s.filerRepo.List()
}

// GetFilerByCIK returns the filer with the given CIK.
func (s *FilerService) GetFilerByCIK(cik string) (model.Filer, error) {
	return s.filerRepo.GetByCIK(cik)
}

// ListFilings returns the filings of the filer with the given CIK, oldest
// period first.
func (s *FilerService) ListFilings(cik string) ([]model.Filing, error) {
	filer, err := s.filerRepo.GetByCIK(cik)
	if err != nil {
		return nil, err
	}
	return s.filingRepo.ListByFiler(filer.ID)
}

// ListHoldings returns the holdings of a filing, largest market value
// first. The filing must exist.
func (s *FilerService) ListHoldings(filingID string) ([]model.Holding, error) {
	if _, err := s.filingRepo.GetByID(filingID); err != nil {
		return nil, err
	}
	return s.holdingRepo.ListByFiling(filingID)
}
