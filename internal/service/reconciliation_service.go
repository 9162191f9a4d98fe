package service

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/model"
	"github.com/whalewatch/whale-watcher/internal/repository"
)

// ReconciliationService computes quarter-over-quarter position changes for
// a filing by diffing its holdings against the filer's chronologically
// previous filing.
//
// Reconcile participates in whatever transaction (or plain connection) the
// caller binds it to and opens none itself; the ingestion pipeline runs it
// inside the same transaction that loads the filing's holdings, so the
// delete-and-recompute sequence is all-or-nothing. Two concurrent runs for
// the same filing are not safe; the orchestrator serializes work per filer.
type ReconciliationService struct {
	logger *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(logger *zap.Logger) *ReconciliationService {
	return &ReconciliationService{logger: logger}
}

// Reconcile diffs the holdings of the given filing against those of the
// filer's most recent earlier filing (by period of report), classifies each
// security's change, and replaces the filing's position change rows with
// the recomputed set. It is idempotent: any existing rows for the filing
// are deleted before the new set is inserted, so repeated calls yield the
// same result without duplicates.
//
// Returns the number of position change rows produced, or
// apperrors.ErrFilingNotFound if the filing does not exist (in which case
// nothing is written).
func (s *ReconciliationService) Reconcile(db repository.DBTX, filingID string) (int, error) {
	if filingID == "" {
		return 0, fmt.Errorf("%w: filing ID", apperrors.ErrEmptyID)
	}

	filingRepo := repository.NewFilingRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	changeRepo := repository.NewPositionChangeRepository(db)

	current, err := filingRepo.GetByID(filingID)
	if err != nil {
		return 0, err
	}

	deleted, err := changeRepo.DeleteByCurrentFiling(filingID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("deleted existing position changes before recompute",
			zap.String("filing_id", filingID),
			zap.Int64("deleted", deleted),
		)
	}

	previous, err := s.previousFiling(filingRepo, current)
	if err != nil {
		return 0, err
	}
	if previous == nil {
		s.logger.Info("no previous filing found, all positions will be marked NEW",
			zap.String("filing_id", filingID),
		)
	}

	currentHoldings, err := holdingRepo.ListByFiling(current.ID)
	if err != nil {
		return 0, err
	}

	previousHoldings := []model.Holding{}
	if previous != nil {
		if previousHoldings, err = holdingRepo.ListByFiling(previous.ID); err != nil {
			return 0, err
		}
	}

	changes := s.diff(current, previous, currentHoldings, previousHoldings)

	if err := changeRepo.BulkInsert(changes); err != nil {
		return 0, err
	}

	tally := make(map[model.ChangeType]int)
	for _, c := range changes {
		tally[c.ChangeType]++
	}
	s.logger.Info("reconciled filing",
		zap.String("filing_id", filingID),
		zap.String("period", current.PeriodOfReport.Format("2006-01-02")),
		zap.Int("changes", len(changes)),
		zap.Int("new", tally[model.ChangeNew]),
		zap.Int("closed", tally[model.ChangeClosed]),
		zap.Int("increased", tally[model.ChangeIncreased]),
		zap.Int("decreased", tally[model.ChangeDecreased]),
		zap.Int("unchanged", tally[model.ChangeUnchanged]),
	)

	return len(changes), nil
}

// previousFiling returns the filer's filing with the greatest period of
// report strictly before the current filing's, or nil when the current
// filing is the filer's first.
func (s *ReconciliationService) previousFiling(filingRepo *repository.FilingRepository, current model.Filing) (*model.Filing, error) {
	filings, err := filingRepo.ListByFiler(current.FilerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list filings for predecessor lookup: %w", err)
	}

	var previous *model.Filing
	for i := range filings {
		f := filings[i]
		if !f.PeriodOfReport.Before(current.PeriodOfReport) {
			continue
		}
		if previous == nil || f.PeriodOfReport.After(previous.PeriodOfReport) {
			previous = &f
		}
	}

	return previous, nil
}

// diff produces one PositionChange per security present in either snapshot.
// Holdings are matched by CUSIP; both lists are pre-aggregated by the
// parser, so each CUSIP appears at most once per side.
func (s *ReconciliationService) diff(current model.Filing, previous *model.Filing, currentHoldings, previousHoldings []model.Holding) []model.PositionChange {
	prevByCUSIP := make(map[string]model.Holding, len(previousHoldings))
	for _, h := range previousHoldings {
		prevByCUSIP[h.CUSIP] = h
	}

	changes := make([]model.PositionChange, 0, len(currentHoldings)+len(previousHoldings))
	seen := make(map[string]struct{}, len(currentHoldings))

	for _, curr := range currentHoldings {
		seen[curr.CUSIP] = struct{}{}

		change := model.PositionChange{
			FilerID:         current.FilerID,
			CUSIP:           curr.CUSIP,
			SecurityName:    curr.SecurityName,
			CurrFilingID:    current.ID,
			CurrPeriod:      current.PeriodOfReport,
			CurrShares:      sql.NullInt64{Int64: curr.Shares, Valid: true},
			CurrMarketValue: sql.NullInt64{Int64: curr.MarketValue, Valid: true},
		}

		prev, held := prevByCUSIP[curr.CUSIP]
		if held {
			change.PrevFilingID = sql.NullString{String: previous.ID, Valid: true}
			change.PrevPeriod = sql.NullTime{Time: previous.PeriodOfReport, Valid: true}
			change.PrevShares = sql.NullInt64{Int64: prev.Shares, Valid: true}
			change.PrevMarketValue = sql.NullInt64{Int64: prev.MarketValue, Valid: true}

			change.SharesChange = curr.Shares - prev.Shares
			change.ValueChange = curr.MarketValue - prev.MarketValue
			change.SharesChangePct = percentageChange(prev.Shares, curr.Shares)
		} else {
			change.SharesChange = curr.Shares
			change.ValueChange = curr.MarketValue
		}

		change.ChangeType = classifyChange(change.PrevShares, change.CurrShares)
		changes = append(changes, change)
	}

	// Securities held previously but absent now were closed. The previous
	// holdings list keeps a stable order, so output stays deterministic.
	if previous != nil {
		for _, prev := range previousHoldings {
			if _, ok := seen[prev.CUSIP]; ok {
				continue
			}

			changes = append(changes, model.PositionChange{
				FilerID:         current.FilerID,
				CUSIP:           prev.CUSIP,
				SecurityName:    prev.SecurityName,
				PrevFilingID:    sql.NullString{String: previous.ID, Valid: true},
				PrevPeriod:      sql.NullTime{Time: previous.PeriodOfReport, Valid: true},
				PrevShares:      sql.NullInt64{Int64: prev.Shares, Valid: true},
				PrevMarketValue: sql.NullInt64{Int64: prev.MarketValue, Valid: true},
				CurrFilingID:    current.ID,
				CurrPeriod:      current.PeriodOfReport,
				SharesChange:    -prev.Shares,
				ValueChange:     -prev.MarketValue,
				// The percentage stays null for closed positions rather
				// than asserting -100.
				ChangeType: model.ChangeClosed,
			})
		}
	}

	return changes
}

// classifyChange maps a (previous, current) share count pair to its change
// category. Classification compares raw integer share counts only; the
// derived percentage never feeds back into it.
func classifyChange(prevShares, currShares sql.NullInt64) model.ChangeType {
	if !prevShares.Valid && currShares.Valid && currShares.Int64 > 0 {
		return model.ChangeNew
	}
	if prevShares.Valid && prevShares.Int64 > 0 && !currShares.Valid {
		return model.ChangeClosed
	}
	if prevShares.Valid && currShares.Valid {
		switch {
		case currShares.Int64 > prevShares.Int64:
			return model.ChangeIncreased
		case currShares.Int64 < prevShares.Int64:
			return model.ChangeDecreased
		default:
			return model.ChangeUnchanged
		}
	}

	// Unreachable with valid data.
	return model.ChangeUnchanged
}

// percentageChange returns (curr-prev)/prev*100, or null when prev is not
// strictly positive: there is no denominator-safe ratio to express for new
// positions and the division guard also covers zero-share oddities in
// source data.
func percentageChange(prev, curr int64) sql.NullFloat64 {
	if prev <= 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{
		Float64: float64(curr-prev) / float64(prev) * 100,
		Valid:   true,
	}
}
