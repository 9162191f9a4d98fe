package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/whalewatch/whale-watcher/internal/model"
)

// HoldingRepository provides data access methods for the holdings table.
// Holdings are bulk-created once per filing at load time and never updated
// in place; deleting a filing cascades to its holdings.
type HoldingRepository struct {
	db DBTX
}

// NewHoldingRepository creates a new HoldingRepository over the provided
// connection or transaction.
func NewHoldingRepository(db DBTX) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// BulkInsert inserts all holdings for a filing. IDs are generated for
// entries without one; FilingID is stamped from the argument. The caller
// supplies holdings already aggregated by CUSIP.
func (s *HoldingRepository) BulkInsert(filingID string, holdings []model.Holding) error {
	if len(holdings) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO holdings (id, filing_id, cusip, security_name, shares, market_value,
			voting_authority_sole, voting_authority_shared, voting_authority_none,
			discretion, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range holdings {
		h := &holdings[i]
		if h.ID == "" {
			h.ID = uuid.New().String()
		}
		h.FilingID = filingID

		_, err := s.db.Exec(query,
			h.ID,
			h.FilingID,
			h.CUSIP,
			h.SecurityName,
			h.Shares,
			h.MarketValue,
			h.VotingAuthoritySole,
			h.VotingAuthorityShared,
			h.VotingAuthorityNone,
			h.Discretion,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.CUSIP, err)
		}
	}

	return nil
}

// ListByFiling retrieves all holdings for a filing ordered by market value
// descending.
func (s *HoldingRepository) ListByFiling(filingID string) ([]model.Holding, error) {
	rows, err := s.db.Query(`
		SELECT id, filing_id, cusip, security_name, shares, market_value,
			COALESCE(voting_authority_sole, 0), COALESCE(voting_authority_shared, 0),
			COALESCE(voting_authority_none, 0), COALESCE(discretion, ''), created_at
		FROM holdings
		WHERE filing_id = ?
		ORDER BY market_value DESC`, filingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		var h model.Holding
		var createdAtStr string

		err := rows.Scan(
			&h.ID,
			&h.FilingID,
			&h.CUSIP,
			&h.SecurityName,
			&h.Shares,
			&h.MarketValue,
			&h.VotingAuthoritySole,
			&h.VotingAuthorityShared,
			&h.VotingAuthorityNone,
			&h.Discretion,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holdings table results: %w", err)
		}

		if h.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}

		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings table: %w", err)
	}

	return holdings, nil
}
