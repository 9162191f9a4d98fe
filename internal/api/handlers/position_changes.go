package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/whalewatch/whale-watcher/internal/api/response"
	"github.com/whalewatch/whale-watcher/internal/model"
	"github.com/whalewatch/whale-watcher/internal/service"
)

// PositionChangeHandler handles position change HTTP requests
type PositionChangeHandler struct {
	changeService *service.PositionChangeService
}

// NewPositionChangeHandler creates a new PositionChangeHandler
func NewPositionChangeHandler(changeService *service.PositionChangeService) *PositionChangeHandler {
	return &PositionChangeHandler{changeService: changeService}
}

// PositionChangeResponse represents one reconciliation result row in API
// responses. Previous-period fields are null for NEW positions; current
// share and value fields are null for CLOSED positions.
type PositionChangeResponse struct {
	CUSIP           string   `json:"cusip"`
	SecurityName    string   `json:"security_name"`
	ChangeType      string   `json:"change_type"`
	PrevFilingID    *string  `json:"prev_filing_id"`
	PrevPeriod      *string  `json:"prev_period"`
	PrevShares      *int64   `json:"prev_shares"`
	PrevMarketValue *int64   `json:"prev_market_value"`
	CurrFilingID    string   `json:"curr_filing_id"`
	CurrPeriod      string   `json:"curr_period"`
	CurrShares      *int64   `json:"curr_shares"`
	CurrMarketValue *int64   `json:"curr_market_value"`
	SharesChange    int64    `json:"shares_change"`
	SharesChangePct *float64 `json:"shares_change_pct"`
	ValueChange     int64    `json:"value_change"`
}

// validChangeTypes guards the type query parameter.
var validChangeTypes = map[model.ChangeType]struct{}{
	model.ChangeNew:       {},
	model.ChangeClosed:    {},
	model.ChangeIncreased: {},
	model.ChangeDecreased: {},
	model.ChangeUnchanged: {},
}

// ChangesByFiling lists the position changes of one filing, optionally
// filtered with ?type=NEW|CLOSED|INCREASED|DECREASED|UNCHANGED.
func (h *PositionChangeHandler) ChangesByFiling(w http.ResponseWriter, r *http.Request) {
	var changeType model.ChangeType
	if raw := r.URL.Query().Get("type"); raw != "" {
		changeType = model.ChangeType(strings.ToUpper(raw))
		if _, ok := validChangeTypes[changeType]; !ok {
			response.RespondError(w, http.StatusBadRequest, "invalid change type", raw)
			return
		}
	}

	changes, err := h.changeService.ListByFiling(chi.URLParam(r, "id"), changeType)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve position changes")
		return
	}

	response.RespondJSON(w, http.StatusOK, toPositionChangeResponses(changes))
}

// ChangesByFiler lists every position change of one type across a filer's
// reconciled history. The type query parameter is required.
func (h *PositionChangeHandler) ChangesByFiler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		response.RespondError(w, http.StatusBadRequest, "missing change type", "type query parameter is required")
		return
	}
	changeType := model.ChangeType(strings.ToUpper(raw))
	if _, ok := validChangeTypes[changeType]; !ok {
		response.RespondError(w, http.StatusBadRequest, "invalid change type", raw)
		return
	}

	changes, err := h.changeService.ListByFilerAndType(chi.URLParam(r, "cik"), changeType)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve position changes")
		return
	}

	response.RespondJSON(w, http.StatusOK, toPositionChangeResponses(changes))
}

// TopMovers lists the largest position changes of a filer's most recent
// reconciled period. Supports ?by=value|shares and ?limit=N.
func (h *PositionChangeHandler) TopMovers(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by != "" && by != "value" && by != "shares" {
		response.RespondError(w, http.StatusBadRequest, "invalid ranking", by)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = parsed
	}

	changes, err := h.changeService.TopMovers(chi.URLParam(r, "cik"), by, limit)
	if err != nil {
		respondServiceError(w, err, "failed to retrieve top movers")
		return
	}

	response.RespondJSON(w, http.StatusOK, toPositionChangeResponses(changes))
}

func toPositionChangeResponses(changes []model.PositionChange) []PositionChangeResponse {
	result := make([]PositionChangeResponse, len(changes))
	for i, c := range changes {
		result[i] = PositionChangeResponse{
			CUSIP:           c.CUSIP,
			SecurityName:    c.SecurityName,
			ChangeType:      string(c.ChangeType),
			PrevFilingID:    nullStringPtr(c.PrevFilingID),
			PrevPeriod:      nullDatePtr(c.PrevPeriod),
			PrevShares:      nullInt64Ptr(c.PrevShares),
			PrevMarketValue: nullInt64Ptr(c.PrevMarketValue),
			CurrFilingID:    c.CurrFilingID,
			CurrPeriod:      c.CurrPeriod.Format("2006-01-02"),
			CurrShares:      nullInt64Ptr(c.CurrShares),
			CurrMarketValue: nullInt64Ptr(c.CurrMarketValue),
			SharesChange:    c.SharesChange,
			SharesChangePct: nullFloat64Ptr(c.SharesChangePct),
			ValueChange:     c.ValueChange,
		}
	}
	return result
}
