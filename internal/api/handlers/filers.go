package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whalewatch/whale-watcher/internal/api/response"
	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/model"
	"github.com/whalewatch/whale-watcher/internal/service"
)

// FilerHandler handles filer and filing HTTP requests
type FilerHandler struct {
	filerService *service.FilerService
}

// NewFilerHandler creates a new FilerHandler
func NewFilerHandler(filerService *service.FilerService) *FilerHandler {
	return &FilerHandler{filerService: filerService}
}

// FilerResponse represents one filer in API responses
type FilerResponse struct {
	ID          string `json:"id"`
	CIK         string `json:"cik"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Enabled     bool   `json:"enabled"`
}

// FilingResponse represents one filing in API responses
type FilingResponse struct {
	ID              string `json:"id"`
	AccessionNumber string `json:"accession_number"`
	FilingDate      string `json:"filing_date"`
	PeriodOfReport  string `json:"period_of_report"`
	TotalValue      *int64 `json:"total_value"`
	HoldingsCount   *int64 `json:"holdings_count"`
	Processed       bool   `json:"processed"`
}

// HoldingResponse represents one holding in API responses
type HoldingResponse struct {
	CUSIP                 string `json:"cusip"`
	SecurityName          string `json:"security_name"`
	Shares                int64  `json:"shares"`
	MarketValue           int64  `json:"market_value"`
	VotingAuthoritySole   int64  `json:"voting_authority_sole"`
	VotingAuthorityShared int64  `json:"voting_authority_shared"`
	VotingAuthorityNone   int64  `json:"voting_authority_none"`
	Discretion            string `json:"discretion,omitempty"`
}

// Filers lists all known filers.
func (h *FilerHandler) Filers(w http.ResponseWriter, r *http.Request) {
	filers, err := h.filerService.ListFilers()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to retrieve filers", err.Error())
		return
	}

	result := make([]FilerResponse, len(filers))
	for i, f := range filers {
		result[i] = toFilerResponse(f)
	}
	response.RespondJSON(w, http.StatusOK, result)
}

// Filer returns one filer by CIK.
func (h *FilerHandler) Filer(w http.ResponseWriter, r *http.Request) {
	filer, err := h.filerService.GetFilerByCIK(chi.URLParam(r, "cik"))
	if err != nil {
		respondServiceError(w, err, "failed to retrieve filer")
		return
	}
	response.RespondJSON(w, http.StatusOK, toFilerResponse(filer))
}

// Filings lists a filer's filings, oldest period first.
func (h *FilerHandler) Filings(w http.ResponseWriter, r *http.Request) {
	filings, err := h.filerService.ListFilings(chi.URLParam(r, "cik"))
	if err != nil {
		respondServiceError(w, err, "failed to retrieve filings")
		return
	}

	result := make([]FilingResponse, len(filings))
	for i, f := range filings {
		result[i] = FilingResponse{
			ID:              f.ID,
			AccessionNumber: f.AccessionNumber,
			FilingDate:      f.FilingDate.Format("2006-01-02"),
			PeriodOfReport:  f.PeriodOfReport.Format("2006-01-02"),
			TotalValue:      nullInt64Ptr(f.TotalValue),
			HoldingsCount:   nullInt64Ptr(f.HoldingsCount),
			Processed:       f.Processed,
		}
	}
	response.RespondJSON(w, http.StatusOK, result)
}

// Holdings lists a filing's holdings, largest market value first.
func (h *FilerHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.filerService.ListHoldings(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "failed to retrieve holdings")
		return
	}

	result := make([]HoldingResponse, len(holdings))
	for i, h := range holdings {
		result[i] = HoldingResponse{
			CUSIP:                 h.CUSIP,
			SecurityName:          h.SecurityName,
			Shares:                h.Shares,
			MarketValue:           h.MarketValue,
			VotingAuthoritySole:   h.VotingAuthoritySole,
			VotingAuthorityShared: h.VotingAuthorityShared,
			VotingAuthorityNone:   h.VotingAuthorityNone,
			Discretion:            h.Discretion,
		}
	}
	response.RespondJSON(w, http.StatusOK, result)
}

func toFilerResponse(f model.Filer) FilerResponse {
	return FilerResponse{
		ID:          f.ID,
		CIK:         f.CIK,
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Enabled:     f.Enabled,
	}
}

// respondServiceError maps service errors to HTTP statuses: missing
// entities become 404, everything else 500.
func respondServiceError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, apperrors.ErrFilerNotFound) || errors.Is(err, apperrors.ErrFilingNotFound) {
		response.RespondError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	response.RespondError(w, http.StatusInternalServerError, message, err.Error())
}
