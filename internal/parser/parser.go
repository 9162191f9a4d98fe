// Package parser decodes 13F-HR information table XML documents into
// aggregated holdings.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/model"
)

// Summary holds the aggregate statistics for one parsed filing.
type Summary struct {
	TotalValue    int64
	HoldingsCount int64
}

// infoTableDocument mirrors the EDGAR information table schema
// (namespace http://www.sec.gov/edgar/document/thirteenf/informationtable).
// encoding/xml matches elements by local name, so namespace prefixes in the
// source document are irrelevant.
type infoTableDocument struct {
	XMLName xml.Name         `xml:"informationTable"`
	Entries []infoTableEntry `xml:"infoTable"`
}

type infoTableEntry struct {
	NameOfIssuer          string `xml:"nameOfIssuer"`
	CUSIP                 string `xml:"cusip"`
	Value                 string `xml:"value"`
	SharesOrPrincipal     string `xml:"shrsOrPrnAmt>sshPrnamt"`
	InvestmentDiscretion  string `xml:"investmentDiscretion"`
	VotingAuthoritySole   string `xml:"votingAuthority>Sole"`
	VotingAuthorityShared string `xml:"votingAuthority>Shared"`
	VotingAuthorityNone   string `xml:"votingAuthority>None"`
}

// InfoTableParser parses 13F information table documents.
type InfoTableParser struct {
	logger *zap.Logger
}

// NewInfoTableParser creates a parser that logs skipped entries through the
// provided logger.
func NewInfoTableParser(logger *zap.Logger) *InfoTableParser {
	return &InfoTableParser{logger: logger}
}

// Parse decodes an information table document and aggregates its entries by
// CUSIP: a document may list the same security several times (different
// discretion or manager splits), and the result carries at most one holding
// per CUSIP with shares, value and voting splits summed. Entries missing a
// CUSIP, issuer name, value or share count are skipped with a warning.
//
// Downstream reconciliation relies on the per-CUSIP uniqueness guarantee
// established here and performs no deduplication of its own.
func (p *InfoTableParser) Parse(r io.Reader) (Summary, []model.Holding, error) {
	var doc infoTableDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Summary{}, nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err)
	}

	byCUSIP := make(map[string]int)
	holdings := []model.Holding{}

	for _, entry := range doc.Entries {
		cusip := strings.TrimSpace(entry.CUSIP)
		name := strings.TrimSpace(entry.NameOfIssuer)

		value, valueErr := parseAmount(entry.Value)
		shares, sharesErr := parseAmount(entry.SharesOrPrincipal)

		if cusip == "" || name == "" || valueErr != nil || sharesErr != nil {
			p.logger.Warn("skipping info table entry with missing required fields",
				zap.String("cusip", cusip),
				zap.String("issuer", name),
			)
			continue
		}

		votingSole := parseOptionalAmount(entry.VotingAuthoritySole)
		votingShared := parseOptionalAmount(entry.VotingAuthorityShared)
		votingNone := parseOptionalAmount(entry.VotingAuthorityNone)

		if i, ok := byCUSIP[cusip]; ok {
			holdings[i].Shares += shares
			holdings[i].MarketValue += value
			holdings[i].VotingAuthoritySole += votingSole
			holdings[i].VotingAuthorityShared += votingShared
			holdings[i].VotingAuthorityNone += votingNone
			continue
		}

		byCUSIP[cusip] = len(holdings)
		holdings = append(holdings, model.Holding{
			CUSIP:                 cusip,
			SecurityName:          name,
			Shares:                shares,
			MarketValue:           value,
			VotingAuthoritySole:   votingSole,
			VotingAuthorityShared: votingShared,
			VotingAuthorityNone:   votingNone,
			Discretion:            strings.TrimSpace(entry.InvestmentDiscretion),
		})
	}

	var totalValue int64
	for _, h := range holdings {
		totalValue += h.MarketValue
	}

	summary := Summary{
		TotalValue:    totalValue,
		HoldingsCount: int64(len(holdings)),
	}

	p.logger.Info("parsed information table",
		zap.Int64("holdings", summary.HoldingsCount),
		zap.Int64("total_value", summary.TotalValue),
	)

	return summary, holdings, nil
}

func parseAmount(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// parseOptionalAmount returns 0 for empty or unparseable optional fields,
// matching how absent voting authority splits are treated.
func parseOptionalAmount(s string) int64 {
	n, err := parseAmount(s)
	if err != nil {
		return 0
	}
	return n
}
