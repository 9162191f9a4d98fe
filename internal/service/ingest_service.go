package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whalewatch/whale-watcher/internal/apperrors"
	"github.com/whalewatch/whale-watcher/internal/config"
	"github.com/whalewatch/whale-watcher/internal/database"
	"github.com/whalewatch/whale-watcher/internal/edgar"
	"github.com/whalewatch/whale-watcher/internal/model"
	"github.com/whalewatch/whale-watcher/internal/parser"
	"github.com/whalewatch/whale-watcher/internal/repository"
)

// maxConcurrentFilers bounds how many filers are ingested in parallel.
// All work for one filer stays on one goroutine: the reconciliation
// delete-then-insert sequence is only safe with a single writer per filing.
const maxConcurrentFilers = 4

// IngestService drives the pipeline per filer: fetch the filing index from
// EDGAR, download and parse new filings, load holdings, and reconcile
// position changes. Each filing's load-and-reconcile sequence runs in its
// own transaction.
type IngestService struct {
	db         *sql.DB
	client     edgar.Client
	parser     *parser.InfoTableParser
	reconciler *ReconciliationService
	cfg        *config.Config
	logger     *zap.Logger
}

// NewIngestService creates a new IngestService with the provided dependencies.
func NewIngestService(
	db *sql.DB,
	client edgar.Client,
	infoTableParser *parser.InfoTableParser,
	reconciler *ReconciliationService,
	cfg *config.Config,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		db:         db,
		client:     client,
		parser:     infoTableParser,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
	}
}

// RunOptions filters and limits a pipeline run.
type RunOptions struct {
	// Whales filters by configured whale name, case-insensitive.
	Whales []string
	// CIKs filters by CIK, with or without leading zeros.
	CIKs []string
	// Limit caps the number of new filings ingested per whale; 0 means
	// no limit.
	Limit int
}

// Run executes the pipeline for every configured whale matching the
// options. Per-filing and per-whale failures are logged and skipped so one
// bad filing never aborts the batch; Run returns an error only when no
// whale matched the filters or every matched whale failed outright.
func (s *IngestService) Run(ctx context.Context, opts RunOptions) error {
	whales, err := s.selectWhales(opts)
	if err != nil {
		return err
	}

	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFilers)

	for _, whale := range whales {
		g.Go(func() error {
			if err := s.processWhale(gctx, whale, opts.Limit); err != nil {
				failed.Add(1)
				s.logger.Error("whale processing failed",
					zap.String("whale", whale.Name),
					zap.String("cik", whale.CIK),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if int(failed.Load()) == len(whales) {
		return fmt.Errorf("all %d whales failed", len(whales))
	}

	return nil
}

// selectWhales resolves the run's target whales from configuration.
// Without filters, all enabled whales are selected; with filters, an
// enabled whale is selected when it matches any name or CIK filter.
func (s *IngestService) selectWhales(opts RunOptions) ([]config.WhaleConfig, error) {
	enabled := s.cfg.EnabledWhales()

	if len(opts.Whales) == 0 && len(opts.CIKs) == 0 {
		if len(enabled) == 0 {
			return nil, apperrors.ErrNoFilersConfigured
		}
		return enabled, nil
	}

	wantCIKs := make(map[string]struct{}, len(opts.CIKs))
	for _, cik := range opts.CIKs {
		normalized, err := config.NormalizeCIK(cik)
		if err != nil {
			return nil, err
		}
		wantCIKs[normalized] = struct{}{}
	}

	selected := []config.WhaleConfig{}
	for _, whale := range enabled {
		if _, ok := wantCIKs[whale.CIK]; ok {
			selected = append(selected, whale)
			continue
		}
		for _, name := range opts.Whales {
			if strings.EqualFold(whale.Name, name) {
				selected = append(selected, whale)
				break
			}
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no whale matched the given filters", apperrors.ErrNoFilersConfigured)
	}

	return selected, nil
}

// processWhale ingests all new filings for one whale, oldest period first
// so each reconciliation sees its predecessor already loaded.
func (s *IngestService) processWhale(ctx context.Context, whale config.WhaleConfig, limit int) error {
	filerRepo := repository.NewFilerRepository(s.db)
	filingRepo := repository.NewFilingRepository(s.db)

	filer, err := filerRepo.GetOrCreate(whale.CIK, whale.Name, whale.Description, whale.Category)
	if err != nil {
		return err
	}

	existing, err := filingRepo.ExistingAccessionNumbers(filer.ID)
	if err != nil {
		return err
	}

	available, err := s.client.Get13FFilings(ctx, whale.CIK, s.cfg.DateRange.StartYear, s.cfg.DateRange.EndYear)
	if err != nil {
		return err
	}

	newFilings := []edgar.FilingMetadata{}
	for _, meta := range available {
		if _, ok := existing[meta.AccessionNumber]; !ok {
			newFilings = append(newFilings, meta)
		}
	}

	if limit > 0 && len(newFilings) > limit {
		newFilings = newFilings[:limit]
	}

	// EDGAR lists most recent first; reverse so predecessors load before
	// their successors.
	for i, j := 0, len(newFilings)-1; i < j; i, j = i+1, j-1 {
		newFilings[i], newFilings[j] = newFilings[j], newFilings[i]
	}

	s.logger.Info("processing whale",
		zap.String("whale", whale.Name),
		zap.String("cik", whale.CIK),
		zap.Int("existing_filings", len(existing)),
		zap.Int("new_filings", len(newFilings)),
	)

	ingested := 0
	for _, meta := range newFilings {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.ingestFiling(ctx, filer, meta); err != nil {
			s.logger.Error("skipping filing after failure",
				zap.String("whale", whale.Name),
				zap.String("accession_number", meta.AccessionNumber),
				zap.Error(err),
			)
			continue
		}
		ingested++
	}

	s.logger.Info("whale processing complete",
		zap.String("whale", whale.Name),
		zap.Int("ingested", ingested),
		zap.Int("skipped", len(newFilings)-ingested),
	)

	return nil
}

// ingestFiling downloads, parses, loads and reconciles one filing inside a
// single transaction. Filings without an information table are stored
// metadata-only with processed left false.
func (s *IngestService) ingestFiling(ctx context.Context, filer model.Filer, meta edgar.FilingMetadata) error {
	body, err := s.client.DownloadInfoTable(ctx, filer.CIK, meta.AccessionNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrInfoTableNotFound) {
			s.logger.Warn("no information table, storing filing metadata only",
				zap.String("accession_number", meta.AccessionNumber),
			)
			return s.storeMetadataOnly(filer, meta)
		}
		return err
	}

	summary, holdings, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return err
	}

	return database.WithTx(s.db, func(tx *sql.Tx) error {
		filingRepo := repository.NewFilingRepository(tx)
		holdingRepo := repository.NewHoldingRepository(tx)

		filing := model.Filing{
			FilerID:         filer.ID,
			AccessionNumber: meta.AccessionNumber,
			FilingDate:      meta.FilingDate,
			PeriodOfReport:  meta.ReportDate,
		}
		if err := filingRepo.Create(&filing); err != nil {
			return err
		}

		if err := holdingRepo.BulkInsert(filing.ID, holdings); err != nil {
			return err
		}

		if err := filingRepo.UpdateSummary(filing.ID, summary.TotalValue, summary.HoldingsCount); err != nil {
			return err
		}

		changes, err := s.reconciler.Reconcile(tx, filing.ID)
		if err != nil {
			return err
		}

		s.logger.Info("stored filing",
			zap.String("accession_number", meta.AccessionNumber),
			zap.Int("holdings", len(holdings)),
			zap.Int("position_changes", changes),
		)

		return nil
	})
}

func (s *IngestService) storeMetadataOnly(filer model.Filer, meta edgar.FilingMetadata) error {
	return database.WithTx(s.db, func(tx *sql.Tx) error {
		filing := model.Filing{
			FilerID:         filer.ID,
			AccessionNumber: meta.AccessionNumber,
			FilingDate:      meta.FilingDate,
			PeriodOfReport:  meta.ReportDate,
		}
		return repository.NewFilingRepository(tx).Create(&filing)
	})
}

// ReconcileFilings recomputes position changes for already-loaded filings:
// the unreconciled ones by default, or every processed filing when all is
// set. Failures are logged and skipped. Returns how many filings were
// reconciled.
func (s *IngestService) ReconcileFilings(all bool) (int, error) {
	filingRepo := repository.NewFilingRepository(s.db)

	var filings []model.Filing
	var err error
	if all {
		filings, err = filingRepo.ListProcessed()
	} else {
		filings, err = filingRepo.ListUnreconciled()
	}
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, filing := range filings {
		err := database.WithTx(s.db, func(tx *sql.Tx) error {
			_, err := s.reconciler.Reconcile(tx, filing.ID)
			return err
		})
		if err != nil {
			s.logger.Error("failed to reconcile filing",
				zap.String("filing_id", filing.ID),
				zap.String("accession_number", filing.AccessionNumber),
				zap.Error(err),
			)
			continue
		}
		reconciled++
	}

	return reconciled, nil
}
