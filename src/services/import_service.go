package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/username/flexfolio/src/config"
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/models"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/parsers/flex"
	"github.com/username/flexfolio/src/parsers/nordnet"
	"github.com/username/flexfolio/src/store"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ImportSummary tallies one directory scan. Files counts scanned files per
// statement type, with unrecognized files under "skipped" and failing files
// under "errors"; the remaining fields count record-level outcomes, where
// skipped records are idempotency hits, not errors.
type ImportSummary struct {
	Files    map[string]int
	Inserted int
	Skipped  int
	Failed   int
	Errors   int
}

func newImportSummary() *ImportSummary {
	return &ImportSummary{Files: make(map[string]int)}
}

func (s *ImportSummary) String() string {
	return fmt.Sprintf("files=%v inserted=%d skipped=%d failed=%d errors=%d",
		s.Files, s.Inserted, s.Skipped, s.Failed, s.Errors)
}

// ImportService scans a drop directory of unlabeled broker exports, routes
// each file to its parser and upserts the result. A file that fails is
// logged and tallied; the scan never aborts because of one bad file.
type ImportService struct {
	store *store.Store

	importDir        string
	archiveDir       string
	archiveProcessed bool
	maxFileBytes     int64

	flexTrades     *flex.TradesParser
	flexDividends  *flex.DividendsParser
	flexPositions  *flex.PositionsParser
	flexActions    *flex.ActionsParser
	flexCashReport *flex.CashReportParser
	nordnet        *nordnet.Parser
}

func NewImportService(s *store.Store, cfg *config.AppConfig) *ImportService {
	return &ImportService{
		store:            s,
		importDir:        cfg.ImportDir,
		archiveDir:       cfg.ArchiveDir,
		archiveProcessed: cfg.ArchiveProcessed,
		maxFileBytes:     cfg.MaxImportFileBytes,
		flexTrades:       flex.NewTradesParser(),
		flexDividends:    flex.NewDividendsParser(),
		flexPositions:    flex.NewPositionsParser(),
		flexActions:      flex.NewActionsParser(),
		flexCashReport:   flex.NewCashReportParser(),
		nordnet:          nordnet.NewParser(),
	}
}

// ImportDirectory processes every *.csv in the import directory in sorted
// filename order. Successfully processed files move to the archive directory
// when archiving is enabled; unrecognized and failed files stay put so they
// can be inspected.
func (s *ImportService) ImportDirectory() (*ImportSummary, error) {
	entries, err := os.ReadDir(s.importDir)
	if err != nil {
		return nil, fmt.Errorf("reading import directory %s: %w", s.importDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	summary := newImportSummary()
	for _, name := range names {
		path := filepath.Join(s.importDir, name)
		stype, err := s.ImportFile(path, summary)
		if err != nil {
			logger.L.Error("Import failed for file", "file", name, "error", err)
			summary.Files["errors"]++
			summary.Errors++
			continue
		}
		key := string(stype)
		if stype == parsers.TypeUnknown {
			key = "skipped"
		}
		summary.Files[key]++
		if stype != parsers.TypeUnknown && s.archiveProcessed {
			s.archive(path, name)
		}
	}

	logger.L.Info("Import scan finished", "dir", s.importDir, "summary", summary.String())
	return summary, nil
}

// ImportFile routes one export through classification, parsing and storage.
// The returned statement type is what the router decided, unknown included.
func (s *ImportService) ImportFile(path string, summary *ImportSummary) (parsers.StatementType, error) {
	raw, err := s.readFile(path)
	if err != nil {
		return parsers.TypeUnknown, err
	}
	data, err := decodeExport(raw)
	if err != nil {
		return parsers.TypeUnknown, err
	}

	stype := parsers.Classify(string(data))
	logger.L.Info("Classified statement file", "file", filepath.Base(path), "type", stype)

	ctx := parsers.ParseContext{Broker: flex.Broker}

	switch stype {
	case parsers.TypeTrades:
		parser := parsers.TransactionParser(s.flexTrades)
		if isNordnetExport(data) {
			parser = s.nordnet
			ctx.Broker = nordnet.Broker
		}
		txs, err := parser.Parse(bytes.NewReader(data), ctx)
		if err != nil {
			return stype, err
		}
		s.ingestTransactions(txs, summary)

	case parsers.TypeDividends:
		txs, err := s.flexDividends.Parse(bytes.NewReader(data), ctx)
		if err != nil {
			return stype, err
		}
		s.ingestTransactions(txs, summary)

	case parsers.TypePortfolio:
		if err := s.ingestSnapshot(data, ctx, summary); err != nil {
			return stype, err
		}

	case parsers.TypeActions:
		report, err := s.flexActions.ParseActions(bytes.NewReader(data), ctx)
		if err != nil {
			return stype, err
		}
		for _, action := range flex.CorporateActions(report) {
			s.tally(s.store.InsertCorporateAction(action), summary, "corporate action", action.ExternalID)
		}

	case parsers.TypeCashReport:
		cash, err := s.flexCashReport.ParseCashReport(bytes.NewReader(data), ctx)
		if err != nil {
			return stype, err
		}
		logger.L.Info("Cash report parsed",
			"date", cash.ReportDate.Format("2006-01-02"),
			"startingCash", cash.StartingCash, "endingCash", cash.EndingCash,
			"deposits", cash.Deposits, "withdrawals", cash.Withdrawals)

	case parsers.TypeActivityStatement:
		// Key/value metadata export; nothing to store.
		logger.L.Info("Activity statement noted", "file", filepath.Base(path))

	default:
		logger.L.Warn("Unrecognized statement layout, leaving file in place", "file", filepath.Base(path))
	}

	return stype, nil
}

// ingestTransactions upserts canonical transactions plus their typed
// projections. Instruments are created on first ISIN sighting; FX rates
// carried by a row are stored for later enrichment of rows that lack one.
func (s *ImportService) ingestTransactions(txs []models.CanonicalTransaction, summary *ImportSummary) {
	for _, tx := range txs {
		if tx.ISIN != "" {
			if _, err := s.store.EnsureInstrument(tx.ISIN, tx.Symbol, tx.Currency, tx.Aux.Exchange, ""); err != nil {
				logger.L.Error("Failed to ensure instrument", "isin", tx.ISIN, "error", err)
			}
		}

		out := s.store.InsertTransaction(tx)
		s.tally(out, summary, "transaction", tx.ExternalID)
		if out.Status != store.StatusInserted {
			continue
		}

		if tx.Type.IsTrade() {
			s.tally(s.store.InsertTrade(tradeFromCanonical(tx)), summary, "trade", tx.ExternalID)
		}
		if tx.Type.IsCashFlow() {
			s.tally(s.store.InsertCashFlow(cashFlowFromCanonical(tx)), summary, "cash flow", tx.ExternalID)
		}
		if tx.FxRate != nil && *tx.FxRate != 0 && tx.Currency != "" && tx.Currency != "EUR" {
			s.store.UpsertFxRate(tx.Date, tx.Currency, *tx.FxRate)
		}
	}
}

// ingestSnapshot stores a portfolio export as one dated snapshot. A second
// delivery of the same broker/date is skipped wholesale; the snapshot and
// its positions commit in a single transaction.
func (s *ImportService) ingestSnapshot(data []byte, ctx parsers.ParseContext, summary *ImportSummary) error {
	snapshotID := uuid.NewString()
	ctx.SnapshotID = snapshotID

	positions, err := s.flexPositions.ParsePositions(bytes.NewReader(data), ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		logger.L.Warn("Portfolio export contained no positions")
		return nil
	}

	date := positions[0].Date
	exists, err := s.store.SnapshotExists(ctx.Broker, date)
	if err != nil {
		return err
	}
	if exists {
		logger.L.Info("Snapshot already stored, skipping",
			"broker", ctx.Broker, "date", date.Format("2006-01-02"))
		summary.Skipped += len(positions)
		return nil
	}

	for _, p := range positions {
		if p.ISIN == "" {
			continue
		}
		if _, err := s.store.EnsureInstrument(p.ISIN, p.Symbol, p.Currency, p.Exchange, ""); err != nil {
			logger.L.Error("Failed to ensure instrument from position", "isin", p.ISIN, "error", err)
		}
	}

	snap := models.PortfolioSnapshot{ID: snapshotID, SnapshotDate: date, Broker: ctx.Broker}
	insertedCount, err := s.store.InsertSnapshotWithPositions(snap, positions)
	if err != nil {
		return err
	}
	summary.Inserted += insertedCount
	summary.Skipped += len(positions) - insertedCount
	logger.L.Info("Snapshot stored", "id", snapshotID,
		"date", date.Format("2006-01-02"), "positions", insertedCount)
	return nil
}

func (s *ImportService) tally(out store.Outcome, summary *ImportSummary, kind, externalID string) {
	switch out.Status {
	case store.StatusInserted:
		summary.Inserted++
	case store.StatusSkipped:
		summary.Skipped++
		logger.L.Debug("Skipped existing record", "kind", kind, "externalId", externalID, "reason", out.Reason)
	case store.StatusFailed:
		summary.Failed++
		logger.L.Error("Failed to store record", "kind", kind, "externalId", externalID, "reason", out.Reason)
	}
}

func (s *ImportService) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if s.maxFileBytes > 0 && info.Size() > s.maxFileBytes {
		return nil, fmt.Errorf("file %s exceeds size limit (%d > %d bytes)",
			filepath.Base(path), info.Size(), s.maxFileBytes)
	}
	return os.ReadFile(path)
}

func (s *ImportService) archive(path, name string) {
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		logger.L.Error("Failed to create archive directory", "dir", s.archiveDir, "error", err)
		return
	}
	dest := filepath.Join(s.archiveDir, name)
	if err := os.Rename(path, dest); err != nil {
		logger.L.Error("Failed to archive processed file", "file", name, "error", err)
		return
	}
	logger.L.Info("Archived processed file", "file", name, "dest", dest)
}

// decodeExport normalizes a raw export to UTF-8 so classification and
// parsing see one encoding. Exports arrive either UTF-16LE with a BOM or
// plain UTF-8.
func decodeExport(raw []byte) ([]byte, error) {
	if len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return nil, fmt.Errorf("decoding UTF-16 export: %w", err)
		}
		return decoded, nil
	}
	return bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), nil
}

// isNordnetExport spots the Finnish tab-separated dialect by its header
// vocabulary.
func isNordnetExport(data []byte) bool {
	return bytes.Contains(data, []byte("Tapahtumatyyppi"))
}

func tradeFromCanonical(tx models.CanonicalTransaction) models.Trade {
	var quantity float64
	if tx.Quantity != nil {
		quantity = *tx.Quantity
	}
	return models.Trade{
		ExternalID:  tx.ExternalID,
		Broker:      tx.Broker,
		Type:        tx.Type,
		ISIN:        tx.ISIN,
		Symbol:      tx.Symbol,
		CompanyName: tx.CompanyName,
		TradeDate:   tx.Date,
		Quantity:    quantity,
		Price:       tx.Price,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Commission:  tx.Commission,
		RealizedPnl: tx.RealizedPnl,
		FxRate:      tx.FxRate,
		Aux:         tx.Aux,
	}
}

func cashFlowFromCanonical(tx models.CanonicalTransaction) models.CashFlow {
	var amount float64
	if tx.Amount != nil {
		amount = *tx.Amount
	}
	return models.CashFlow{
		ExternalID:  tx.ExternalID,
		Broker:      tx.Broker,
		FlowType:    tx.Type,
		Date:        tx.Date,
		Amount:      amount,
		Currency:    tx.Currency,
		Description: tx.Description,
	}
}
