package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/username/flexfolio/src/config"
	"github.com/username/flexfolio/src/database"
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/parsers"
	"github.com/username/flexfolio/src/parsers/flex"
	"github.com/username/flexfolio/src/processors"
	"github.com/username/flexfolio/src/reference"
	"github.com/username/flexfolio/src/services"
	"github.com/username/flexfolio/src/store"
	"github.com/username/flexfolio/src/validators"
)

func main() {
	runImport := flag.Bool("import", false, "scan the import directory and ingest statement files")
	runProcess := flag.Bool("process", false, "derive dividends, costs and sold positions from ingested transactions")
	runValidate := flag.Bool("validate", false, "run integrity and data-quality checks")
	retryPending := flag.Bool("retry-pending", false, "retry external symbol lookup for pending ISINs")
	flag.Parse()

	if !*runImport && !*runProcess && !*runValidate && !*retryPending {
		flag.Usage()
		os.Exit(2)
	}

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Flexfolio starting...")

	database.InitDB(config.Cfg.DatabasePath)
	st := store.New(database.DB)

	tables := reference.Defaults()
	if path := config.Cfg.ReferenceDataPath; path != "" {
		loaded, err := reference.Load(path)
		if err != nil {
			logger.L.Warn("Falling back to built-in reference tables", "path", path, "error", err)
		} else {
			tables = loaded
		}
	}

	ok := true
	if *runImport {
		ok = doImport(st) && ok
	}
	if *runProcess {
		ok = doProcess(st, tables) && ok
	}
	if *runValidate {
		ok = doValidate(st, tables) && ok
	}
	if *retryPending {
		ok = doRetryPending(st, tables) && ok
	}

	if !ok {
		os.Exit(1)
	}
}

func doImport(st *store.Store) bool {
	svc := services.NewImportService(st, config.Cfg)
	summary, err := svc.ImportDirectory()
	if err != nil {
		logger.L.Error("Directory import failed", "error", err)
		color.Red("import failed: %v", err)
		return false
	}

	color.Cyan("Import summary")
	types := make([]string, 0, len(summary.Files))
	for t := range summary.Files {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-20s %d\n", t, summary.Files[t])
	}
	fmt.Printf("  records: %d inserted, %d skipped, %d failed\n",
		summary.Inserted, summary.Skipped, summary.Failed)
	if summary.Errors > 0 {
		color.Yellow("  %d files failed and were left in place", summary.Errors)
	}
	return true
}

func doProcess(st *store.Store, tables *reference.Tables) bool {
	passes := []struct {
		name string
		proc processors.DerivedRecordProcessor
	}{
		{"dividends", processors.NewDividendProcessor(st)},
		{"costs", processors.NewCostProcessor(st)},
		{"sold positions", processors.NewSoldPositionProcessor(st, tables)},
		{"fx enrichment", processors.NewFxEnrichment(st)},
	}

	ok := true
	color.Cyan("Derivation passes")
	for _, p := range passes {
		summary, err := p.proc.Run()
		if err != nil {
			logger.L.Error("Derivation pass failed", "pass", p.name, "error", err)
			color.Red("  %-16s failed: %v", p.name, err)
			ok = false
			continue
		}
		fmt.Printf("  %-16s %s\n", p.name, summary)
	}

	// Resolution runs after derivation so newly ingested instruments without
	// a symbol either resolve now or park as pending for -retry-pending.
	lookup := services.NewLookupClient(config.Cfg.LookupBaseURL)
	resolver := services.NewSymbolResolver(st, tables, lookup, config.Cfg.LookupRateInterval)
	resolved, pending, unmappable, err := resolver.ResolveMissing(context.Background())
	if err != nil {
		logger.L.Error("Symbol resolution pass failed", "error", err)
		color.Red("  %-16s failed: %v", "symbols", err)
		return false
	}
	fmt.Printf("  %-16s resolved=%d pending=%d unmappable=%d\n", "symbols", resolved, pending, unmappable)
	return ok
}

func doValidate(st *store.Store, tables *reference.Tables) bool {
	ok := true

	if reports, found := checkActionStatements(st); found {
		color.Cyan("Integrity reports")
		for _, r := range reports {
			printReport(r)
			if r.Status == validators.StatusFail {
				ok = false
			}
		}
	} else {
		fmt.Println("No archived actions statements found; skipping reconciliation.")
	}

	color.Cyan("Dividend quality")
	findings, suggestions, err := validators.NewDividendValidator(st, tables).Validate()
	if err != nil {
		logger.L.Error("Dividend validation failed", "error", err)
		return false
	}
	printFindings(findings)
	currencies := make([]string, 0, len(suggestions))
	for c := range suggestions {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	for _, c := range currencies {
		color.Yellow("  suggest raising %s threshold to %.2f", c, suggestions[c])
	}

	color.Cyan("Schema integrity")
	schemaFindings, err := validators.NewSchemaIntegrity(st).Validate()
	if err != nil {
		logger.L.Error("Schema validation failed", "error", err)
		return false
	}
	printFindings(schemaFindings)
	for _, f := range schemaFindings {
		if f.Severity == validators.SeverityError {
			ok = false
		}
	}

	color.Cyan("Data gaps")
	analyzer := validators.NewDataGapAnalyzer(st)
	if gaps, err := analyzer.DividendGaps(); err != nil {
		logger.L.Error("Dividend gap analysis failed", "error", err)
		ok = false
	} else {
		for _, g := range gaps {
			fmt.Printf("  dividend gap %s: %d days (%s to %s)\n",
				g.Identifier, g.Days, g.From.Format("2006-01-02"), g.To.Format("2006-01-02"))
		}
	}
	if gaps, err := analyzer.SnapshotGaps(); err != nil {
		logger.L.Error("Snapshot gap analysis failed", "error", err)
		ok = false
	} else {
		for _, g := range gaps {
			fmt.Printf("  snapshot gap: %d days (%s to %s)\n",
				g.Days, g.From.Format("2006-01-02"), g.To.Format("2006-01-02"))
		}
	}
	if chunks, err := analyzer.SnapshotCoverage(); err != nil {
		logger.L.Error("Snapshot coverage analysis failed", "error", err)
		ok = false
	} else {
		for _, c := range chunks {
			fmt.Printf("  coverage %s to %s: %.0f%% (%d of %d snapshots)\n",
				c.From.Format("2006-01-02"), c.To.Format("2006-01-02"), c.Percent, c.Actual, c.Expected)
		}
	}

	return ok
}

func doRetryPending(st *store.Store, tables *reference.Tables) bool {
	lookup := services.NewLookupClient(config.Cfg.LookupBaseURL)
	resolver := services.NewSymbolResolver(st, tables, lookup, config.Cfg.LookupRateInterval)
	resolved, stillPending, err := resolver.RetryPending(context.Background())
	if err != nil {
		logger.L.Error("Pending ISIN retry failed", "error", err)
		color.Red("retry failed: %v", err)
		return false
	}
	fmt.Printf("Pending retry: %d resolved, %d still pending\n", resolved, stillPending)

	if resolved > 0 {
		recomputed, err := st.RecomputeSoldPositionKeys(func(symbol string) string {
			isin, err := st.FindISINForSymbolFromDividends(symbol)
			if err != nil {
				return ""
			}
			return isin
		})
		if err != nil {
			logger.L.Error("Sold-position key recompute failed", "error", err)
			return false
		}
		if recomputed > 0 {
			fmt.Printf("Recomputed %d sold-position keys\n", recomputed)
		}
	}
	return true
}

// checkActionStatements reconciles every archived actions statement against
// the store. Imported actions files live in the archive directory, so the
// validate step re-reads them from there.
func checkActionStatements(st *store.Store) ([]validators.Report, bool) {
	entries, err := os.ReadDir(config.Cfg.ArchiveDir)
	if err != nil {
		return nil, false
	}

	checker := validators.NewIntegrityChecker(st)
	parser := flex.NewActionsParser()

	var out []validators.Report
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		path := filepath.Join(config.Cfg.ArchiveDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.L.Warn("Could not read archived statement", "file", e.Name(), "error", err)
			continue
		}
		if parsers.Classify(string(data)) != parsers.TypeActions {
			continue
		}
		report, err := parser.ParseActions(bytes.NewReader(data), parsers.ParseContext{Broker: flex.Broker})
		if err != nil {
			logger.L.Warn("Could not parse archived actions statement", "file", e.Name(), "error", err)
			continue
		}
		reports, err := checker.Check(report)
		if err != nil {
			logger.L.Error("Integrity check failed", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, reports...)
	}
	return out, len(out) > 0
}

func printReport(r validators.Report) {
	line := fmt.Sprintf("  %-26s %-4s %s", r.Name, r.Status, r.Message)
	switch r.Status {
	case validators.StatusFail:
		color.Red("%s", line)
	case validators.StatusWarn:
		color.Yellow("%s", line)
	default:
		fmt.Println(line)
	}
	for _, d := range r.Details {
		fmt.Printf("      %s\n", d)
	}
}

func printFindings(findings []validators.Finding) {
	if len(findings) == 0 {
		fmt.Println("  no issues")
		return
	}
	for _, f := range findings {
		line := fmt.Sprintf("  [%s] %s %s %s", f.Severity, f.Check, f.ISIN, f.Message)
		switch f.Severity {
		case validators.SeverityError:
			color.Red("%s", line)
		case validators.SeverityWarn:
			color.Yellow("%s", line)
		default:
			fmt.Println(line)
		}
	}
}
