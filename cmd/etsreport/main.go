package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin"
	"kastelo.dev/etslog"
	"kastelo.dev/etslog/config"
	"kastelo.dev/etslog/excel"
	"kastelo.dev/etslog/store"
	"kastelo.dev/etslog/table"
)

var (
	configFile = kingpin.Flag("config", "Configuration file (YAML)").String()
	logLevel   = kingpin.Flag("log-level", "Log level (debug, info, warn, error)").String()

	cmdTable       = kingpin.Command("table", "Write the flat CSV table")
	cmdTableLog    = cmdTable.Flag("log", "Tester log file").Required().String()
	cmdTableOutput = cmdTable.Flag("output", "Output file").String()

	cmdWorkbook       = kingpin.Command("workbook", "Write the Excel workbook")
	cmdWorkbookLog    = cmdWorkbook.Flag("log", "Tester log file").Required().String()
	cmdWorkbookOutput = cmdWorkbook.Flag("output", "Output file").String()

	cmdReport    = kingpin.Command("report", "Write both the CSV table and the Excel workbook")
	cmdReportLog = cmdReport.Flag("log", "Tester log file").Required().String()

	cmdStore       = kingpin.Command("store", "Save the results in a database")
	cmdStoreLog    = cmdStore.Flag("log", "Tester log file").Required().String()
	cmdStoreDriver = cmdStore.Flag("driver", "Database driver").Enum(store.DriverSQLite, store.DriverPostgres)
	cmdStoreDSN    = cmdStore.Flag("dsn", "Database connection string").String()

	cmdLayout    = kingpin.Command("layout", "Show the site and test layout of a log")
	cmdLayoutLog = cmdLayout.Flag("log", "Tester log file").Required().String()

	cmdDiff        = kingpin.Command("diff", "Show the differences between the tables of two logs")
	cmdDiffLog     = cmdDiff.Flag("log", "Tester log file").Required().String()
	cmdDiffAgainst = cmdDiff.Flag("against", "Tester log file to compare with").Required().String()
)

func main() {
	cmd := kingpin.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Error loading configuration", "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		slog.Error("Error setting up logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	switch cmd {
	case cmdTable.FullCommand():
		err = writeTable(cfg, *cmdTableLog, *cmdTableOutput)
	case cmdWorkbook.FullCommand():
		err = writeWorkbook(cfg, *cmdWorkbookLog, *cmdWorkbookOutput)
	case cmdReport.FullCommand():
		err = writeReport(cfg, *cmdReportLog)
	case cmdStore.FullCommand():
		err = saveResults(context.Background(), cfg, *cmdStoreLog, *cmdStoreDriver, *cmdStoreDSN)
	case cmdLayout.FullCommand():
		err = showLayout(cfg, *cmdLayoutLog)
	case cmdDiff.FullCommand():
		err = showDiff(cfg, *cmdDiffLog, *cmdDiffAgainst)
	}
	if err != nil {
		slog.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// load parses a log and derives its layout with the configured options.
func load(cfg *config.Config, path string) (*etslog.Results, etslog.Layout, error) {
	res, err := etslog.ParseFile(path, etslog.Options{
		Encoding:       cfg.Input.Encoding,
		StrictPassFail: cfg.Input.StrictPassFail,
		StrictQuotes:   cfg.Input.StrictQuotes,
		Logger:         slog.Default(),
	})
	if err != nil {
		return nil, etslog.Layout{}, err
	}
	lay, err := etslog.DeriveLayout(res, etslog.LayoutOptions{
		CheckRequirementIDs: cfg.Input.CheckRequirementIDs,
	})
	if err != nil {
		return nil, etslog.Layout{}, err
	}
	slog.Debug("Parsed log", "path", path, "runs", lay.Runs, "sites", lay.SiteCount, "tests", lay.TestCount)
	return res, lay, nil
}

func writeTable(cfg *config.Config, logPath, output string) error {
	if output == "" {
		output = cfg.Output.CSV
	}
	res, lay, err := load(cfg, logPath)
	if err != nil {
		return err
	}
	return table.WriteFile(output, res, lay, table.Options{BOM: cfg.Output.BOM})
}

func writeWorkbook(cfg *config.Config, logPath, output string) error {
	if output == "" {
		output = cfg.Output.XLSX
	}
	res, lay, err := load(cfg, logPath)
	if err != nil {
		return err
	}
	return excel.WriteFile(output, res, lay, cfg.Workbook)
}

func writeReport(cfg *config.Config, logPath string) error {
	res, lay, err := load(cfg, logPath)
	if err != nil {
		return err
	}
	if err := table.WriteFile(cfg.Output.CSV, res, lay, table.Options{BOM: cfg.Output.BOM}); err != nil {
		return err
	}
	return excel.WriteFile(cfg.Output.XLSX, res, lay, cfg.Workbook)
}

func saveResults(ctx context.Context, cfg *config.Config, logPath, driver, dsn string) error {
	if driver == "" {
		driver = cfg.Database.Driver
	}
	if dsn == "" {
		dsn = cfg.Database.DSN
	}
	res, lay, err := load(cfg, logPath)
	if err != nil {
		return err
	}

	s, err := store.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	id, err := s.Save(ctx, res, lay)
	if err != nil {
		return err
	}
	slog.Info("Saved results", "path", logPath, "driver", driver, "import", id, "runs", lay.Runs)
	return nil
}

func showLayout(cfg *config.Config, logPath string) error {
	res, lay, err := load(cfg, logPath)
	if err != nil {
		return err
	}
	fmt.Printf("%-14s %s\n", "Log", res.Path)
	fmt.Printf("%-14s %d\n", "Runs", lay.Runs)
	fmt.Printf("%-14s %d %v\n", "Sites", lay.SiteCount, lay.Sites)
	fmt.Printf("%-14s %d\n", "Tests", lay.TestCount)
	fmt.Printf("%-14s %d\n", "Requirements", lay.RequirementCount)
	return nil
}

func showDiff(cfg *config.Config, logPath, againstPath string) error {
	res, lay, err := load(cfg, logPath)
	if err != nil {
		return err
	}
	other, otherLay, err := load(cfg, againstPath)
	if err != nil {
		return err
	}
	diff, err := table.Diff("table.csv", table.Rows(other, otherLay), table.Rows(res, lay))
	if err != nil {
		return err
	}
	if diff == "" {
		slog.Info("Tables are identical", "log", logPath, "against", againstPath)
		return nil
	}
	fmt.Print(diff)
	return nil
}
