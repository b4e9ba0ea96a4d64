package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/finassist/brokersync/internal/broker"
	"github.com/finassist/brokersync/internal/config"
	"github.com/finassist/brokersync/internal/database"
	"github.com/finassist/brokersync/internal/domain"
	"github.com/finassist/brokersync/internal/executor"
	"github.com/finassist/brokersync/internal/reconcile"
	"github.com/finassist/brokersync/internal/runlog"
	"github.com/finassist/brokersync/internal/safety"
	"github.com/finassist/brokersync/internal/sheet"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "brokersync",
		Usage: "import broker CSV exports and sync the portfolio sheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "broker", Aliases: []string{"b"}, Usage: "broker export format"},
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "parse the latest exports, reconcile against the sheet, and apply",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "positions", Usage: "positions export file (default: latest discovered)"},
					&cli.StringFlag{Name: "balances", Usage: "balances export file (default: latest discovered)"},
					&cli.StringFlag{Name: "spreadsheet", Usage: "destination spreadsheet ID"},
					&cli.BoolFlag{Name: "dry-run", Usage: "evaluate and report without writing"},
				},
				Action: runSync,
			},
			{
				Name:   "validate",
				Usage:  "check which candidate export files the broker's parser accepts",
				Action: runValidate,
			},
			{
				Name:   "brokers",
				Usage:  "list supported brokers",
				Action: runBrokers,
			},
			{
				Name:  "runs",
				Usage: "list recent sync runs from the audit log",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: runRuns,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func brokerType(c *cli.Context, cfg config.Config) domain.BrokerType {
	if b := c.String("broker"); b != "" {
		return domain.BrokerType(b)
	}
	return domain.BrokerType(cfg.Broker)
}

func runSync(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()

	parser, err := broker.ForBroker(brokerType(c, cfg))
	if err != nil {
		return err
	}

	positionsPath := c.String("positions")
	if positionsPath == "" {
		positionsPath, err = broker.FindLatest(cfg.PositionsDirs, parser.FilePatterns().Positions)
		if err != nil {
			return fmt.Errorf("locating positions export: %w", err)
		}
	}
	balancesPath := c.String("balances")
	if balancesPath == "" {
		balancesPath, err = broker.FindLatest(cfg.BalancesDirs, parser.FilePatterns().Balances)
		if err != nil {
			return fmt.Errorf("locating balances export: %w", err)
		}
	}
	slog.Info("importing broker exports", "positions", positionsPath, "balances", balancesPath)

	positions, err := parser.ParsePositions(positionsPath)
	if err != nil {
		return err
	}
	balances, err := parser.ParseBalances(balancesPath)
	if err != nil {
		return err
	}
	data := domain.ParsedPortfolioData{
		Broker:     brokerType(c, cfg),
		Positions:  positions,
		Balances:   balances,
		ExportDate: broker.ExportDate(positionsPath),
	}

	spreadsheetID := c.String("spreadsheet")
	if spreadsheetID == "" {
		spreadsheetID = cfg.SpreadsheetID
	}
	if spreadsheetID == "" {
		return fmt.Errorf("no spreadsheet ID: set SPREADSHEET_ID or pass --spreadsheet")
	}

	layout := sheet.DefaultLayout()
	client, err := sheet.NewClient(ctx, spreadsheetID, cfg.GoogleCredentialsJSON, layout)
	if err != nil {
		return err
	}

	baseline, err := client.ReadSnapshot(ctx)
	if err != nil {
		return err
	}

	set := reconcile.Reconcile(data, baseline)
	plan := safety.Evaluate(set)

	if c.Bool("dry-run") {
		printPlan(plan)
		return nil
	}

	result, applyErr := executor.NewService(client, layout).Apply(ctx, plan, baseline)
	fmt.Print(result.Summary())

	if err := saveRun(ctx, cfg, data.Broker, result); err != nil {
		slog.Warn("failed to record run in audit log", "error", err)
	}

	return applyErr
}

func printPlan(plan safety.Plan) {
	fmt.Println("Dry run — planned decisions:")
	for _, action := range plan.Actions {
		fmt.Printf("  %-5s %-6s %s\n", action.Decision, action.Change.Symbol, action.Reason)
	}
	for _, reason := range plan.BlockReasons {
		fmt.Printf("  BLOCK %s\n", reason)
	}
	for _, note := range plan.FlagNotes {
		fmt.Printf("  FLAG  %s\n", note)
	}
	if plan.Blocked() {
		fmt.Println("Run would be blocked; no writes would be issued.")
	}
}

func saveRun(ctx context.Context, cfg config.Config, b domain.BrokerType, result executor.Result) error {
	if cfg.DatabaseURL == "" {
		return nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		return err
	}

	summary, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = runlog.NewPgRepository(pool).Save(ctx, runlog.Run{
		RanAt:   time.Now().UTC(),
		Broker:  string(b),
		Blocked: result.Blocked,
		Summary: summary,
	})
	return err
}

func runValidate(c *cli.Context) error {
	cfg := config.Load()
	parser, err := broker.ForBroker(brokerType(c, cfg))
	if err != nil {
		return err
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		p, err := broker.FindLatest(cfg.PositionsDirs, parser.FilePatterns().Positions)
		if err != nil {
			return fmt.Errorf("no export files found to validate: %w", err)
		}
		paths = []string{p}
	}

	for _, path := range paths {
		if parser.ValidateFormat(path) {
			fmt.Printf("ok    %s\n", path)
		} else {
			fmt.Printf("SKIP  %s (not a recognized positions export)\n", path)
		}
	}
	return nil
}

func runBrokers(c *cli.Context) error {
	for _, b := range broker.Supported() {
		fmt.Println(b)
	}
	return nil
}

func runRuns(c *cli.Context) error {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("audit log requires DATABASE_URL")
	}

	pool, err := database.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	runs, err := runlog.NewPgRepository(pool).List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, run := range runs {
		status := "applied"
		if run.Blocked {
			status = "BLOCKED"
		}
		fmt.Printf("%4d  %s  %-10s %s\n", run.ID, run.RanAt.Format(time.RFC3339), run.Broker, status)
	}
	return nil
}
