package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"scope-quote/db/clickhouse"
	"scope-quote/db/postgres"
	"scope-quote/internal/config"
)

// =============================================================================
// AUDIT COMMAND
// =============================================================================

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Inspect persisted audit trails",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the recorded decisions of one trail",
				ArgsUsage: "<trail-id | request-id>",
				Flags:     []cli.Flag{formatFlag()},
				Action:    runAuditShow,
			},
			{
				Name:  "stats",
				Usage: "Summarize recent estimation runs",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "since",
						Value: 24 * time.Hour,
						Usage: "Look-back window",
					},
					formatFlag(),
				},
				Action: runAuditStats,
			},
		},
	}
}

func runAuditShow(c *cli.Context) error {
	trailID := trailIDFor(c.Args().First())
	if trailID == "" {
		return errors.New("trail id is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.ClickHouse.Enabled {
		return errAuditDisabled
	}
	ctx := context.Background()
	st, err := openRecordStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	actions, err := st.audit.ListActions(ctx, trailID)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return fmt.Errorf("audit trail %q not found", trailID)
	}
	if c.String("format") == "json" {
		return outputJSONValue(c.App.Writer, actions)
	}
	return outputTrail(c.App.Writer, trailID, actions)
}

func runAuditStats(c *cli.Context) error {
	since := c.Duration("since")
	if since <= 0 {
		return errors.New("--since must be positive")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.ClickHouse.Enabled {
		return errAuditDisabled
	}
	ctx := context.Background()
	st, err := openRecordStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.audit.Stats(ctx, time.Now().Add(-since))
	if err != nil {
		return err
	}
	if c.String("format") == "json" {
		return outputJSONValue(c.App.Writer, stats)
	}
	return outputStats(c.App.Writer, since, stats)
}

// trailIDFor accepts either a trail id or the request id it was recorded for.
func trailIDFor(arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.HasPrefix(arg, "audit-") {
		return arg
	}
	return "audit-" + arg
}

// =============================================================================
// QUOTES COMMAND
// =============================================================================

func quotesCommand() *cli.Command {
	return &cli.Command{
		Name:  "quotes",
		Usage: "Inspect stored draft quotes",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the newest draft quotes",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Maximum number of quotes (1-100)",
					},
					formatFlag(),
				},
				Action: runQuotesList,
			},
			{
				Name:      "show",
				Usage:     "Print one draft quote as JSON",
				ArgsUsage: "<quote-id>",
				Action:    runQuotesShow,
			},
		},
	}
}

func runQuotesList(c *cli.Context) error {
	limit := c.Int("limit")
	if limit < 1 || limit > 100 {
		return errors.New("--limit must be between 1 and 100")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled {
		return errQuotesDisabled
	}
	ctx := context.Background()
	st, err := openRecordStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	drafts, err := st.quotes.ListDrafts(ctx, limit)
	if err != nil {
		return err
	}
	if c.String("format") == "json" {
		if drafts == nil {
			drafts = []postgres.QuoteSummary{}
		}
		return outputJSONValue(c.App.Writer, drafts)
	}
	return outputQuoteList(c.App.Writer, drafts)
}

func runQuotesShow(c *cli.Context) error {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return errors.New("quote id is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled {
		return errQuotesDisabled
	}
	ctx := context.Background()
	st, err := openRecordStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	quote, err := st.quotes.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	if quote == nil {
		return fmt.Errorf("quote %q not found", id)
	}
	return outputJSONValue(c.App.Writer, quote)
}

// =============================================================================
// HELPERS
// =============================================================================

var (
	errAuditDisabled  = errors.New("audit store is not enabled; set --clickhouse-host or clickhouse.enabled")
	errQuotesDisabled = errors.New("quote store is not enabled; set --postgres-dsn or postgres.enabled")
)

// openRecordStores connects the enabled stores for a read-only command.
func openRecordStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return openStores(ctx, cfg, logger)
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "table",
		Usage:   "Output format (table, json)",
	}
}

func outputTrail(w io.Writer, trailID string, actions []clickhouse.AuditAction) error {
	fmt.Fprintf(w, "Audit trail %s (%d decisions)\n\n", trailID, len(actions))
	for _, a := range actions {
		item := ""
		if a.ScopeItemID != "" {
			item = " [" + a.ScopeItemID + "]"
		}
		fmt.Fprintf(w, "%3d. %-24s %s%s\n", a.Seq, a.Step, a.Action, item)
		if a.Reasoning != "" {
			fmt.Fprintf(w, "     %s\n", a.Reasoning)
		}
		if a.RiskAssessment != "" {
			fmt.Fprintf(w, "     risk: %s\n", a.RiskAssessment)
		}
	}
	return nil
}

func outputStats(w io.Writer, since time.Duration, stats *clickhouse.RunStats) error {
	proceedRate := 0.0
	if stats.Runs > 0 {
		proceedRate = float64(stats.Proceeded) / float64(stats.Runs) * 100
	}
	fmt.Fprintf(w, "Runs in the last %s\n", since)
	fmt.Fprintf(w, "  Runs:            %d\n", stats.Runs)
	fmt.Fprintf(w, "  Proceeded:       %d (%.1f%%)\n", stats.Proceeded, proceedRate)
	fmt.Fprintf(w, "  Degraded:        %d\n", stats.Degraded)
	fmt.Fprintf(w, "  Avg confidence:  %.1f%%\n", stats.AvgConfidence)
	return nil
}

func outputQuoteList(w io.Writer, drafts []postgres.QuoteSummary) error {
	if len(drafts) == 0 {
		fmt.Fprintln(w, "No draft quotes")
		return nil
	}
	fmt.Fprintf(w, "%-38s %-32s %5s %6s  %s\n", "ID", "PROJECT", "ITEMS", "CONF", "CREATED")
	for _, q := range drafts {
		fmt.Fprintf(w, "%-38s %-32s %5d %5.1f%%  %s\n",
			truncate(q.ID, 38), truncate(q.ProjectName, 32), q.ItemCount, q.OverallConfidence,
			q.CreatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
