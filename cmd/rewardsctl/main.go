// Package main is the operator CLI for one-shot rewards tasks:
//
//	rewardsctl prepare                 resync the ledger from chain state
//	rewardsctl list [--all]            print eligible holders (or the full ledger)
//	rewardsctl exclude ADDR --reason R exclude an address from future draws
//	rewardsctl include ADDR            lift an active exclusion
//	rewardsctl draw --prize N          run a draw over the current ledger
//	rewardsctl export --out FILE       write the ledger CSV and print its checksum
//	rewardsctl report --out FILE       write the markdown report
//
// With --use-memory every command first prepares a fresh ledger, since
// nothing persists between runs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"holder-rewards/internal/app"
	"holder-rewards/internal/config"
	"holder-rewards/internal/domain"
	"holder-rewards/internal/reporting"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	envFile := fs.String("env-file", ".env", "Environment file loaded before parsing configuration")
	useMemory := fs.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	all := fs.Bool("all", false, "list: include ineligible and excluded holders")
	prize := fs.Uint64("prize", 0, "draw: prize amount in lamports")
	reason := fs.String("reason", "", "exclude: reason recorded with the exclusion")
	actor := fs.String("by", "admin", "exclude/include: acting administrator")
	out := fs.String("out", "", "export/report: output file (default stdout)")
	limit := fs.Int("limit", 20, "report: draws and distributions listed")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatal(err)
	}
	if err := app.ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		fatal(err)
	}
	if cfg.LogLevel == "info" {
		// Keep CLI output readable unless asked otherwise
		log.SetLevel(log.WarnLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, err := app.Build(ctx, cfg, app.Options{UseMemory: *useMemory})
	if err != nil {
		fatal(err)
	}
	defer engine.Close()

	if *useMemory && cmd != "prepare" {
		if _, err := engine.Service.PrepareDraw(ctx); err != nil {
			fatal(fmt.Errorf("prepare: %w", err))
		}
	}

	switch cmd {
	case "prepare":
		err = runPrepare(ctx, engine)
	case "list":
		err = runList(ctx, engine, *all)
	case "exclude":
		err = runExclude(ctx, engine, fs.Args(), *reason, *actor)
	case "include":
		err = runInclude(ctx, engine, fs.Args(), *actor)
	case "draw":
		err = runDraw(ctx, engine, *prize)
	case "export":
		err = withOutput(*out, func(w io.Writer) error { return runExport(ctx, engine, w) })
	case "report":
		err = withOutput(*out, func(w io.Writer) error { return runReport(ctx, engine, w, *limit) })
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		engine.Close()
		fatal(err)
	}
}

func runPrepare(ctx context.Context, engine *app.App) error {
	stats, err := engine.Service.PrepareDraw(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Snapshot %s\n", stats.SnapshotAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  holders:   %d\n", stats.TotalHolders)
	fmt.Printf("  eligible:  %d\n", stats.EligibleHolders)
	fmt.Printf("  excluded:  %d\n", stats.ExcludedHolders)
	fmt.Printf("  dust:      %d\n", stats.DustDropped)
	fmt.Printf("  entries:   %d\n", stats.TotalEntries)
	return nil
}

func runList(ctx context.Context, engine *app.App, all bool) error {
	var (
		records []*domain.HolderRecord
		err     error
	)
	if all {
		records, err = engine.Service.ListLedger(ctx)
	} else {
		records, err = engine.Service.ListEligible(ctx)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tUSD\tTIER\tENTRIES\tELIGIBLE\tEXCLUDED")
	for _, r := range records {
		excluded := ""
		if r.Excluded {
			excluded = r.ExclusionReason
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%s\n",
			r.Address, r.USDValue.StringFixed(2), r.Tier, r.FinalEntries, r.IsEligible, excluded)
	}
	return tw.Flush()
}

func runExclude(ctx context.Context, engine *app.App, args []string, reason, actor string) error {
	if len(args) != 1 {
		return fmt.Errorf("exclude takes exactly one address")
	}
	rec, err := engine.Service.Exclude(ctx, args[0], reason, actor)
	if err != nil {
		return err
	}
	fmt.Printf("Excluded %s (%s) id=%s\n", rec.Address, rec.Reason, rec.ID)
	return nil
}

func runInclude(ctx context.Context, engine *app.App, args []string, actor string) error {
	if len(args) != 1 {
		return fmt.Errorf("include takes exactly one address")
	}
	if err := engine.Service.Include(ctx, args[0], actor); err != nil {
		return err
	}
	fmt.Printf("Exclusion lifted for %s\n", args[0])
	return nil
}

func runDraw(ctx context.Context, engine *app.App, prize uint64) error {
	res, err := engine.Service.RunDraw(ctx, prize)
	if err != nil {
		return err
	}
	fmt.Printf("Draw %s\n", res.ID)
	fmt.Printf("  winner:   %s\n", res.WinnerAddress)
	fmt.Printf("  number:   %d of %d (winner holds %d)\n", res.WinningNumber, res.TotalEntries, res.WinnerEntries)
	fmt.Printf("  holders:  %d\n", res.TotalEligibleHolders)
	fmt.Printf("  prize:    %d\n", res.PrizeAmount)
	fmt.Printf("  digest:   %s\n", res.LedgerDigest)
	return nil
}

func runExport(ctx context.Context, engine *app.App, w io.Writer) error {
	records, err := engine.Service.ListLedger(ctx)
	if err != nil {
		return err
	}
	checksum, err := reporting.WriteLedgerCSV(w, records)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "sha256 %s\n", checksum)
	return nil
}

func runReport(ctx context.Context, engine *app.App, w io.Writer, limit int) error {
	st := engine.Stores
	gen := reporting.NewGenerator(st.Holders, st.Exclusions, st.Draws, st.Distributions, limit)
	report, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, reporting.RenderMarkdown(report))
	return err
}

// withOutput runs fn against path, or stdout when path is empty.
func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: rewardsctl <prepare|list|exclude|include|draw|export|report> [flags]")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
