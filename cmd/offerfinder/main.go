// Command offerfinder searches every configured affiliate network for a
// keyword and prints the ranked offers.
//
//	offerfinder search -keyword vpn -min-score 60 -csv vpn.csv
//	offerfinder test
//	offerfinder networks
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/app"
	"github.com/ignite/offer-finder/internal/config"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/export"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `usage: offerfinder <command> [flags]

commands:
  search    search all configured networks for a keyword
  test      check connectivity and credentials for each network
  networks  list configured and skipped networks

run "offerfinder <command> -h" for command flags`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return exitUsage
	}

	switch args[0] {
	case "search":
		return runSearch(ctx, args[1:], stdout, stderr)
	case "test":
		return runTest(ctx, args[1:], stdout, stderr)
	case "networks":
		return runNetworks(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", args[0], usage)
		return exitUsage
	}
}

func runSearch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config/config.yaml", "path to config YAML")
	keyword := fs.String("keyword", "", "search keyword (or pass it as the first argument)")
	minScore := fs.Int("min-score", 0, "drop offers scoring below this (0-100)")
	minEPC := fs.Float64("min-epc", 0, "drop offers with EPC below this (USD)")
	minCommission := fs.Float64("min-commission", 0, "drop offers whose commission index is below this (0-100)")
	csvPath := fs.String("csv", "", "also write the results to this CSV file")
	upload := fs.Bool("s3", false, "upload the CSV to the configured export bucket")
	s3Key := fs.String("s3-key", "", "object key for -s3 (default <keyword>/<timestamp>.csv)")
	asJSON := fs.Bool("json", false, "print the full result as JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	q := aggregator.Query{Keyword: *keyword}
	if q.Keyword == "" {
		q.Keyword = strings.Join(fs.Args(), " ")
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-score":
			q.MinScore = minScore
		case "min-epc":
			q.MinEPC = minEPC
		case "min-commission":
			q.MinCommission = minCommission
		}
	})
	if err := q.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	a, code := build(ctx, *configPath, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	if *upload && a.Uploader == nil {
		fmt.Fprintln(stderr, "error: -s3 needs export.s3_bucket (or EXPORT_S3_BUCKET) to be set")
		return exitUsage
	}

	res, err := a.Aggregator.Search(ctx, q)
	if err != nil {
		return reportSearchError(stderr, err)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
	} else if err := export.RenderTable(stdout, res); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	if *csvPath != "" {
		if err := writeCSVFile(*csvPath, res.Offers); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(stderr, "wrote %d offers to %s\n", len(res.Offers), *csvPath)
	}

	if *upload {
		key := *s3Key
		if key == "" {
			key = export.DefaultKey(res.Keyword, time.Now())
		}
		uri, err := a.Uploader.UploadCSV(ctx, key, res.Offers)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(stderr, "uploaded to %s\n", uri)
	}

	return exitOK
}

func runTest(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config/config.yaml", "path to config YAML")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, code := build(ctx, *configPath, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	if len(a.Aggregator.Networks()) == 0 {
		return reportSearchError(stderr, domain.ErrNoNetworksConfigured)
	}

	results := a.Aggregator.TestConnections(ctx)
	failed := 0
	for _, n := range a.Aggregator.Networks() {
		s := results[n]
		line := fmt.Sprintf("%-14s %s", export.NetworkName(n), s.State)
		if s.Message != "" {
			line += "  (" + s.Message + ")"
		}
		fmt.Fprintln(stdout, line)
		if !s.OK() {
			failed++
		}
	}
	printUnconfigured(stdout, a)

	if failed > 0 {
		return exitError
	}
	return exitOK
}

func runNetworks(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("networks", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config/config.yaml", "path to config YAML")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, code := build(ctx, *configPath, stderr)
	if a == nil {
		return code
	}
	defer a.Close()

	for _, ad := range a.Aggregator.Adapters() {
		caps := ad.Capabilities()
		fmt.Fprintf(stdout, "%-14s search=%t details=%t\n", export.NetworkName(ad.Network()), caps.Search, caps.OfferDetails)
	}
	printUnconfigured(stdout, a)
	return exitOK
}

func build(ctx context.Context, configPath string, stderr io.Writer) (*app.App, int) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: loading config: %v\n", err)
		return nil, exitError
	}
	a, err := app.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, exitError
	}
	return a, exitOK
}

func printUnconfigured(w io.Writer, a *app.App) {
	for _, u := range a.Aggregator.Unconfigured() {
		fmt.Fprintf(w, "%-14s not configured: %s\n", export.NetworkName(u.Network), u.Reason)
	}
}

func reportSearchError(stderr io.Writer, err error) int {
	switch {
	case errors.Is(err, domain.ErrNoNetworksConfigured):
		fmt.Fprintln(stderr, "error: no affiliate networks are configured; set credentials in config.yaml or the environment")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "search cancelled")
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return exitError
}

func writeCSVFile(path string, offers []domain.ScoredOffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteCSV(f, offers)
}
