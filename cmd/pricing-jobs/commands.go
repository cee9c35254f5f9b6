package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pricing/internal/app"
)

func usage(w io.Writer) {
	fmt.Fprint(w, `pricing-jobs [global flags] <command> [flags]

Global Flags:
  --config      config file (env: PRICING_CONFIG, default config/config.yaml)
  --env-only    read config from env only (env: PRICING_ENV_ONLY)
  --output      json|text (default json)

Commands:
  batch              suggest prices for every key on the latest feature date
  train-elasticity   refit elasticity for every key with orders
  train-demand       train and persist the demand model
  monitor            demand error, drift and coverage checks [--date YYYY-MM-DD]
  etl                build sku_features_daily rows [--date YYYY-MM-DD]
  suggest            optimize one key --sku S [--vendor V]
  feedback-summary   feedback counts by action
  export             write a day's suggestions to xlsx --date D --out F
`)
}

var commands = map[string]bool{
	"batch":            true,
	"train-elasticity": true,
	"train-demand":     true,
	"monitor":          true,
	"etl":              true,
	"suggest":          true,
	"feedback-summary": true,
	"export":           true,
}

func known(name string) bool { return commands[name] }

func isHelp(name string) bool {
	return name == "help" || name == "-h" || name == "--help"
}

type runner struct {
	app    *app.App
	out    io.Writer
	format string
}

func dispatch(ctx context.Context, r runner, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}
	switch args[0] {
	case "batch":
		summary, err := r.app.Optimizer.RunBatch(ctx)
		if err != nil {
			return err
		}
		return r.write(summary)
	case "train-elasticity":
		summary, err := r.app.Elasticity.TrainAll(ctx)
		if err != nil {
			return err
		}
		return r.write(summary)
	case "train-demand":
		rep, err := r.app.TrainDemand(ctx)
		if err != nil {
			return err
		}
		return r.write(rep)
	case "monitor":
		date, err := dateFlag("pricing-jobs monitor", args[1:])
		if err != nil {
			return err
		}
		rep, err := r.app.Monitor.RunDaily(ctx, date)
		if werr := r.write(rep); werr != nil {
			return werr
		}
		return err
	case "etl":
		date, err := dateFlag("pricing-jobs etl", args[1:])
		if err != nil {
			return err
		}
		rep, err := r.app.ETL.Run(ctx, date)
		if err != nil {
			return err
		}
		return r.write(rep)
	case "suggest":
		return r.suggest(ctx, args[1:])
	case "feedback-summary":
		counts, err := r.app.Feedback.Summary(ctx)
		if err != nil {
			return err
		}
		return r.write(counts)
	case "export":
		return r.export(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

type suggestArgs struct {
	SKU      string
	VendorID string
}

func parseSuggestArgs(args []string, defaultVendor string) (suggestArgs, error) {
	fs := flag.NewFlagSet("pricing-jobs suggest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sku := fs.String("sku", "", "sku")
	vendor := fs.String("vendor", "", "vendor id (default pricing.default_vendor_id)")
	if err := fs.Parse(args); err != nil {
		return suggestArgs{}, err
	}
	out := suggestArgs{SKU: strings.TrimSpace(*sku), VendorID: strings.TrimSpace(*vendor)}
	if out.SKU == "" {
		return suggestArgs{}, errors.New("--sku required")
	}
	if out.VendorID == "" {
		out.VendorID = defaultVendor
	}
	return out, nil
}

func (r runner) suggest(ctx context.Context, args []string) error {
	a, err := parseSuggestArgs(args, r.app.Config.Pricing.DefaultVendorID)
	if err != nil {
		return err
	}
	item, skip, err := r.app.Optimizer.Suggest(ctx, a.SKU, a.VendorID)
	if err != nil {
		return err
	}
	if item == nil {
		return r.write(map[string]any{"sku": a.SKU, "vendor_id": a.VendorID, "available": false, "reason": skip})
	}
	return r.write(item)
}

type exportArgs struct {
	Date time.Time
	Out  string
}

func parseExportArgs(args []string) (exportArgs, error) {
	fs := flag.NewFlagSet("pricing-jobs export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	date := fs.String("date", "", "YYYY-MM-DD")
	out := fs.String("out", "", "output .xlsx path")
	if err := fs.Parse(args); err != nil {
		return exportArgs{}, err
	}
	if strings.TrimSpace(*date) == "" || strings.TrimSpace(*out) == "" {
		return exportArgs{}, errors.New("--date and --out required")
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(*date))
	if err != nil {
		return exportArgs{}, fmt.Errorf("invalid --date: %w", err)
	}
	return exportArgs{Date: d, Out: strings.TrimSpace(*out)}, nil
}

func (r runner) export(ctx context.Context, args []string) error {
	a, err := parseExportArgs(args)
	if err != nil {
		return err
	}
	f, err := os.Create(a.Out)
	if err != nil {
		return err
	}
	rows, err := r.app.Exporter.Export(ctx, a.Date, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return r.write(map[string]any{"date": a.Date.Format("2006-01-02"), "rows": rows, "path": a.Out})
}

// dateFlag parses an optional --date; absent yields the zero time so the job
// picks its own default.
func dateFlag(name string, args []string) (time.Time, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	raw := fs.String("date", "", "YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(*raw) == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date: %w", err)
	}
	return d, nil
}

func (r runner) write(v any) error {
	w := r.out
	if w == nil {
		w = os.Stdout
	}
	if r.format == "text" {
		_, err := fmt.Fprintf(w, "%+v\n", v)
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
