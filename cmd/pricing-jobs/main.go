package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pricing/internal/app"
	"pricing/internal/config"
	"pricing/internal/logger"
)

func main() {
	_ = godotenv.Load()

	defaultCfg := os.Getenv("PRICING_CONFIG")
	if defaultCfg == "" {
		defaultCfg = "config/config.yaml"
	}
	var (
		cfgPath = flag.String("config", defaultCfg, "config file (env: PRICING_CONFIG)")
		envOnly = flag.Bool("env-only", envFlag("PRICING_ENV_ONLY"), "read config from env only (env: PRICING_ENV_ONLY)")
		outFmt  = flag.String("output", "json", "output format: json|text")
	)
	flag.Usage = func() { usage(os.Stderr) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage(os.Stderr)
		os.Exit(2)
	}
	if isHelp(args[0]) {
		usage(os.Stdout)
		return
	}
	if !known(args[0]) {
		usage(os.Stderr)
		fmt.Fprintln(os.Stderr, "unknown command:", args[0])
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath, *envOnly)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log, "pricing-jobs")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("app init failed", zap.Error(err))
		os.Exit(1)
	}

	runErr := dispatch(ctx, runner{app: a, out: os.Stdout, format: strings.TrimSpace(*outFmt)}, args)
	if err := a.Close(); err != nil {
		log.Warn("close failed", zap.Error(err))
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		os.Exit(1)
	}
}

func envFlag(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	return strings.EqualFold(v, "true") || v == "1"
}
