package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/dwarvesf/chain-scanner/internal/server"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

type options struct {
	Chain      string `long:"chain" description:"chain name from the chain table" required:"true"`
	After      int64  `long:"after" description:"last height already processed; scanning starts at after+1" required:"true"`
	To         int64  `long:"to" description:"last height to scan, inclusive" required:"true"`
	ChainsFile string `long:"chains-file" env:"SCANNER_CHAINS_FILE" description:"chain table path"`
}

func main() {
	var opts options
	if _, err := flags.ParseArgs(&opts, os.Args[1:]); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if !run(opts) {
		os.Exit(1)
	}
}

// run reports whether the whole requested range was published.
func run(opts options) bool {
	appConfig := config.New()
	if opts.ChainsFile != "" {
		appConfig.Scanner.ChainsFile = opts.ChainsFile
	}
	logger := logger.New(appConfig.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(appConfig, logger)
	if err != nil {
		logger.Fatal("[backfill] failed to build scanner", map[string]string{"error": err.Error()})
	}
	defer app.Close()

	report, err := app.Telemetry().Backfill(ctx, opts.Chain, opts.After, opts.To)
	fields := map[string]string{
		"chain":            opts.Chain,
		"from_height":      strconv.FormatInt(report.FromHeight, 10),
		"to_height":        strconv.FormatInt(report.ToHeight, 10),
		"requested_to":     strconv.FormatInt(opts.To, 10),
		"windows":          strconv.Itoa(report.Windows),
		"output_addresses": strconv.Itoa(len(report.OutputAddresses)),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("[backfill] scan stopped before the requested end", fields)
		return false
	}
	logger.Info("[backfill] range published", fields)
	return true
}
