package main

import (
	"context"
	"fmt"
	"os"

	_ "time/tzdata"

	"github.com/rs/zerolog"

	"latiafanny/backend/internal/app"
	"latiafanny/backend/internal/cli"
	"latiafanny/backend/internal/config"
	"latiafanny/backend/internal/logging"
)

func main() {
	cmd := cli.NewRootCmd(openReports)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openReports logs to stderr so report output on stdout stays clean.
func openReports(ctx context.Context) (cli.Reports, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty).Output(zerolog.ConsoleWriter{Out: os.Stderr})

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, a.Close, nil
}
