package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/salesledger/market"
	"github.com/robinvdvleuten/salesledger/store"
	"github.com/robinvdvleuten/salesledger/telemetry"
	"github.com/robinvdvleuten/salesledger/web"
)

type WebCmd struct {
	Port     int    `help:"Port to listen on." default:"8080"`
	Host     string `help:"Address to bind to." default:"127.0.0.1"`
	ReadOnly bool   `help:"Enable read-only mode (no write operations allowed)." short:"r"`
	Watch    bool   `help:"Reload when the JSON store file changes on disk." default:"true" negatable:""`
}

func (cmd *WebCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(ctx.Stderr, globals.LogLevel, globals.LogFormat)
	if err != nil {
		return err
	}

	if globals.Telemetry {
		collector := telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		defer func() {
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		}()
	}

	st, err := store.Open(runCtx, globals.Store, store.WithLogger(log.WithField("dsn", globals.Store)))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	opts := []web.Option{web.WithLogger(log)}
	if globals.Futures != "" {
		opts = append(opts, web.WithLookup(market.NewLookup(market.NewSource(globals.Futures), market.WithLogger(log))))
	}

	version := Version
	if version == "" {
		version = "dev"
	}
	commitSHA := CommitSHA
	if commitSHA == "" {
		commitSHA = "local"
	}

	server := web.New(cmd.Port, st, opts...)
	server.Host = cmd.Host
	server.Version = version
	server.CommitSHA = commitSHA
	server.ReadOnly = cmd.ReadOnly
	server.WatchEnabled = cmd.Watch
	server.Crop = globals.Crop

	printInfof(ctx.Stdout, "Starting server on %s:%d", server.Host, cmd.Port)
	printInfof(ctx.Stdout, "Serving store: %s", pathStyle.Render(globals.Store))

	if cmd.ReadOnly {
		printInfof(ctx.Stdout, "Server running in READ-ONLY mode")
	}

	return server.Start(runCtx)
}
