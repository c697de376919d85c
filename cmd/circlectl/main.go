// Command circlectl runs administrative tasks against the RespectCircle
// database: migrations, demo resets, period rollovers and data exports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joshuanoeldeke/RespectCircle/internal/app"
	"github.com/joshuanoeldeke/RespectCircle/internal/config"
	"github.com/joshuanoeldeke/RespectCircle/internal/logger"
)

type cliContext struct {
	ctx context.Context
	cfg *config.Config
	out io.Writer
}

// withApp builds the full application for commands that go through the
// services.
func (c *cliContext) withApp(fn func(a *app.App) error) error {
	a, err := app.New(c.ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

type CLI struct {
	Migrate  MigrateCmd  `cmd:"" help:"Apply or roll back database migrations"`
	Demo     DemoCmd     `cmd:"" help:"Manage demo data"`
	Rollover RolloverCmd `cmd:"" help:"Reset played counters for every user"`
	Export   ExportCmd   `cmd:"" help:"Export a user's data as JSON"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("circlectl"),
		kong.Description("RespectCircle administration"),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := kctx.Run(&cliContext{ctx: ctx, cfg: cfg, out: os.Stdout})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		logger.Flush()
		os.Exit(1)
	}
}
