package main

import (
	"fmt"
	"os"

	"github.com/joshuanoeldeke/RespectCircle/internal/app"
	"github.com/joshuanoeldeke/RespectCircle/internal/db"
	"github.com/joshuanoeldeke/RespectCircle/internal/ledger"
)

type MigrateCmd struct {
	Up   MigrateUpCmd   `cmd:"" default:"1" help:"Apply all pending migrations"`
	Down MigrateDownCmd `cmd:"" help:"Roll back the most recent migration"`
}

type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run(cli *cliContext) error {
	conn, err := db.Init(cli.cfg.DBDriver, cli.cfg.DBConnection)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	err = db.RunMigrations(cli.ctx, conn.DB, cli.cfg.DBDriver)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "migrations applied")
	return nil
}

type MigrateDownCmd struct{}

func (c *MigrateDownCmd) Run(cli *cliContext) error {
	conn, err := db.Init(cli.cfg.DBDriver, cli.cfg.DBConnection)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	err = db.MigrateDown(cli.ctx, conn.DB, cli.cfg.DBDriver)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "rolled back one migration")
	return nil
}

type DemoCmd struct {
	Reset DemoResetCmd `cmd:"" help:"Restore the demo dataset"`
}

type DemoResetCmd struct {
	Force bool `help:"Reset even when DEMO_ENABLED is false"`
}

func (c *DemoResetCmd) Run(cli *cliContext) error {
	if c.Force {
		cli.cfg.DemoEnabled = true
	}
	return cli.withApp(func(a *app.App) error {
		err := a.DemoService.Reset(cli.ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "demo data restored")
		return nil
	})
}

type RolloverCmd struct {
	Scope string `arg:"" enum:"daily,weekly,monthly,all" help:"Counters to reset (daily, weekly, monthly, all)"`
}

func (c *RolloverCmd) Run(cli *cliContext) error {
	scope, err := ledger.ParseScope(c.Scope)
	if err != nil {
		return err
	}
	return cli.withApp(func(a *app.App) error {
		n, err := a.MetricsService.Rollover(cli.ctx, scope)
		fmt.Fprintf(cli.out, "reset %s counters for %d users\n", scope, n)
		return err
	})
}

type ExportCmd struct {
	Email   string `arg:"" help:"Email address of the account"`
	Output  string `short:"o" help:"Write to this file instead of stdout"`
	Archive bool   `help:"Upload to object storage and print a download link"`
}

func (c *ExportCmd) Run(cli *cliContext) error {
	return cli.withApp(func(a *app.App) error {
		user, err := a.UserService.ByEmail(c.Email)
		if err != nil {
			return fmt.Errorf("failed to find user %s: %w", c.Email, err)
		}

		if c.Archive {
			url, err := a.ExportService.Archive(cli.ctx, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, url)
			return nil
		}

		data, err := a.ExportService.JSON(user.ID)
		if err != nil {
			return err
		}
		if c.Output == "" {
			_, err = cli.out.Write(append(data, '\n'))
			return err
		}
		return os.WriteFile(c.Output, data, 0o600)
	})
}
