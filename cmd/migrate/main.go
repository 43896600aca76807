package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sharebridge/sharebridge-backend/pkg/config"
	"github.com/sharebridge/sharebridge-backend/pkg/db"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
	"github.com/sharebridge/sharebridge-backend/pkg/migrate"
)

const usage = `sharebridge-migrate manages the ShareBridge postgres schema
(users, producers, products, applications) with goose.

Usage:
  sharebridge-migrate -cmd=<command> [flags]

Commands:
  up        apply every pending migration
  down      roll back the latest migration
  status    print applied and pending migrations
  version   migrate up or down to -version
  create    write a new SQL migration named -name (no database needed)
  validate  check file names and goose annotations (no database needed)

Sqlite development databases are created by the API on boot
(SHAREBRIDGE_AUTO_MIGRATE) and are not managed here.

Flags:
`

var errUsage = errors.New("invalid arguments")

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "sharebridge-migrate"})
	_ = godotenv.Load()

	opts := parseFlags()

	if err := run(opts, logg); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		fmt.Fprintf(os.Stderr, "sharebridge-migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "directory holding the ShareBridge goose migrations")
	flag.StringVar(&opts.name, "name", "", "snake_case name of the migration to create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()
	return opts
}

func run(opts options, logg *logger.Logger) error {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("%w: -name is required", errUsage)
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migrations in", opts.dir, "are valid")
		return nil
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, opts.cmd)
	}

	if opts.cmd == "version" && opts.version == "" {
		return fmt.Errorf("%w: -version is required", errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DB.IsSQLite() {
		return errors.New("goose migrations target postgres; sqlite schemas are created by auto-migrate")
	}

	logg = logger.New(logger.Options{
		ServiceName: "sharebridge-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	if err := apply(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "schema migration failed", err)
		return err
	}
	logg.Info(ctx, "schema migration finished")
	return nil
}

func apply(ctx context.Context, sqlDB *sql.DB, opts options) error {
	if opts.cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	}
	return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
}
