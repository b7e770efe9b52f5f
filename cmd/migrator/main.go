package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/pflag"

	"github.com/notrya/storefront/internal/storage/postgres"
)

const usage = `Usage: migrator [flags] <command>

Commands:
  up          apply all pending migrations
  down [N]    roll back N migrations (default 1)
  version     print the current schema version
  force V     mark version V as applied without running it

Flags:
`

// migrationLogger routes golang-migrate output through slog.
type migrationLogger struct {
	verbose bool
}

func (l migrationLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func (l migrationLogger) Verbose() bool { return l.verbose }

func main() {
	databaseURL := pflag.StringP("database-url", "d", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	verbose := pflag.BoolP("verbose", "v", false, "log every migration step")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *databaseURL == "" {
		*databaseURL = os.Getenv("DATABASE_URL")
	}
	if *databaseURL == "" || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *databaseURL, *verbose, pflag.Args()); err != nil {
		slog.Error("migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, verbose bool, args []string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	m, err := postgres.NewMigrate(pool)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	m.Log = migrationLogger{verbose: verbose}

	go func() {
		<-ctx.Done()
		m.GracefulStop <- true
	}()

	switch cmd := args[0]; cmd {
	case "up":
		err = m.Up()
	case "down":
		n := 1
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil || n <= 0 {
				return errors.Errorf("down: invalid step count %q", args[1])
			}
		}
		err = m.Steps(-n)
	case "force":
		if len(args) < 2 {
			return errors.New("force: version is required")
		}
		v, perr := strconv.Atoi(args[1])
		if perr != nil {
			return errors.Wrapf(perr, "force: parse version %q", args[1])
		}
		err = m.Force(v)
	case "version":
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("no change")
		err = nil
	}
	if err != nil {
		return errors.Wrap(err, args[0])
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("no migrations applied")
	case err != nil:
		return errors.Wrap(err, "read version")
	default:
		slog.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}
	return nil
}
