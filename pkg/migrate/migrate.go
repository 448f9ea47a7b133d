package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// Runner drives goose against one database. An empty Dir uses the embedded migrations.
type Runner struct {
	DB     *sql.DB
	Dir    string
	Logger *logger.Logger
}

func (r Runner) prepare(ctx context.Context) (string, error) {
	if r.DB == nil {
		return "", fmt.Errorf("db is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if r.Logger != nil {
		goose.SetLogger(gooseLogger{ctx: ctx, logg: r.Logger})
	}
	if strings.TrimSpace(r.Dir) == "" {
		goose.SetBaseFS(embedded)
		return embeddedDir, nil
	}
	goose.SetBaseFS(nil)
	return r.Dir, nil
}

// Run executes a goose command such as up, down, status or redo.
func (r Runner) Run(ctx context.Context, command string, args ...string) error {
	dir, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, r.DB, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateTo moves the schema up or down to a YYYYMMDDHHMMSS version.
func (r Runner) MigrateTo(ctx context.Context, targetVersion string) error {
	target, err := strconv.ParseInt(strings.TrimSpace(targetVersion), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	dir, err := r.prepare(ctx)
	if err != nil {
		return err
	}
	current, err := goose.GetDBVersionContext(ctx, r.DB)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < target:
		err = goose.UpToContext(ctx, r.DB, dir, target)
	case current > target:
		err = goose.DownToContext(ctx, r.DB, dir, target)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// gooseLogger routes goose progress output into the structured log.
type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logg.Info(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logg.Error(g.ctx, "goose.fatal", fmt.Errorf(format, v...))
	os.Exit(1)
}
