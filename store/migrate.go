package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/andrebq/weatherbox/internal/logutil"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

var (
	//go:embed migrations/*.sql
	migrations embed.FS

	// goose keeps its configuration in package level variables
	gooseMu sync.Mutex
)

type gooseLogger struct {
	log zerolog.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Debug().Msgf(strings.TrimSpace(format), v...)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Fatal().Msgf(strings.TrimSpace(format), v...)
}

func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: logutil.GetOrDefault(ctx).With().Str("component", "migrations").Logger()})
	err := goose.SetDialect("sqlite3")
	if err != nil {
		return fmt.Errorf("unable to configure migrations, cause %w", err)
	}
	err = goose.UpContext(ctx, db, "migrations")
	if err != nil {
		return fmt.Errorf("unable to apply migrations, cause %w", err)
	}
	return nil
}

// SchemaVersion returns the latest migration applied to the database
func (c *Control) SchemaVersion(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	err := goose.SetDialect("sqlite3")
	if err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, c.db)
}
