package postgres

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"evently-backend/internal/logger"
	"evently-backend/internal/repository/postgres/migrations"
)

const migrationTableName = "schema_migrations"

// gooseLogger forwards goose output to the application logger without exiting the process.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Info(fmt.Sprintf(format, v...), "component", "migrations")
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "migrations")
}

// Migrate runs a goose command ("up", "down" or "status") against the embedded migrations.
func Migrate(db *sql.DB, command string) error {
	goose.SetLogger(gooseLogger{})
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch command {
	case "up":
		err = goose.Up(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	default:
		return fmt.Errorf("unknown migration command %q (use up, down or status)", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
