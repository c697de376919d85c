package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are appended to every sqlite DSN. Counter updates run in
// short write transactions, so waiting on a busy lock beats failing fast.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=foreign_keys(1)",
	"_txlock=immediate",
}

func Init(driver, connection string) (*sqlx.DB, error) {
	// SQLite: create data directory if needed
	if driver == "sqlite" {
		dir := filepath.Dir(sqlitePath(connection))
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		connection = sqliteDSN(connection)
	}

	db, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected", "driver", driver)

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func Close(db *sqlx.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}

func sqlitePath(connection string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(connection, "file:"), "?")
	return path
}

// sqliteDSN adds the default pragmas that the connection string does not
// already set.
func sqliteDSN(connection string) string {
	var missing []string
	for _, p := range sqlitePragmas {
		if !strings.Contains(connection, dsnKey(p)) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return connection
	}
	sep := "?"
	if strings.Contains(connection, "?") {
		sep = "&"
	}
	return connection + sep + strings.Join(missing, "&")
}

// dsnKey is the part of a DSN parameter that identifies it regardless of its
// value: "_pragma=busy_timeout(" or "_txlock=".
func dsnKey(param string) string {
	if name, ok := strings.CutPrefix(param, "_pragma="); ok {
		name, _, _ = strings.Cut(name, "(")
		return "_pragma=" + name + "("
	}
	key, _, _ := strings.Cut(param, "=")
	return key + "="
}
