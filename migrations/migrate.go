// Package migrations embeds the goose schema migrations of the client cache
// and of the reference server.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// Set names an embedded migration directory.
type Set string

const (
	// Client is the local cache schema.
	Client Set = "client"
	// Server is the reference server schema.
	Server Set = "server"
)

//go:embed client/*.sql server/*.sql
var embedMigrations embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// Migrate applies every pending migration of set using the goose dialect
// ("sqlite3" or "postgres").
func Migrate(db *sql.DB, dialect string, set Set) error {
	if db == nil {
		return errors.New("migration error: db is nil")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, string(set)); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
