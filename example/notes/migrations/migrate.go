// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package migrations holds the notes schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var fsys embed.FS

// ErrNilDB is returned by [Up] when no database is given.
var ErrNilDB = errors.New("migrations: db is nil")

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return ErrNilDB
	}

	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	_, err = p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
