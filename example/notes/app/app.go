// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wires the notes service.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/z5labs/restkit"
	"github.com/z5labs/restkit/db"
	"github.com/z5labs/restkit/example/notes/endpoint"
	"github.com/z5labs/restkit/example/notes/migrations"
	"github.com/z5labs/restkit/example/notes/note"
	"github.com/z5labs/restkit/health"
	"github.com/z5labs/restkit/rest"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config is loaded from the environment.
type Config struct {
	restkit.Config

	Database struct {
		URL          string `env:"URL,required"`
		MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		Migrate      bool   `env:"MIGRATE" envDefault:"true"`
	} `envPrefix:"DATABASE_"`

	JWT struct {
		Secret string `env:"SECRET,required"`
		Issuer string `env:"ISSUER" envDefault:"notes"`
	} `envPrefix:"JWT_"`
}

// Init opens the database, applies migrations and builds the API.
func Init(ctx context.Context, cfg Config) (http.Handler, error) {
	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	restkit.OnShutdown(ctx, func(context.Context) error {
		return sqlDB.Close()
	})

	if cfg.Database.Migrate {
		err = migrations.Up(ctx, sqlDB)
		if err != nil {
			return nil, err
		}
	}
	return NewApi(cfg, sqlDB), nil
}

// NewApi builds the notes API on an open database. The service is ready
// while the database answers pings and every monitor in ready is healthy.
func NewApi(cfg Config, sqlDB *sql.DB, ready ...health.Monitor) *rest.Api {
	deps := endpoint.Deps{
		Store: note.NewStore(),
		Tx:    db.Transaction(db.SQL(sqlDB, nil), db.Logger(restkit.Logger("notes"))),
		Auth:  endpoint.JWT([]byte(cfg.JWT.Secret), cfg.JWT.Issuer),
	}

	live := &health.Binary{}
	live.MarkHealthy()

	title := cfg.Service.Name
	if title == "" {
		title = "Notes API"
	}
	version := cfg.Service.Version
	if version == "" {
		version = "v0.0.0"
	}

	return rest.NewApi(
		title,
		version,
		endpoint.CreateNote(deps),
		endpoint.ListNotes(deps),
		endpoint.GetNote(deps),
		endpoint.UpdateNote(deps),
		endpoint.DeleteNote(deps),
		rest.Readiness(health.All(append(ready, health.Ping(sqlDB, 2*time.Second))...)),
		rest.Liveness(live),
	)
}
