// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package endpoint implements the notes API operations.
package endpoint

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/z5labs/restkit/db"
	"github.com/z5labs/restkit/example/notes/note"
	"github.com/z5labs/restkit/rest"
)

// Store persists notes. Every method runs on the request transaction.
type Store interface {
	Create(ctx context.Context, tx *sql.Tx, n note.Note) (note.Note, error)
	Get(ctx context.Context, tx *sql.Tx, owner string, id int64) (note.Note, error)
	List(ctx context.Context, tx *sql.Tx, owner string) ([]note.Note, error)
	Update(ctx context.Context, tx *sql.Tx, owner string, id int64, p note.Patch) (note.Note, error)
	Delete(ctx context.Context, tx *sql.Tx, owner string, id int64) error
}

// Deps are shared by all note operations.
type Deps struct {
	Store Store
	Tx    *db.Middleware[*sql.Tx]
	Auth  rest.AuthFunc[User]
}

// InvalidField describes why a field of the request was rejected.
type InvalidField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var (
	noteFound    = rest.Data[note.Note](http.StatusOK).Describe("The note.")
	noteNotFound = rest.Fail(http.StatusNotFound, "NoteNotFound").Describe("The note does not exist.")
	invalidField = rest.FailWith[InvalidField](http.StatusBadRequest, "InvalidField").Describe("A field of the request is invalid.")
)

var idPattern = regexp.MustCompile(`^[0-9]+$`)

func notePath() rest.Path {
	return rest.BasePath("/notes").Param("id", rest.Regex(idPattern), rest.Description("Id of the note."))
}

// operation combines the options every note operation shares with opts.
func (d Deps) operation(opts ...rest.OperationOption) []rest.OperationOption {
	return append(
		[]rest.OperationOption{
			rest.BearerAuth(d.Auth),
			rest.BearerFormat("JWT"),
			rest.Intercept(d.Tx),
			rest.Tags("notes"),
		},
		opts...,
	)
}

func caller(ctx context.Context) string {
	u, _ := rest.Authorized[User](ctx)
	return u.ID
}

func tx(ctx context.Context) *sql.Tx {
	return db.MustFrom[*sql.Tx](ctx).Get()
}

func noteID(ctx context.Context) (int64, error) {
	id, err := strconv.ParseInt(rest.PathParamValue(ctx, "id"), 10, 64)
	if err != nil {
		return 0, noteNotFound.Wrap(err)
	}
	return id, nil
}

func storeError(ctx context.Context, err error) error {
	if errors.Is(err, note.ErrNotFound) {
		return noteNotFound.Wrap(err)
	}
	return rest.InternalError(ctx, err)
}
