// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package note stores notes in Postgres.
package note

import (
	"context"
	"database/sql"
	"errors"

	"github.com/z5labs/restkit/patch"

	"github.com/Masterminds/squirrel"
)

// ErrNotFound is returned when the note does not exist or belongs to
// another owner.
var ErrNotFound = errors.New("note: not found")

// Note is a note owned by a single user.
type Note struct {
	ID    int64  `json:"id"`
	Owner string `json:"owner"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Patch describes a partial update of a note.
type Patch struct {
	Title patch.Value[string]
	Body  patch.Value[string]
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.Title.IsSet() && !p.Body.IsSet()
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var columns = []string{"id", "owner", "title", "body"}

// Store runs note queries on the transaction it is given.
type Store struct{}

// NewStore returns a [Store].
func NewStore() *Store {
	return &Store{}
}

// Create inserts a note and returns it with its id.
func (s *Store) Create(ctx context.Context, tx *sql.Tx, n Note) (Note, error) {
	query, args, err := psql.Insert("notes").
		Columns("owner", "title", "body").
		Values(n.Owner, n.Title, n.Body).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Note{}, err
	}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&n.ID)
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// Get returns the note with id owned by owner.
func (s *Store) Get(ctx context.Context, tx *sql.Tx, owner string, id int64) (Note, error) {
	query, args, err := psql.Select(columns...).
		From("notes").
		Where(squirrel.Eq{"id": id, "owner": owner}).
		ToSql()
	if err != nil {
		return Note{}, err
	}

	return scanNote(tx.QueryRowContext(ctx, query, args...))
}

// List returns all notes of owner ordered by id.
func (s *Store) List(ctx context.Context, tx *sql.Tx, owner string) ([]Note, error) {
	query, args, err := psql.Select(columns...).
		From("notes").
		Where(squirrel.Eq{"owner": owner}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		err := rows.Scan(&n.ID, &n.Owner, &n.Title, &n.Body)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Update applies p to the note with id owned by owner and returns the result.
func (s *Store) Update(ctx context.Context, tx *sql.Tx, owner string, id int64, p Patch) (Note, error) {
	if p.Empty() {
		return s.Get(ctx, tx, owner, id)
	}

	b := psql.Update("notes")
	b = p.Title.SetOn(b, "title")
	b = p.Body.SetOn(b, "body")

	query, args, err := b.
		Where(squirrel.Eq{"id": id, "owner": owner}).
		Suffix("RETURNING id, owner, title, body").
		ToSql()
	if err != nil {
		return Note{}, err
	}

	return scanNote(tx.QueryRowContext(ctx, query, args...))
}

// Delete removes the note with id owned by owner.
func (s *Store) Delete(ctx context.Context, tx *sql.Tx, owner string, id int64) error {
	query, args, err := psql.Delete("notes").
		Where(squirrel.Eq{"id": id, "owner": owner}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNote(row *sql.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.Owner, &n.Title, &n.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	return n, nil
}
