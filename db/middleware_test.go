// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package db

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/z5labs/restkit/rest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	return db, mock
}

type createNote struct {
	Title string `json:"title"`
}

type note struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type problem struct {
	Error string `json:"error"`
}

var (
	noteCreated  = rest.Data[note](http.StatusCreated)
	titleInvalid = rest.Data[problem](http.StatusBadRequest)
	titleTaken   = rest.Fail(http.StatusConflict, "TitleTaken")
)

// newNotesApi registers POST /notes which inserts a note inside the request
// transaction. An empty title replies 400 and "taken" fails with 409.
func newNotesApi(tx *Middleware[*sql.Tx], hooks ...func(context.Context, *Txn[*sql.Tx])) *rest.Api {
	h := rest.HandlerFunc[createNote, rest.Reply](func(ctx context.Context, req *createNote) (*rest.Reply, error) {
		txn := MustFrom[*sql.Tx](ctx)
		for _, hook := range hooks {
			hook(ctx, txn)
		}

		res, err := txn.Get().ExecContext(ctx, "INSERT INTO notes (title) VALUES ($1)", req.Title)
		if err != nil {
			return nil, err
		}
		id, _ := res.LastInsertId()

		switch req.Title {
		case "":
			return titleInvalid.Reply(problem{Error: "invalid_title"}), nil
		case "taken":
			return nil, titleTaken.Err()
		}
		return noteCreated.Reply(note{ID: id, Title: req.Title}), nil
	})

	return rest.NewApi(
		"notes",
		"v0.0.0",
		rest.Operation(
			http.MethodPost,
			rest.BasePath("/notes"),
			rest.ConsumeJson(h),
			rest.Intercept(tx),
		),
	)
}

func postNote(api http.Handler, title string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(`{"title":"`+title+`"}`))
	r.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	api.ServeHTTP(w, r)
	return w
}

func TestMiddleware_Intercept(t *testing.T) {
	t.Run("will commit the transaction", func(t *testing.T) {
		t.Run("if the handler responds with a success status", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WithArgs("hello").WillReturnResult(sqlmock.NewResult(7, 1))
			mock.ExpectCommit()

			w := postNote(newNotesApi(Transaction(SQL(db, nil))), "hello")

			require.Equal(t, http.StatusCreated, w.Code)
			assert.JSONEq(t, `{"id":7,"title":"hello"}`, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if a custom predicate accepts an error status", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()

			tx := Transaction(SQL(db, nil), CommitWhen(func(status int, _ http.Header) bool {
				return status != http.StatusInternalServerError
			}))

			w := postNote(newNotesApi(tx), "")

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"invalid_title"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("will roll back the transaction", func(t *testing.T) {
		t.Run("if the handler responds with a client error status", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback()

			w := postNote(newNotesApi(Transaction(SQL(db, nil))), "")

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"invalid_title"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if a custom predicate rejects a success status", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback()

			tx := Transaction(SQL(db, nil), CommitWhen(func(status int, header http.Header) bool {
				return header.Get("X-Dry-Run") == "" && status == http.StatusOK
			}))

			w := postNote(newNotesApi(tx), "hello")

			require.Equal(t, http.StatusCreated, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the handler returns an error", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback()

			w := postNote(newNotesApi(Transaction(SQL(db, nil))), "taken")

			require.Equal(t, http.StatusConflict, w.Code)
			assert.JSONEq(t, `{"error":"title_taken"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the handler panics", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectRollback()

			api := newNotesApi(Transaction(SQL(db, nil)), func(context.Context, *Txn[*sql.Tx]) {
				panic("unexpected")
			})

			w := postNote(api, "hello")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the handler still retains the handle", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback()

			api := newNotesApi(Transaction(SQL(db, nil)), func(_ context.Context, txn *Txn[*sql.Tx]) {
				txn.Retain()
			})

			w := postNote(api, "hello")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	})

	t.Run("will commit if retained work released the handle", func(t *testing.T) {
		db, mock := newTestDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		api := newNotesApi(Transaction(SQL(db, nil)), func(_ context.Context, txn *Txn[*sql.Tx]) {
			var wg sync.WaitGroup
			txn.Retain()
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer txn.Release()
				_ = txn.Get()
			}()
			wg.Wait()
		})

		w := postNote(api, "hello")

		require.Equal(t, http.StatusCreated, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with 500", func(t *testing.T) {
		t.Run("if the transaction can not be started", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

			called := false
			api := newNotesApi(Transaction(SQL(db, nil)), func(context.Context, *Txn[*sql.Tx]) {
				called = true
			})

			w := postNote(api, "hello")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.False(t, called)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the commit fails", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

			w := postNote(newNotesApi(Transaction(SQL(db, nil))), "hello")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the rollback after an unsuccessful response fails", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

			w := postNote(newNotesApi(Transaction(SQL(db, nil))), "")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the rollback of a retained transaction fails", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

			api := newNotesApi(Transaction(SQL(db, nil)), func(_ context.Context, txn *Txn[*sql.Tx]) {
				txn.Retain()
			})

			w := postNote(api, "hello")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the commit predicate panics", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback()

			tx := Transaction(SQL(db, nil), CommitWhen(func(int, http.Header) bool {
				panic("bad predicate")
			}))

			w := postNote(newNotesApi(tx), "hello")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the rollback after an error fails", func(t *testing.T) {
			db, mock := newTestDB(t)
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO notes").WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

			w := postNote(newNotesApi(Transaction(SQL(db, nil))), "taken")

			require.Equal(t, http.StatusInternalServerError, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	})
}

func TestMiddleware_Handler(t *testing.T) {
	t.Run("will wrap a plain http.Handler", func(t *testing.T) {
		db, mock := newTestDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM notes").WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		tx := Transaction(SQL(db, nil))
		h := tx.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn, ok := From[*sql.Tx](r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			_, err := txn.Get().ExecContext(r.Context(), "DELETE FROM notes")
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notes", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will let bearer checkers use the request transaction", func(t *testing.T) {
		type account struct {
			ID int64
		}

		db, mock := newTestDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs("secret").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectCommit()

		api := rest.NewApi(
			"notes",
			"v0.0.0",
			rest.Operation(
				http.MethodGet,
				rest.BasePath("/me"),
				rest.ProduceJson(rest.ProducerFunc[note](func(ctx context.Context) (*note, error) {
					acct, _ := rest.Authorized[account](ctx)
					return &note{ID: acct.ID}, nil
				})),
				rest.BearerAuth(func(r *http.Request, bearer *rest.Bearer) (account, error) {
					if bearer == nil {
						return account{}, rest.Unauthorized.Err()
					}

					var acct account
					err := MustFrom[*sql.Tx](r.Context()).Get().
						QueryRowContext(r.Context(), "SELECT id FROM accounts WHERE token = $1", bearer.Token).
						Scan(&acct.ID)
					return acct, err
				}),
			),
		)

		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer secret")
		w := httptest.NewRecorder()
		Transaction(SQL(db, nil)).Handler(api).ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":42,"title":""}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will render begin failures as internal errors", func(t *testing.T) {
		db, mock := newTestDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("down"))

		h := Transaction(SQL(db, nil)).Handler(http.NotFoundHandler())

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
	})
}

func TestTxn(t *testing.T) {
	t.Run("will panic when used after the transaction finished", func(t *testing.T) {
		db, mock := newTestDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		var leaked *Txn[*sql.Tx]
		h := Transaction(SQL(db, nil)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			leaked = MustFrom[*sql.Tx](r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotNil(t, leaked)
		assert.PanicsWithValue(t, ErrTxnFinished, func() {
			leaked.Get()
		})
	})

	t.Run("will give every request its own transaction", func(t *testing.T) {
		db, mock := newTestDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectCommit()

		var ids []string
		h := Transaction(SQL(db, nil)).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ids = append(ids, MustFrom[*sql.Tx](r.Context()).ID().String())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])
	})

	t.Run("will not find a transaction of another handle type", func(t *testing.T) {
		ctx := withTxn(context.Background(), newTxn[*sql.Tx](nil))

		_, ok := From[*sql.Conn](ctx)
		assert.False(t, ok)
		assert.Panics(t, func() {
			MustFrom[*sql.Conn](ctx)
		})
	})
}

func TestDefaultSuccess(t *testing.T) {
	testCases := map[int]bool{
		http.StatusOK:                  true,
		http.StatusCreated:             true,
		http.StatusNoContent:           true,
		http.StatusFound:               true,
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusUnprocessableEntity: false,
		http.StatusInternalServerError: false,
		http.StatusServiceUnavailable:  false,
	}

	for status, want := range testCases {
		t.Run(http.StatusText(status), func(t *testing.T) {
			assert.Equal(t, want, DefaultSuccess(status, nil))
		})
	}
}
