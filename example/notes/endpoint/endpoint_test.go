// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/z5labs/restkit/db"
	"github.com/z5labs/restkit/example/notes/note"
	"github.com/z5labs/restkit/rest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newTestApi(t *testing.T) (*rest.Api, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	deps := Deps{
		Store: note.NewStore(),
		Tx:    db.Transaction(db.SQL(sqlDB, nil)),
		Auth:  JWT(testSecret, "notes"),
	}

	api := rest.NewApi(
		"notes",
		"v0.0.0",
		CreateNote(deps),
		ListNotes(deps),
		GetNote(deps),
		UpdateNote(deps),
		DeleteNote(deps),
	)
	return api, mock
}

func signToken(t *testing.T, secret []byte, subject string) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "notes",
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})

	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, api http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	api.ServeHTTP(w, req)
	return w
}

var noteColumns = []string{"id", "owner", "title", "body"}

func TestAuth(t *testing.T) {
	t.Run("will respond with 401", func(t *testing.T) {
		t.Run("if no bearer token is given", func(t *testing.T) {
			api, mock := newTestApi(t)

			w := do(t, api, http.MethodGet, "/notes", "", "")

			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the token is signed with another secret", func(t *testing.T) {
			api, mock := newTestApi(t)

			w := do(t, api, http.MethodGet, "/notes", signToken(t, []byte("other"), "alice"), "")

			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run("if the token has no subject", func(t *testing.T) {
			api, mock := newTestApi(t)

			w := do(t, api, http.MethodGet, "/notes", signToken(t, testSecret, ""), "")

			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	})
}

func TestCreateNote(t *testing.T) {
	t.Run("will create the note for the caller", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO notes").
			WithArgs("alice", "hello", "world").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		w := do(t, api, http.MethodPost, "/notes", signToken(t, testSecret, "alice"), `{"title":" hello ","body":"world"}`)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/notes/1", w.Header().Get("Location"))
		assert.JSONEq(t, `{"id":1,"owner":"alice","title":"hello","body":"world"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will reject an empty title", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		w := do(t, api, http.MethodPost, "/notes", signToken(t, testSecret, "alice"), `{"title":"  "}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"invalid_field","details":{"field":"title","reason":"must not be empty"}}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with 422 if the body is not json", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		w := do(t, api, http.MethodPost, "/notes", signToken(t, testSecret, "alice"), `{"title":`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unprocessable_content", body["error"])
		assert.NotEmpty(t, body["reason"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with 500 and roll back if the insert fails", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO notes").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		w := do(t, api, http.MethodPost, "/notes", signToken(t, testSecret, "alice"), `{"title":"hello"}`)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal_server_error"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListNotes(t *testing.T) {
	t.Run("will list the notes of the caller", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner, title, body FROM notes").
			WithArgs("alice").
			WillReturnRows(
				sqlmock.NewRows(noteColumns).
					AddRow(1, "alice", "a", "").
					AddRow(2, "alice", "b", "text"),
			)
		mock.ExpectCommit()

		w := do(t, api, http.MethodGet, "/notes", signToken(t, testSecret, "alice"), "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"notes":[
			{"id":1,"owner":"alice","title":"a","body":""},
			{"id":2,"owner":"alice","title":"b","body":"text"}
		]}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with an empty list", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner, title, body FROM notes").WillReturnRows(sqlmock.NewRows(noteColumns))
		mock.ExpectCommit()

		w := do(t, api, http.MethodGet, "/notes", signToken(t, testSecret, "alice"), "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"notes":[]}`, w.Body.String())
	})
}

func TestGetNote(t *testing.T) {
	t.Run("will respond with the note", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner, title, body FROM notes").
			WithArgs(int64(3), "alice").
			WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(3, "alice", "a", "b"))
		mock.ExpectCommit()

		w := do(t, api, http.MethodGet, "/notes/3", signToken(t, testSecret, "alice"), "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":3,"owner":"alice","title":"a","body":"b"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with 404 if the note does not exist", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner, title, body FROM notes").
			WithArgs(int64(3), "bob").
			WillReturnRows(sqlmock.NewRows(noteColumns))
		mock.ExpectRollback()

		w := do(t, api, http.MethodGet, "/notes/3", signToken(t, testSecret, "bob"), "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"note_not_found"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with 422 if the id is not a number", func(t *testing.T) {
		api, mock := newTestApi(t)

		w := do(t, api, http.MethodGet, "/notes/abc", signToken(t, testSecret, "alice"), "")

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateNote(t *testing.T) {
	t.Run("will only update the fields present in the body", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE notes SET title = \$1 WHERE`).
			WithArgs("new", int64(1), "alice").
			WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(1, "alice", "new", "kept"))
		mock.ExpectCommit()

		w := do(t, api, http.MethodPatch, "/notes/1", signToken(t, testSecret, "alice"), `{"title":" new ","body":null}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":1,"owner":"alice","title":"new","body":"kept"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will read the note if nothing changes", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, owner, title, body FROM notes").
			WithArgs(int64(1), "alice").
			WillReturnRows(sqlmock.NewRows(noteColumns).AddRow(1, "alice", "t", "b"))
		mock.ExpectCommit()

		w := do(t, api, http.MethodPatch, "/notes/1", signToken(t, testSecret, "alice"), `{}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will reject clearing the title", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		w := do(t, api, http.MethodPatch, "/notes/1", signToken(t, testSecret, "alice"), `{"title":""}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteNote(t *testing.T) {
	t.Run("will delete the note", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM notes").
			WithArgs(int64(5), "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := do(t, api, http.MethodDelete, "/notes/5", signToken(t, testSecret, "alice"), "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("will respond with 404 if nothing was deleted", func(t *testing.T) {
		api, mock := newTestApi(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM notes").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		w := do(t, api, http.MethodDelete, "/notes/5", signToken(t, testSecret, "alice"), "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOpenApi(t *testing.T) {
	api, _ := newTestApi(t)

	w := do(t, api, http.MethodGet, "/openapi.json", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Components struct {
			SecuritySchemes map[string]struct {
				Type         string `json:"type"`
				Scheme       string `json:"scheme"`
				BearerFormat string `json:"bearerFormat"`
			} `json:"securitySchemes"`
		} `json:"components"`
		Paths map[string]map[string]struct {
			OperationID string                     `json:"operationId"`
			Security    []map[string][]string      `json:"security"`
			Responses   map[string]json.RawMessage `json:"responses"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	scheme, ok := doc.Components.SecuritySchemes["User"]
	require.True(t, ok)
	assert.Equal(t, "http", scheme.Type)
	assert.Equal(t, "bearer", scheme.Scheme)
	assert.Equal(t, "JWT", scheme.BearerFormat)

	patchOp := doc.Paths["/notes/{id}"]["patch"]
	assert.Equal(t, "updateNote", patchOp.OperationID)
	assert.Equal(t, []map[string][]string{{"User": {}}}, patchOp.Security)
	for _, status := range []string{"200", "400", "401", "404", "422", "500"} {
		assert.Contains(t, patchOp.Responses, status)
	}
}
