// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func getOpenAPISpec(t *testing.T, api *Api) map[string]any {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	api.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var spec map[string]any
	err := json.NewDecoder(w.Body).Decode(&spec)
	require.NoError(t, err)

	return spec
}

// lookup walks nested maps by key, failing the test if any key is missing.
func lookup(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()

	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		require.Truef(t, ok, "expected object at %q", k)

		cur, ok = obj[k]
		require.Truef(t, ok, "missing key %q", k)
	}
	return cur
}

func serve(api http.Handler, method, target string, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if len(body) > 0 {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	for k, vs := range header {
		req.Header[k] = vs
	}

	w := httptest.NewRecorder()
	api.ServeHTTP(w, req)
	return w
}

func decodeJson(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}
