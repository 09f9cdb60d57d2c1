// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/restkit/rest"
)

type getNoteHandler struct {
	store Store
}

// GetNote registers GET /notes/{id}.
func GetNote(d Deps) rest.ApiOption {
	h := &getNoteHandler{store: d.Store}

	return rest.Operation(
		http.MethodGet,
		notePath(),
		rest.HandlerFunc[rest.EmptyRequest, rest.Reply](h.Handle),
		d.operation(
			rest.OperationID("getNote"),
			rest.Returns(rest.Set{noteFound, noteNotFound}),
		)...,
	)
}

func (h *getNoteHandler) Handle(ctx context.Context, _ *rest.EmptyRequest) (*rest.Reply, error) {
	id, err := noteID(ctx)
	if err != nil {
		return nil, err
	}

	n, err := h.store.Get(ctx, tx(ctx), caller(ctx), id)
	if err != nil {
		return nil, storeError(ctx, err)
	}
	return noteFound.Reply(n), nil
}
