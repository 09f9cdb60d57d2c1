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

var noteDeleted = rest.Empty(http.StatusOK).Describe("The note was deleted.")

type deleteNoteHandler struct {
	store Store
}

// DeleteNote registers DELETE /notes/{id}.
func DeleteNote(d Deps) rest.ApiOption {
	h := &deleteNoteHandler{store: d.Store}

	return rest.Operation(
		http.MethodDelete,
		notePath(),
		rest.HandlerFunc[rest.EmptyRequest, rest.Reply](h.Handle),
		d.operation(
			rest.OperationID("deleteNote"),
			rest.Returns(rest.Set{noteDeleted, noteNotFound}),
		)...,
	)
}

func (h *deleteNoteHandler) Handle(ctx context.Context, _ *rest.EmptyRequest) (*rest.Reply, error) {
	id, err := noteID(ctx)
	if err != nil {
		return nil, err
	}

	err = h.store.Delete(ctx, tx(ctx), caller(ctx), id)
	if err != nil {
		return nil, storeError(ctx, err)
	}
	return noteDeleted.Reply(), nil
}
