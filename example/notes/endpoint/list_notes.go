// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/restkit/example/notes/note"
	"github.com/z5labs/restkit/rest"
)

// ListNotesResponse is the body of GET /notes.
type ListNotesResponse struct {
	Notes []note.Note `json:"notes"`
}

var notesListed = rest.Data[ListNotesResponse](http.StatusOK).Describe("The notes of the caller.")

type listNotesHandler struct {
	store Store
}

// ListNotes registers GET /notes.
func ListNotes(d Deps) rest.ApiOption {
	h := &listNotesHandler{store: d.Store}

	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/notes"),
		rest.HandlerFunc[rest.EmptyRequest, rest.Reply](h.Handle),
		d.operation(
			rest.OperationID("listNotes"),
			rest.Returns(notesListed),
		)...,
	)
}

func (h *listNotesHandler) Handle(ctx context.Context, _ *rest.EmptyRequest) (*rest.Reply, error) {
	notes, err := h.store.List(ctx, tx(ctx), caller(ctx))
	if err != nil {
		return nil, rest.InternalError(ctx, err)
	}
	return notesListed.Reply(ListNotesResponse{Notes: notes}), nil
}
