// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"
	"strings"

	"github.com/z5labs/restkit/example/notes/note"
	"github.com/z5labs/restkit/patch"
	"github.com/z5labs/restkit/rest"
)

// UpdateNoteRequest is the body of PATCH /notes/{id}. Absent or null
// fields are left unchanged.
type UpdateNoteRequest struct {
	Title patch.Value[string] `json:"title"`
	Body  patch.Value[string] `json:"body"`
}

type updateNoteHandler struct {
	store Store
}

// UpdateNote registers PATCH /notes/{id}.
func UpdateNote(d Deps) rest.ApiOption {
	h := &updateNoteHandler{store: d.Store}

	return rest.Operation(
		http.MethodPatch,
		notePath(),
		rest.ConsumeJson(h),
		d.operation(
			rest.OperationID("updateNote"),
			rest.Summary("Update parts of a note"),
			rest.Returns(rest.Set{noteFound, noteNotFound, invalidField}),
		)...,
	)
}

func (h *updateNoteHandler) Handle(ctx context.Context, req *UpdateNoteRequest) (*rest.Reply, error) {
	id, err := noteID(ctx)
	if err != nil {
		return nil, err
	}

	title := patch.Map(req.Title, strings.TrimSpace)
	if v, ok := title.Get(); ok && v == "" {
		return nil, invalidField.Err(InvalidField{Field: "title", Reason: "must not be empty"})
	}

	n, err := h.store.Update(ctx, tx(ctx), caller(ctx), id, note.Patch{
		Title: title,
		Body:  req.Body,
	})
	if err != nil {
		return nil, storeError(ctx, err)
	}
	return noteFound.Reply(n), nil
}
