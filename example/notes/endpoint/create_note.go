// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/z5labs/restkit/example/notes/note"
	"github.com/z5labs/restkit/rest"
)

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	Title string `json:"title" required:"true" maxLength:"255"`
	Body  string `json:"body"`
}

var noteCreated = rest.Data[note.Note](http.StatusCreated).Describe("The created note.")

type createNoteHandler struct {
	store Store
}

// CreateNote registers POST /notes.
func CreateNote(d Deps) rest.ApiOption {
	h := &createNoteHandler{store: d.Store}

	return rest.Operation(
		http.MethodPost,
		rest.BasePath("/notes"),
		rest.ConsumeJson(h),
		d.operation(
			rest.OperationID("createNote"),
			rest.Summary("Create a note"),
			rest.Returns(rest.Set{noteCreated, invalidField}),
		)...,
	)
}

func (h *createNoteHandler) Handle(ctx context.Context, req *CreateNoteRequest) (*rest.Reply, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidField.Err(InvalidField{Field: "title", Reason: "must not be empty"})
	}

	n, err := h.store.Create(ctx, tx(ctx), note.Note{
		Owner: caller(ctx),
		Title: title,
		Body:  req.Body,
	})
	if err != nil {
		return nil, rest.InternalError(ctx, err)
	}

	reply := noteCreated.Reply(n)
	reply.Header().Set("Location", "/notes/"+strconv.FormatInt(n.ID, 10))
	return reply, nil
}
