package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/syd"
	"github.com/starford/synamic/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string   `json:"error" validate:"required"`
	Line    int      `json:"line,omitempty" example:"3"`
	Text    string   `json:"text,omitempty" example:"block {"`
	States  []string `json:"states,omitempty"`
	Snippet string   `json:"snippet,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// invalidBody describes unprocessable input, with the position of the
// first syntax error when there is one.
func invalidBody(err error) errResponse {
	body := errorBody(err.Error())
	var serr *syd.ParseError
	var merr *model.ParseError
	switch {
	case errors.As(err, &serr):
		body.Line = serr.Line
		body.Text = serr.Text
		body.States = make([]string, len(serr.States))
		for i, s := range serr.States {
			body.States[i] = s.String()
		}
	case errors.As(err, &merr):
		body.Line = merr.Line
		body.Snippet = merr.Snippet
	}
	return body
}

// isInvalid reports whether err was caused by the submitted input.
func isInvalid(err error) bool {
	var serr *syd.ParseError
	var merr *model.ParseError
	return errors.Is(err, apperr.ErrInvalid) ||
		errors.Is(err, types.ErrUnknownType) ||
		errors.As(err, &serr) ||
		errors.As(err, &merr)
}
