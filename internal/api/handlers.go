package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/checksum"
	"github.com/starford/synamic/internal/contentservice"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *contentservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentservice.Service) *Handler {
	return &Handler{svc: svc}
}

// contentPath extracts the content path from the URL (everything after /api/contents/).
// Supports encoded slashes from OpenAPI clients (e.g. posts%2Fhello.md).
func contentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListContents handles GET /api/contents.
//
//	@Summary		List indexed contents with optional pagination and filtering
//	@Tags			contents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			mark	query		string	false	"Filter by mark key"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	ContentListResponse
//	@Security		BearerAuth
//	@Router			/contents [get]
func (h *Handler) ListContents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListContents(r.Context(), limit, offset, q.Get("mark"), q.Get("sort"))
	if err != nil {
		slog.Error("list contents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ContentListResponse{Contents: items, Total: total})
}

// GetContent handles GET /api/contents/*.
//
//	@Summary		Get a single content file with its resolved fields
//	@Tags			contents
//	@Produce		json
//	@Param			path	path		string	true	"Content path"
//	@Success		200		{object}	ContentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents/{path} [get]
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.GetContent(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get content failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// CreateContent handles POST /api/contents.
//
//	@Summary		Create a new content file
//	@Tags			contents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateContentRequest	true	"Content to create"
//	@Success		201		{object}	ContentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents [post]
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and source are required"))
		return
	}
	detail, err := h.svc.CreateContent(r.Context(), req.Path, []byte(req.Source))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("content already exists"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case isInvalid(err):
			writeJSON(w, http.StatusUnprocessableEntity, invalidBody(err))
		default:
			slog.Error("create content failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateContent handles PUT /api/contents/*.
//
//	@Summary		Update a content file with optimistic concurrency
//	@Tags			contents
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Content path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateContentRequest	true	"Updated source"
//	@Success		200		{object}	ContentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents/{path} [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	path := contentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source is required"))
		return
	}

	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	detail, err := h.svc.UpdateContent(r.Context(), path, []byte(req.Source), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case isInvalid(err):
			writeJSON(w, http.StatusUnprocessableEntity, invalidBody(err))
		default:
			slog.Error("update content failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.Header().Set("ETag", checksum.ETag(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// DeleteContent handles DELETE /api/contents/*.
//
//	@Summary		Delete a content file
//	@Tags			contents
//	@Param			path	path	string	true	"Content path"
//	@Success		204		"Content deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/contents/{path} [delete]
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteContent(r.Context(), path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete content failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across valid contents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Marks handles GET /api/marks.
//
//	@Summary		List marks with usage counts
//	@Tags			marks
//	@Produce		json
//	@Success		200	{object}	MarksResponse
//	@Security		BearerAuth
//	@Router			/marks [get]
func (h *Handler) Marks(w http.ResponseWriter, r *http.Request) {
	marks, err := h.svc.Marks(r.Context())
	if err != nil {
		slog.Error("marks failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MarksResponse{Marks: marks})
}

// ContentsByMark handles GET /api/marks/{key}.
//
//	@Summary		List contents carrying a mark
//	@Tags			marks
//	@Produce		json
//	@Param			key	path		string	true	"Mark key or title"
//	@Success		200	{object}	MarkContentsResponse
//	@Security		BearerAuth
//	@Router			/marks/{key} [get]
func (h *Handler) ContentsByMark(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	hits, err := h.svc.ContentsByMark(r.Context(), key)
	if err != nil {
		slog.Error("contents by mark failed", slog.String("key", key), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MarkContentsResponse{Key: key, Contents: hits})
}

// ParseSyd handles POST /api/syd/parse.
//
//	@Summary		Parse Syd text into a JSON tree
//	@Tags			parsers
//	@Accept			plain
//	@Produce		json
//	@Param			body	body		string	true	"Syd document"
//	@Success		200		{object}	SydParseResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/syd/parse [post]
func (h *Handler) ParseSyd(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}
	tree, err := h.svc.ParseSyd(r.Context(), text)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, invalidBody(err))
		return
	}
	writeJSON(w, http.StatusOK, SydParseResponse{Tree: tree})
}

// ParseModel handles POST /api/models/parse.
//
//	@Summary		Parse a model definition
//	@Tags			parsers
//	@Accept			plain
//	@Produce		json
//	@Param			name	query		string	false	"Model name"
//	@Param			body	body		string	true	"Model definition"
//	@Success		200		{object}	ModelParseResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models/parse [post]
func (h *Handler) ParseModel(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	fields, err := h.svc.ParseModel(r.Context(), name, text)
	if err != nil {
		if isInvalid(err) {
			writeJSON(w, http.StatusUnprocessableEntity, invalidBody(err))
		} else {
			slog.Error("parse model failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ModelParseResponse{Name: name, Fields: fields})
}

// Types handles GET /api/types.
//
//	@Summary		List registered field types
//	@Tags			parsers
//	@Produce		json
//	@Success		200	{object}	TypesResponse
//	@Security		BearerAuth
//	@Router			/types [get]
func (h *Handler) Types(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TypesResponse{Types: h.svc.Types()})
}

func readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return "", false
	}
	return string(body), true
}
