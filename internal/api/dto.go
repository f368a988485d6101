package api

import (
	"github.com/starford/synamic/internal/contentservice"
	"github.com/starford/synamic/internal/index"
)

// CreateContentRequest is the request body for creating a content file.
type CreateContentRequest struct {
	Path   string `json:"path" example:"posts/hello.md" validate:"required"`
	Source string `json:"source" example:"---\ntitle: Hello\n---\nWorld" validate:"required"`
}

// UpdateContentRequest is the request body for updating a content file.
type UpdateContentRequest struct {
	Source string `json:"source" example:"---\ntitle: Updated\n---\nWorld" validate:"required"`
}

// ContentDetail is the full content response type (aliased from the domain layer).
type ContentDetail = contentservice.ContentDetail

// ContentListItem is a lightweight item in a list response (aliased from the domain layer).
type ContentListItem = contentservice.ContentListItem

// ContentListResponse wraps paginated content listings.
type ContentListResponse struct {
	Contents []ContentListItem `json:"contents" validate:"required"`
	Total    int               `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// MarksResponse lists every mark with its usage count.
type MarksResponse struct {
	Marks []index.MarkCount `json:"marks" validate:"required"`
}

// MarkContentsResponse lists the documents carrying one mark.
type MarkContentsResponse struct {
	Key      string          `json:"key" example:"go" validate:"required"`
	Contents []index.MarkHit `json:"contents" validate:"required"`
}

// SydParseResponse is the JSON form of a parsed Syd document.
type SydParseResponse struct {
	Tree any `json:"tree" validate:"required"`
}

// ModelParseResponse lists the fields of a parsed model.
type ModelParseResponse struct {
	Name   string                     `json:"name" example:"post" validate:"required"`
	Fields []contentservice.FieldInfo `json:"fields" validate:"required"`
}

// TypesResponse lists the registered field types.
type TypesResponse struct {
	Types []string `json:"types" validate:"required"`
}
