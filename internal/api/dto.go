package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// NoteRequest is the body of note create and update requests.
type NoteRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
	Color string   `json:"color"`
}

// Validate checks the request fields.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Body, validation.Length(0, 1<<20)),
		validation.Field(&r.Color, validation.Match(colorRe).Error("must be a #rrggbb color")),
	)
}

func (r NoteRequest) draft() Draft {
	return Draft{Title: r.Title, Body: r.Body, Tags: r.Tags, Color: r.Color}
}

// PreviewLinksRequest is the body of the link preview endpoint.
type PreviewLinksRequest struct {
	Body string `json:"body"`
}

// Validate checks the request fields.
func (r PreviewLinksRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.Required),
	)
}
