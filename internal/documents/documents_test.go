package documents_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/documents"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/query"
)

func ptr[T any](v T) *T { return &v }

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"file too large", documents.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid file", documents.ErrInvalidFile, http.StatusBadRequest},
		{"invalid status", documents.ErrInvalidStatus, http.StatusBadRequest},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", documents.ErrNotFound), http.StatusNotFound},
		{"wrapped duplicate", fmt.Errorf("insert failed: %w", documents.ErrDuplicate), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := documents.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("all params present", func(t *testing.T) {
		values := url.Values{
			"status":        {"uploaded"},
			"filename":      {"manual"},
			"content_type":  {"application/pdf"},
			"source_isbn":   {"0-935696-00-8"},
			"source_author": {"Gygax"},
		}

		f := documents.FiltersFromQuery(values)

		if f.Status == nil || *f.Status != "uploaded" {
			t.Errorf("Status = %v, want uploaded", f.Status)
		}
		if f.Filename == nil || *f.Filename != "manual" {
			t.Errorf("Filename = %v, want manual", f.Filename)
		}
		if f.ContentType == nil || *f.ContentType != "application/pdf" {
			t.Errorf("ContentType = %v, want application/pdf", f.ContentType)
		}
		if f.SourceISBN == nil || *f.SourceISBN != "0-935696-00-8" {
			t.Errorf("SourceISBN = %v, want 0-935696-00-8", f.SourceISBN)
		}
		if f.SourceAuthor == nil || *f.SourceAuthor != "Gygax" {
			t.Errorf("SourceAuthor = %v, want Gygax", f.SourceAuthor)
		}
	})

	t.Run("empty params yield nil fields", func(t *testing.T) {
		f := documents.FiltersFromQuery(url.Values{})

		if f.Status != nil {
			t.Errorf("Status = %v, want nil", f.Status)
		}
		if f.Filename != nil {
			t.Errorf("Filename = %v, want nil", f.Filename)
		}
		if f.ContentType != nil {
			t.Errorf("ContentType = %v, want nil", f.ContentType)
		}
		if f.SourceISBN != nil {
			t.Errorf("SourceISBN = %v, want nil", f.SourceISBN)
		}
		if f.SourceAuthor != nil {
			t.Errorf("SourceAuthor = %v, want nil", f.SourceAuthor)
		}
	})

	t.Run("partial params", func(t *testing.T) {
		values := url.Values{
			"status":   {"extracted"},
			"filename": {"monster"},
		}

		f := documents.FiltersFromQuery(values)

		if f.Status == nil || *f.Status != "extracted" {
			t.Errorf("Status = %v, want extracted", f.Status)
		}
		if f.Filename == nil || *f.Filename != "monster" {
			t.Errorf("Filename = %v, want monster", f.Filename)
		}
		if f.SourceAuthor != nil {
			t.Errorf("SourceAuthor = %v, want nil", f.SourceAuthor)
		}
	})
}

func TestFiltersApply(t *testing.T) {
	projection := query.
		NewProjectionMap("public", "documents", "d").
		Project("status", "Status").
		Project("filename", "Filename").
		Project("content_type", "ContentType").
		Project("source_isbn", "SourceISBN").
		Project("source_author", "SourceAuthor")

	t.Run("no filters produces no WHERE clause", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{}
		f.Apply(b)
		sql, args := b.Build()

		wantSQL := "SELECT d.status, d.filename, d.content_type, d.source_isbn, d.source_author FROM public.documents d"
		if sql != wantSQL {
			t.Errorf("sql = %q, want %q", sql, wantSQL)
		}
		if len(args) != 0 {
			t.Errorf("args = %v, want empty", args)
		}
	})

	t.Run("status equals filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{Status: ptr("uploaded")}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 1 {
			t.Fatalf("args length = %d, want 1", len(args))
		}
		if v, ok := args[0].(*string); !ok || *v != "uploaded" {
			t.Errorf("args[0] = %v, want *uploaded", args[0])
		}
	})

	t.Run("filename contains filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{Filename: ptr("manual")}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 1 || args[0] != "%manual%" {
			t.Errorf("args = %v, want [%%manual%%]", args)
		}
	})

	t.Run("source author contains filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{SourceAuthor: ptr("gygax")}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 1 || args[0] != "%gygax%" {
			t.Errorf("args = %v, want [%%gygax%%]", args)
		}
	})

	t.Run("source isbn equals filter", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{SourceISBN: ptr("0-935696-00-8")}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 1 {
			t.Fatalf("args length = %d, want 1", len(args))
		}
		if v, ok := args[0].(*string); !ok || *v != "0-935696-00-8" {
			t.Errorf("args[0] = %v, want *0-935696-00-8", args[0])
		}
	})

	t.Run("multiple filters combine with AND", func(t *testing.T) {
		b := query.NewBuilder(projection)
		f := documents.Filters{
			Status:       ptr("uploaded"),
			Filename:     ptr("manual"),
			SourceAuthor: ptr("gygax"),
		}
		f.Apply(b)
		_, args := b.Build()

		if len(args) != 3 {
			t.Errorf("args length = %d, want 3", len(args))
		}
	})
}
