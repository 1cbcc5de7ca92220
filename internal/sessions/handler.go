package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/workflow"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/handlers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/routes"
)

// Handler provides HTTP endpoints for session operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// StartRequest is the JSON body for starting a classification session.
type StartRequest struct {
	DocumentID  string `json:"document_id"`
	ContentType string `json:"content_type,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "sessions"),
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Start},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/{id}/extract", Handler: h.Extract},
			{Method: "GET", Pattern: "/{id}/usage", Handler: h.Usage},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Cancel},
		},
	}
}

// List returns every tracked session, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.List())
}

// Start begins classification for a document and returns the session
// for polling.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	cmd, err := req.command()
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	session, err := h.sys.StartClassification(cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, session)
}

// Find returns the current session snapshot by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	session, err := h.sys.Find(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, session)
}

// Extract runs categorization and persistence for a classified session.
// The body carries optional metadata overrides; an empty body is fine.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var overrides workflow.Overrides
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	result, err := h.sys.StartExtraction(id, overrides)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Usage returns the session's token and cost summary.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	usage, err := h.sys.Usage(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, usage)
}

// Cancel aborts and removes a session.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.sys.Cancel(id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (r StartRequest) command() (StartCommand, error) {
	id, err := uuid.Parse(r.DocumentID)
	if err != nil {
		return StartCommand{}, fmt.Errorf("%w: document id: %w", ErrInvalidRequest, err)
	}

	contentType, err := providers.ParseContentType(r.ContentType)
	if err != nil {
		return StartCommand{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var provider providers.Name
	if r.Provider != "" {
		provider, err = providers.ParseName(r.Provider)
		if err != nil {
			return StartCommand{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	return StartCommand{
		DocumentID:  id,
		ContentType: contentType,
		Provider:    provider,
	}, nil
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: session id: %w", ErrInvalidRequest, err)
	}
	return id, nil
}
