// Package api provides HTTP handlers for the Trailfeed API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/trailfeed/internal/enrich"
	"github.com/onnwee/trailfeed/internal/feed"
	"github.com/onnwee/trailfeed/internal/interaction"
	"github.com/onnwee/trailfeed/internal/middleware"
	"github.com/onnwee/trailfeed/internal/ranking"
	"github.com/onnwee/trailfeed/internal/validate"
)

// FeedService abstracts the feed pipeline operations the handlers depend on.
// *feed.Coordinator satisfies this interface.
type FeedService interface {
	GetPersonalizedFeed(ctx context.Context, userID string, page, pageSize int) feed.CachedFeedPage
	GetContextualizedFeed(ctx context.Context, userID string, uc enrich.UserContext, count int) []ranking.ScoredCandidate
	RecordInteraction(ctx context.Context, in interaction.Interaction) (*interaction.Interaction, error)
	RefreshFeedCache(ctx context.Context, userID string, pageSize int) error
}

// ContextSource builds a per-request user context from HTTP signals.
// *enrich.ContextBuilder satisfies this interface.
type ContextSource interface {
	BuildContext(ctx context.Context, userID string, r *http.Request) enrich.UserContext
}

// FeedHandlers holds dependencies for feed HTTP handlers.
type FeedHandlers struct {
	service           FeedService
	contexts          ContextSource
	contextualEnabled bool
}

// NewFeedHandlers creates a new FeedHandlers instance.
// When contextualEnabled is false, the contextual endpoint serves the
// personalized ranking without applying the boost pipeline.
func NewFeedHandlers(service FeedService, contexts ContextSource, contextualEnabled bool) *FeedHandlers {
	return &FeedHandlers{
		service:           service,
		contexts:          contexts,
		contextualEnabled: contextualEnabled,
	}
}

// InteractionRequest represents the request body for recording an interaction.
type InteractionRequest struct {
	UserID          string  `json:"user_id"`
	ContentID       string  `json:"content_id"`
	Type            string  `json:"type"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ContextualFeedResponse is the response body for the contextual feed endpoint.
type ContextualFeedResponse struct {
	Items       []ranking.ScoredCandidate `json:"items"`
	Count       int                       `json:"count"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// RefreshResponse is the response body for a feed refresh request.
type RefreshResponse struct {
	Status string `json:"status"`
}

// HandleUserRoutes dispatches requests under /users/:
//
//	GET  /users/{id}/feed             - paginated personalized feed
//	GET  /users/{id}/feed/contextual  - context-boosted feed
//	POST /users/{id}/feed/refresh     - invalidate and rewarm the user's feed
func (h *FeedHandlers) HandleUserRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/users/"), "/")

	userID, err := validate.UserID(parts[0])
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidUserID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidUserID, "Invalid user ID")
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "feed":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		h.getFeed(w, r, userID)
	case len(parts) == 3 && parts[1] == "feed" && parts[2] == "contextual":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		h.getContextualFeed(w, r, userID)
	case len(parts) == 3 && parts[1] == "feed" && parts[2] == "refresh":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r)
			return
		}
		h.refreshFeed(w, r, userID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Not found")
	}
}

func (h *FeedHandlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
	WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
}

// getFeed handles GET /users/{id}/feed - the paginated personalized feed.
func (h *FeedHandlers) getFeed(w http.ResponseWriter, r *http.Request, userID string) {
	page, pageSize, err := parsePageQuery(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPage)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPage, err.Error())
		return
	}

	result := h.service.GetPersonalizedFeed(r.Context(), userID, page, pageSize)
	writeJSON(w, r.Context(), http.StatusOK, result)
}

// getContextualFeed handles GET /users/{id}/feed/contextual.
// Location, device, and session signals are read from headers and query
// parameters; missing signals degrade to a neutral context.
func (h *FeedHandlers) getContextualFeed(w http.ResponseWriter, r *http.Request, userID string) {
	count := validate.DefaultPageSize
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPage)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPage, "count must be a positive integer")
			return
		}
		count = parsed
	}
	if count > validate.MaxPageSize {
		count = validate.MaxPageSize
	}

	var items []ranking.ScoredCandidate
	if h.contextualEnabled {
		uc := h.contexts.BuildContext(r.Context(), userID, r)
		items = h.service.GetContextualizedFeed(r.Context(), userID, uc, count)
	} else {
		page := h.service.GetPersonalizedFeed(r.Context(), userID, 1, count)
		items = page.Items
	}
	if items == nil {
		items = []ranking.ScoredCandidate{}
	}

	writeJSON(w, r.Context(), http.StatusOK, ContextualFeedResponse{
		Items:       items,
		Count:       len(items),
		GeneratedAt: time.Now().UTC(),
	})
}

// refreshFeed handles POST /users/{id}/feed/refresh.
// It invalidates the user's cached pages and synchronously rewarms the first page.
func (h *FeedHandlers) refreshFeed(w http.ResponseWriter, r *http.Request, userID string) {
	pageSize := validate.DefaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > validate.MaxPageSize {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPage)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPage, "page_size must be between 1 and 100")
			return
		}
		pageSize = parsed
	}

	if err := h.service.RefreshFeedCache(r.Context(), userID, pageSize); err != nil {
		slog.ErrorContext(r.Context(), "feed refresh failed", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to refresh feed")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, RefreshResponse{Status: "refreshed"})
}

// RecordInteraction handles POST /interactions - records an engagement event
// and invalidates the acting user's cached feed pages.
func (h *FeedHandlers) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}

	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	userID, err := validate.UserID(req.UserID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidUserID)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidUserID, "Invalid user ID")
		return
	}

	contentID, err := validate.ContentID(req.ContentID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid content ID")
		return
	}

	in := interaction.Interaction{
		UserID:    userID,
		ContentID: contentID,
		Type:      interaction.Type(req.Type),
		Duration:  time.Duration(req.DurationSeconds * float64(time.Second)),
	}

	recorded, err := h.service.RecordInteraction(r.Context(), in)
	if err != nil {
		if errors.Is(err, interaction.ErrInvalidType) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidInteraction)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidInteraction, "Interaction type must be like, comment, or view")
			return
		}
		slog.ErrorContext(r.Context(), "failed to record interaction", "user_id", userID, "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record interaction")
		return
	}

	writeJSON(w, r.Context(), http.StatusCreated, recorded)
}

// parsePageQuery reads page and page_size query parameters, applying
// defaults for missing values.
func parsePageQuery(r *http.Request) (int, int, error) {
	page := 0
	pageSize := 0

	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, validate.ErrInvalidPage
		}
		page = parsed
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, validate.ErrInvalidPageSize
		}
		pageSize = parsed
	}

	return validate.PageParams(page, pageSize)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
