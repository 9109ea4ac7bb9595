// Package handler exposes the glossary engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/changelog"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/cache"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/payload"
	apperrors "github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/tracing"
)

// IndexFallbackHeader is set on match responses that carry the index
// payload because nothing matched.
const IndexFallbackHeader = "X-Glossary-Index-Fallback"

// Engine is the engine surface the handler serves.
type Engine interface {
	MatchOrIndex(ctx context.Context, contentID, text string) (payload.Payload, bool, error)
	JoinFields(fields map[string]string) string
	Term(id string) (payload.TermView, error)
	IndexPayload(limit int) payload.Payload
	Reload(ctx context.Context, muteTags string) (*glossary.ReloadReport, error)
	ReloadCurrent(ctx context.Context) (*glossary.ReloadReport, error)
	CacheStats() cache.Stats
	InvalidateCache() int
	Changelog(ctx context.Context, limit int) ([]changelog.Entry, error)
}

type Handler struct {
	engine            Engine
	defaultIndexLimit int
	logger            *slog.Logger
}

func New(engine Engine, defaultIndexLimit int) *Handler {
	return &Handler{
		engine:            engine,
		defaultIndexLimit: defaultIndexLimit,
		logger:            logger.WithComponent("glossary-handler"),
	}
}

// Register mounts every glossary route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/match", h.Match)
	mux.HandleFunc("GET /api/v1/terms/{id}", h.Term)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("POST /api/v1/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/changelog", h.Changelog)
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := ValidateMatchRequest(&req); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := ""
	if req.Text != nil {
		text = *req.Text
	} else {
		text = h.engine.JoinFields(req.Fields)
	}

	p, fallback, err := h.engine.MatchOrIndex(ctx, req.ContentID, text)
	if err != nil {
		// A failed scan still answers with the empty payload.
		log.Warn("match returned empty payload", "content_id", req.ContentID, "error", err)
	}
	if fallback {
		w.Header().Set(IndexFallbackHeader, "true")
	}
	log.Debug("match completed",
		"content_id", req.ContentID,
		"terms", len(p.Terms),
		"index_fallback", fallback,
	)
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.engine.Term(id)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("term lookup failed", "id", id, "error", err)
		}
		h.writeError(w, status, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultIndexLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	h.writeJSON(w, http.StatusOK, h.engine.IndexPayload(limit))
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ctx, span := tracing.StartSpan(ctx, "http.reload", logger.RequestID(ctx))
	var (
		report *glossary.ReloadReport
		err    error
	)
	if req.MuteTags != nil {
		report, err = h.engine.Reload(ctx, *req.MuteTags)
	} else {
		report, err = h.engine.ReloadCurrent(ctx)
	}
	span.End()
	span.Log(logger.FromContext(ctx))
	if err != nil {
		logger.FromContext(ctx).Error("reload failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "reload failed")
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.CacheStats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"entries":  stats.Entries,
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"computes": stats.Computes,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	n := h.engine.InvalidateCache()
	h.logger.Info("cache invalidated", "entries", n)
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "entries": n})
}

func (h *Handler) Changelog(w http.ResponseWriter, r *http.Request) {
	limit := 1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}
	entries, err := h.engine.Changelog(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("changelog read failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "changelog unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
