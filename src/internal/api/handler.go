package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ce-fello/taxonomy-buddy/src/internal/api/apiErrors"
	"github.com/ce-fello/taxonomy-buddy/src/internal/diff"
	"github.com/ce-fello/taxonomy-buddy/src/internal/model"
	"github.com/ce-fello/taxonomy-buddy/src/internal/service"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
)

const (
	MessageSubmitted = "Review submitted successfully"
	MessageUpdated   = "Review updated successfully"
)

const defaultRequestTimeout = 5 * time.Second

type Handler struct {
	svc     *service.Service
	log     *zap.Logger
	timeout time.Duration
}

func NewHandler(svc *service.Service, logger *zap.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{svc: svc, log: logger, timeout: timeout}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/auth/login", h.withTimeout(h.login))

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/next-or-latest/{userId}", h.withTimeout(h.nextOrLatest))
		r.Get("/next-code-pair/{userId}", h.withTimeout(h.nextCodePair))
		r.Get("/user/{userId}", h.withTimeout(h.listReviews))
		r.Get("/review/{userId}/{targetId}", h.withTimeout(h.getReview))
		r.Get("/progress/{userId}", h.withTimeout(h.progress))
		r.Post("/submit", h.withTimeout(h.submit))
		r.Put("/{reviewId}", h.withTimeout(h.updateReview))
	})

	r.Get("/code-pairs/{codePairId}", h.withTimeout(h.getCodePair))
	r.Get("/code-pairs/{codePairId}/diff", h.withTimeout(h.codePairDiff))
	r.Post("/admin/import-code-pairs", h.withTimeout(h.importCodePairs))
	r.Get("/stats", h.withTimeout(h.getStats))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}

func (h *Handler) withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.BadRequest, "invalid body")
		return
	}
	userID, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"userId": userID})
}

func (h *Handler) nextOrLatest(w http.ResponseWriter, r *http.Request) {
	next, err := h.svc.NextOrLatest(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	body := map[string]any{"type": next.Type}
	if next.CodePair != nil {
		body["codePair"] = next.CodePair
	}
	writeOK(w, http.StatusOK, body)
}

func (h *Handler) nextCodePair(w http.ResponseWriter, r *http.Request) {
	pair, err := h.svc.NextCodePair(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"codePair": pair})
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListReviews(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (h *Handler) getReview(w http.ResponseWriter, r *http.Request) {
	by := model.LookupKind(r.URL.Query().Get("type"))
	review, err := h.svc.GetReview(r.Context(), chi.URLParam(r, "userId"), by, chi.URLParam(r, "targetId"))
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"review": review})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Progress(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"progress": p})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.BadRequest, "invalid body")
		return
	}
	review, created, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	status, msg := http.StatusOK, MessageUpdated
	if created {
		status, msg = http.StatusCreated, MessageSubmitted
	}
	writeOK(w, status, map[string]any{"message": msg, "review": review})
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categories            model.Categories `json:"categories"`
		IsFunctionalityChange bool             `json:"isFunctionalityChange"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.BadRequest, "invalid body")
		return
	}
	review, err := h.svc.UpdateReview(r.Context(), chi.URLParam(r, "reviewId"), req.Categories, req.IsFunctionalityChange)
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": MessageUpdated, "review": review})
}

func (h *Handler) getCodePair(w http.ResponseWriter, r *http.Request) {
	pair, err := h.svc.GetCodePair(r.Context(), chi.URLParam(r, "codePairId"))
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"codePair": pair})
}

func (h *Handler) codePairDiff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "codePairId")
	items, err := h.svc.CodePairDiff(r.Context(), id)
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	added, removed := diff.Stats(items)
	writeOK(w, http.StatusOK, map[string]any{
		"codePairId": id,
		"added":      added,
		"removed":    removed,
		"items":      items,
	})
}

func (h *Handler) importCodePairs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CodePairs []model.CodePair `json:"codePairs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.BadRequest, "invalid body")
		return
	}
	n, err := h.svc.ImportCodePairs(r.Context(), req.CodePairs)
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"imported": n})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		h.handleSvcError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"categories": stats.Categories, "reviewers": stats.Reviewers})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, fields map[string]any) {
	fields["success"] = true
	writeJSON(w, status, fields)
}

func writeError(w http.ResponseWriter, code int, errCode apiErrors.ErrorCode, message string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   map[string]any{"code": errCode, "message": message},
	})
}

func statusFor(code apiErrors.ErrorCode) int {
	switch code {
	case apiErrors.NotFound:
		return http.StatusNotFound
	case apiErrors.InvalidCredentials:
		return http.StatusUnauthorized
	case apiErrors.ValidationFailed, apiErrors.BadRequest:
		return http.StatusBadRequest
	case apiErrors.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleSvcError(w http.ResponseWriter, r *http.Request, err error) {
	var e apiErrors.APIError
	if errors.As(err, &e) {
		writeError(w, statusFor(e.Code), e.Code, e.Message)
		return
	}
	h.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, apiErrors.StorageFailure, "storage operation failed")
}
