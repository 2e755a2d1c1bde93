package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"pricewatch/models"
	"pricewatch/repository"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const (
	msgCheckFailed = "Nie udało się pobrać ceny. Strona może być zablokowana lub URL jest niepoprawny."
	msgNotFound    = "Produkt nie został znaleziony"
	msgDeleted     = "Produkt został usunięty"
)

// Checker answers an interactive price check.
type Checker interface {
	Check(ctx context.Context, url string) (models.CheckResult, error)
}

// BatchRunner runs the recheck pipeline on demand.
type BatchRunner interface {
	RunNow(ctx context.Context) (models.BatchSummary, error)
	LastSummary() (models.BatchSummary, bool)
}

// Handlers serves the HTTP API over a checker, the tracked-item store and the batch runner.
type Handlers struct {
	checker   Checker
	store     repository.Store
	batch     BatchRunner
	startedAt time.Time
	now       func() time.Time
}

// NewHandlers creates the API handlers.
func NewHandlers(checker Checker, store repository.Store, batch BatchRunner) *Handlers {
	return &Handlers{
		checker:   checker,
		store:     store,
		batch:     batch,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/check", h.CheckPrice).Methods(http.MethodPost)
	r.HandleFunc("/track", h.TrackProduct).Methods(http.MethodPost)
	r.HandleFunc("/tracked", h.GetTracked).Methods(http.MethodGet)
	r.HandleFunc("/tracked/{id}", h.DeleteTracked).Methods(http.MethodDelete)
	r.HandleFunc("/run-check", h.RunCheck).Methods(http.MethodPost)
}

// CheckRequest is the body of POST /check.
type CheckRequest struct {
	URL string `json:"url"`
}

// TrackRequest is the body of POST /track. Prices come from a prior check.
type TrackRequest struct {
	URL          string          `json:"url"`
	Email        string          `json:"email"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Lowest30D    decimal.Decimal `json:"lowest_30d"`
	Status       models.Verdict  `json:"status"`
	Title        string          `json:"title,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
}

// CheckPrice extracts and classifies the price of a product URL.
func (h *Handlers) CheckPrice(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	result, err := h.checker.Check(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, models.ErrNoPrice) {
			slog.Warn("Price check failed", "url", req.URL, "error", err)
			writeError(w, http.StatusBadRequest, msgCheckFailed)
			return
		}
		slog.Error("Price check error", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to check price")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// TrackProduct subscribes an email to price drops of a previously checked product.
func (h *Handlers) TrackProduct(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "URL and email are required")
		return
	}
	if !req.Status.IsValid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if req.CurrentPrice.IsNegative() || req.Lowest30D.IsNegative() {
		writeError(w, http.StatusBadRequest, "Prices must not be negative")
		return
	}

	title := req.Title
	if title == "" {
		title = models.DefaultTitle
	}
	now := h.now()
	item := models.TrackedItem{
		ID:             uuid.NewString(),
		URL:            req.URL,
		Email:          req.Email,
		Title:          title,
		ImageURL:       req.ImageURL,
		PriceAtAdd:     req.CurrentPrice,
		LastKnownPrice: req.CurrentPrice,
		Lowest30D:      req.Lowest30D,
		Currency:       models.Currency,
		Status:         req.Status,
		CreatedAt:      now,
		LastChecked:    now,
	}

	if err := repository.AddItem(r.Context(), h.store, item); err != nil {
		slog.Error("Failed to track product", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to track product")
		return
	}

	slog.Info("Tracking product", "id", item.ID, "url", item.URL, "price", item.PriceAtAdd)
	writeJSON(w, http.StatusCreated, item)
}

// GetTracked lists every tracked item.
func (h *Handlers) GetTracked(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.LoadAll(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrStoreUnavailable) {
			slog.Warn("Tracking store unavailable, returning empty list", "error", err)
			writeJSON(w, http.StatusOK, []models.TrackedItem{})
			return
		}
		slog.Error("Failed to get tracked items", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get tracked items")
		return
	}

	// Ensure we always return an array, even if empty
	if items == nil {
		items = []models.TrackedItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// DeleteTracked removes a tracked item by id.
func (h *Handlers) DeleteTracked(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := repository.DeleteItem(r.Context(), h.store, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNotFound)
			return
		}
		slog.Error("Failed to delete tracked item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete tracked item")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": msgDeleted})
}

// RunCheck runs one recheck batch synchronously.
func (h *Handlers) RunCheck(w http.ResponseWriter, r *http.Request) {
	summary, err := h.batch.RunNow(r.Context())
	if err != nil {
		slog.Error("Batch check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Batch check failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Batch check completed",
		"summary": summary,
	})
}

// HealthCheck reports service status, tracked item count and the last batch.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tracked := 0
	if items, err := h.store.LoadAll(r.Context()); err == nil {
		tracked = len(items)
	}

	response := map[string]interface{}{
		"service":       "pricewatch",
		"status":        "healthy",
		"timestamp":     h.now(),
		"uptime":        h.now().Sub(h.startedAt).Round(time.Second).String(),
		"goroutines":    runtime.NumGoroutine(),
		"memory_mb":     m.Alloc / 1024 / 1024,
		"tracked_items": tracked,
	}
	if summary, ok := h.batch.LastSummary(); ok {
		response["last_batch"] = summary
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
