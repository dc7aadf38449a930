package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/domain"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// CartAPI is the slice of the cart service the HTTP surface needs.
type CartAPI interface {
	CreateCart(ctx context.Context, code string) (*domain.Cart, error)
	FindByCode(ctx context.Context, code string) (*domain.Cart, error)
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	StateCounts(ctx context.Context) (*domain.StateCounts, error)
}

type API struct {
	carts CartAPI
	log   *logrus.Logger
}

func NewAPI(carts CartAPI, log *logrus.Logger) *API {
	return &API{carts: carts, log: log}
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateCart provisions a physical cart record for a printed code. Used by
// operations when new carts are rolled out to a store.
func (a *API) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	cart, err := a.carts.CreateCart(r.Context(), req.Code)
	if err != nil {
		a.log.WithError(err).Error("failed to create cart")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create cart"})
		return
	}

	respondJSON(w, http.StatusCreated, cart)
}

func (a *API) GetCart(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	cart, err := a.carts.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "cart not found"})
			return
		}
		a.log.WithError(err).Error("failed to get cart")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get cart"})
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// GetUserCart serves the cart currently claimed by a user. This is the hot
// read during a shopping session (the mobile app polls it between scans), so
// it goes through the cached path.
func (a *API) GetUserCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	cart, err := a.carts.GetCart(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "no active cart for user"})
			return
		}
		a.log.WithError(err).Error("failed to get user cart")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user cart"})
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (a *API) StateCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := a.carts.StateCounts(r.Context())
	if err != nil {
		a.log.WithError(err).Error("failed to get state counts")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get state counts"})
		return
	}

	respondJSON(w, http.StatusOK, counts)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
