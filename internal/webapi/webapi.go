// Package webapi serves the content of a store as a read-only JSON API.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"canadiantracker/internal/codes"
	"canadiantracker/internal/components/assert"
	"canadiantracker/internal/components/telemetry"
	"canadiantracker/internal/query"
	"canadiantracker/internal/store"
	"canadiantracker/lib/serviceutil"
)

const (
	report_api_products = "api.products"
	report_api_product  = "api.product"
	report_api_history  = "api.history"
	report_api_sku      = "api.sku"
)

// Server answers requests one at a time since a store is not safe for
// concurrent use.
type Server struct {
	mutex sync.Mutex
	store *store.Store
	tel   telemetry.API
}

type config struct {
	tel telemetry.API
}

type Option func(cfg *config)

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *config) {
		cfg.tel = tel
	}
}

func NewServer(s *store.Store, options ...Option) *Server {
	assert.NotNil(s, "store")

	cfg := config{tel: telemetry.SlogAPI{}}
	for _, opt := range options {
		opt(&cfg)
	}
	return &Server{
		store: s,
		tel:   telemetry.NewScopedAPI("webapi", cfg.tel),
	}
}

// Handler returns the routes of the API, requests must carry `accessToken`
// as a bearer token unless it is empty.
func (s *Server) Handler(accessToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", s.products)
	mux.HandleFunc("GET /api/products/{code}", s.product)
	mux.HandleFunc("GET /api/products/{code}/history", s.history)
	mux.HandleFunc("GET /api/skus/{code}", s.sku)
	return serviceutil.VerifyAccessToken(accessToken, mux)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// fail answers with the status matching `err`, 500 for anything unexpected.
func (s *Server) fail(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, codes.ErrInvalidFormat):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrUnknownProduct), errors.Is(err, store.ErrUnknownSku):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		s.tel.ReportBroken(id, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Server) products(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	w.Header().Set("content-type", "application/json")
	err := query.WriteProductsJSON(r.Context(), w, s.store.Products(store.DefaultBatchSize))
	if err != nil && r.Context().Err() == nil {
		// the body was already started
		s.tel.ReportBroken(report_api_products, err)
	}
}

type skuBody struct {
	Code          string `json:"code"`
	FormattedCode string `json:"formatted_code,omitempty"`
}

type productBody struct {
	query.ProductSummary
	LastListed *time.Time `json:"last_listed,omitempty"`
	Skus       []skuBody  `json:"skus"`
}

func (s *Server) findProduct(ctx context.Context, code string) (store.Product, []store.Sku, error) {
	product, err := query.FindProduct(ctx, s.store, code)
	if err != nil {
		return store.Product{}, nil, err
	}
	skus, err := s.store.SkusOfProduct(ctx, product.ID)
	if err != nil {
		return store.Product{}, nil, err
	}
	return product, skus, nil
}

func (s *Server) product(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	product, skus, err := s.findProduct(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, report_api_product, err)
		return
	}

	body := productBody{
		ProductSummary: query.Summary(product),
		Skus:           make([]skuBody, len(skus)),
	}
	if !product.LastListed.IsZero() {
		body.LastListed = &product.LastListed
	}
	for i, sku := range skus {
		body.Skus[i] = skuBody{Code: sku.Code, FormattedCode: sku.FormattedCode}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	product, err := query.FindProduct(r.Context(), s.store, r.PathValue("code"))
	if err != nil {
		s.fail(w, report_api_history, err)
		return
	}

	w.Header().Set("content-type", "application/json")
	err = query.WriteHistoryJSON(r.Context(), w, s.store, product.ID)
	if err != nil && r.Context().Err() == nil {
		s.tel.ReportBroken(report_api_history, err)
	}
}

type latestBody struct {
	query.HistoryPoint
	InPromo bool `json:"in_promo"`
}

type skuDetailsBody struct {
	skuBody
	Product query.ProductSummary `json:"product"`
	Latest  *latestBody          `json:"latest,omitempty"`
}

// lookupSku accepts both the internal (1234567) and the formatted
// (123-4567-8) form of a sku code.
func (s *Server) lookupSku(ctx context.Context, code string) (store.Sku, error) {
	var (
		sku   store.Sku
		found bool
		err   error
	)
	if strings.Contains(code, "-") {
		var formatted string
		formatted, err = codes.NormalizeFormattedSkuCode(code)
		if err != nil {
			return store.Sku{}, err
		}
		sku, found, err = s.store.GetSkuByFormattedCode(ctx, formatted)
	} else {
		err = codes.ValidateSkuCode(code)
		if err != nil {
			return store.Sku{}, err
		}
		sku, found, err = s.store.GetSkuByCode(ctx, code)
	}
	if err != nil {
		return store.Sku{}, err
	}
	if !found {
		return store.Sku{}, fmt.Errorf("%w: %s", store.ErrUnknownSku, code)
	}
	return sku, nil
}

func (s *Server) sku(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ctx := r.Context()

	sku, err := s.lookupSku(ctx, r.PathValue("code"))
	if err != nil {
		s.fail(w, report_api_sku, err)
		return
	}
	product, found, err := s.store.GetProductByID(ctx, sku.ProductID)
	if err == nil && !found {
		err = fmt.Errorf("%w: product of sku %s", store.ErrUnknownProduct, sku.Code)
	}
	if err != nil {
		s.fail(w, report_api_sku, err)
		return
	}

	body := skuDetailsBody{
		skuBody: skuBody{Code: sku.Code, FormattedCode: sku.FormattedCode},
		Product: query.Summary(product),
	}
	latest, found, err := s.store.LatestSample(ctx, sku.ID)
	if err != nil {
		s.fail(w, report_api_sku, err)
		return
	}
	if found {
		body.Latest = &latestBody{
			HistoryPoint: query.NewHistoryPoint(latest.Time, latest.PriceCents),
			InPromo:      latest.InPromo,
		}
	}
	writeJSON(w, http.StatusOK, body)
}
