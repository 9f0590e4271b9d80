package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	authdomain "catalog/backend/internal/domain/auth"
	productdomain "catalog/backend/internal/domain/product"
	productusecase "catalog/backend/internal/usecase/product"

	"go.uber.org/zap"
)

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", s.metrics.Handler())

	s.router.HandleFunc("POST /products", s.requireAdmin(s.handleCreateProduct))
	s.router.HandleFunc("GET /products", s.handleListProducts)
	s.router.HandleFunc("GET /products/trending", s.handleTrending)
	s.router.HandleFunc("GET /products/ai-search", s.handleSearch)
	s.router.HandleFunc("GET /products/stats", s.handleStats)
	s.router.HandleFunc("GET /products/{first}/{second}", s.handleProductSubresource)
	s.router.HandleFunc("GET /products/{id}", s.handleGetProduct)
	s.router.HandleFunc("PUT /products/{id}", s.requireAdmin(s.handleUpdateProduct))
	s.router.HandleFunc("DELETE /products/{id}", s.requireAdmin(s.handleDeleteProduct))

	if s.authService != nil {
		s.router.HandleFunc("POST /auth/login", s.handleLogin)
		s.router.HandleFunc("GET /auth/me", s.handleMe)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload authdomain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token, user, err := s.authService.Login(r.Context(), payload)
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authorization token required")
		return
	}
	user, err := s.authService.VerifyToken(r.Context(), token)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productusecase.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	item, err := s.productService.Create(r.Context(), payload)
	if err != nil {
		if errors.Is(err, productdomain.ErrInvalidProduct) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("create product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	s.logger.Info("product created", zap.Int64("id", item.ID), zap.String("by", actor(r.Context())))
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.productService.List(r.Context(), filter)
	if err != nil && errors.Is(err, productdomain.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.noteDegraded(r, err)
	writeJSON(w, http.StatusOK, page)
}

// handleProductSubresource serves /products/mode/{mode} and /products/{id}/suggestions.
// The two overlap on /products/mode/suggestions, which ServeMux refuses to register as
// separate patterns, so the mode listing takes precedence here.
func (s *Server) handleProductSubresource(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "mode":
		r.SetPathValue("mode", second)
		s.handleListByMode(w, r)
	case second == "suggestions":
		r.SetPathValue("id", first)
		s.handleSuggestions(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleListByMode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	skip, err := intParam(q, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q, "limit", productdomain.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.productService.ListByMode(r.Context(), r.PathValue("mode"), skip, limit)
	if err != nil && errors.Is(err, productdomain.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.noteDegraded(r, err)
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	items, hit, err := s.productService.Trending(r.Context())
	s.noteDegraded(r, err)
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	description := strings.TrimSpace(r.URL.Query().Get("description"))
	if description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	results, err := s.productService.Search(r.Context(), description)
	if err != nil {
		if !errors.Is(err, productdomain.ErrStoreUnavailable) {
			s.logger.Error("search failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		s.noteDegraded(r, err)
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.productService.Stats(r.Context())
	s.noteDegraded(r, err)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	items, err := s.productService.Suggest(r.Context(), id)
	if errors.Is(err, productdomain.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.noteDegraded(r, err)
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	item, err := s.productService.Get(r.Context(), id)
	if err != nil {
		s.writeProductError(w, err, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var patch productdomain.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	item, err := s.productService.Update(r.Context(), id, patch)
	if err != nil {
		s.writeProductError(w, err, "failed to update product")
		return
	}
	s.logger.Info("product updated", zap.Int64("id", id), zap.String("by", actor(r.Context())))
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := s.productService.Delete(r.Context(), id); err != nil {
		s.writeProductError(w, err, "failed to delete product")
		return
	}
	s.logger.Info("product deleted", zap.Int64("id", id), zap.String("by", actor(r.Context())))
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) writeProductError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, productdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, productdomain.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message)
	}
}

// noteDegraded logs a read that was answered with an empty result because the store failed.
func (s *Server) noteDegraded(r *http.Request, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("serving empty result",
		zap.String("request_id", requestIDFromContext(r.Context())),
		zap.String("route", r.Pattern),
		zap.Error(err),
	)
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func parseListFilter(q url.Values) (productdomain.ListFilter, error) {
	var f productdomain.ListFilter
	var err error
	if f.Skip, err = intParam(q, "skip", 0); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit", productdomain.DefaultLimit); err != nil {
		return f, err
	}
	if f.MinPrice, err = floatParam(q, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatParam(q, "max_price"); err != nil {
		return f, err
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	f.Category = strings.TrimSpace(q.Get("category"))
	f.Region = strings.TrimSpace(q.Get("region"))
	f.SortBy = strings.TrimSpace(q.Get("sort_by"))
	f.Order = strings.ToLower(strings.TrimSpace(q.Get("order")))
	return f, nil
}

func intParam(q url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func floatParam(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func actor(ctx context.Context) string {
	user, ok := ctx.Value(ctxKeyUser{}).(*authdomain.User)
	if !ok || user == nil {
		return "anonymous"
	}
	return user.Email
}
