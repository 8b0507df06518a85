package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

const orderSuccessMessage = "Order successfully sent"

// Handler handles HTTP requests for the application.
type Handler struct {
	orderSvc   *service.OrderService
	catalogSvc *service.CatalogService
	userSvc    *service.UserService
	sessionTTL time.Duration
}

func NewHandler(
	orderSvc *service.OrderService,
	catalogSvc *service.CatalogService,
	userSvc *service.UserService,
	sessionTTL time.Duration,
) *Handler {
	return &Handler{
		orderSvc:   orderSvc,
		catalogSvc: catalogSvc,
		userSvc:    userSvc,
		sessionTTL: sessionTTL,
	}
}

// Routes returns the API router with its middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(WithRequestID)
	r.Use(WithLogging)
	r.Use(middleware.Recoverer)
	r.Use(EnableCORS)

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.handleListCategories)
		r.With(h.requireUser).Post("/categories", h.handleCreateCategory)
		r.Get("/categories/{categoryID}/products", h.handleListProducts)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.handleListProducts)
			r.Get("/bestsellers", h.handleBestsellers)
			r.With(h.requireUser).Post("/", h.handleCreateProduct)

			r.Route("/{productID}", func(r chi.Router) {
				r.Get("/", h.handleProductDetail)
				r.With(h.requireUser).Put("/", h.handleUpdateProduct)
				r.With(h.requireUser).Delete("/", h.handleDeleteProduct)
				r.Post("/orders", h.handleCreateOrder)
				r.Post("/comments", h.handleCreateComment)
			})
		})

		r.With(h.requireUser).Get("/orders", h.handleGetOrders)
		r.With(h.requireUser).Post("/comments/{commentID}/flag", h.handleFlagComment)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.handleRegister)
			r.Post("/login", h.handleLogin)
			r.Post("/logout", h.handleLogout)
			r.With(h.requireUser).Get("/me", h.handleMe)
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// idParam parses a positive integer path parameter. Malformed ids are
// reported as not found, like an unmatched route.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogSvc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var form categoryForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	c, err := h.catalogSvc.CreateCategory(r.Context(), form.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := entity.ProductFilter{
		Search: strings.TrimSpace(q.Get("q")),
		Mode:   entity.ParseSortMode(q.Get("filter")),
	}

	switch {
	case chi.URLParam(r, "categoryID") != "":
		id, ok := idParam(r, "categoryID")
		if !ok {
			writeJSONError(w, http.StatusNotFound, "not_found", "unknown category")
			return
		}
		f.CategoryID = id
	case q.Get("category") != "":
		id, err := strconv.ParseInt(q.Get("category"), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error:  "validation_error",
				Fields: map[string]string{"category": "must be a category id"},
			})
			return
		}
		f.CategoryID = id
	}

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	result, err := h.catalogSvc.ListProducts(r.Context(), f, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBestsellers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ranked, err := h.catalogSvc.Bestsellers(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (h *Handler) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown product")
		return
	}
	detail, err := h.catalogSvc.ProductDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var form productForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	p, err := h.catalogSvc.CreateProduct(r.Context(), form.product())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown product")
		return
	}
	var form productForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	p, err := h.catalogSvc.UpdateProduct(r.Context(), id, form.product())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown product")
		return
	}
	if err := h.catalogSvc.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown product")
		return
	}
	var form orderForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := form.validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	orderID, err := h.orderSvc.PlaceOrder(r.Context(), form.command(id))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"order_id": orderID,
		"message":  orderSuccessMessage,
	})
}

func (h *Handler) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.orderSvc.GetRecentOrders(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "productID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown product")
		return
	}
	var form commentForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	c, err := h.catalogSvc.AddComment(r.Context(), id, form.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleFlagComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "commentID")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown comment")
		return
	}
	if err := h.catalogSvc.FlagComment(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := form.validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	u, err := h.userSvc.Register(r.Context(), entity.RegisterUser{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	token, u, err := h.userSvc.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "token": token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.userSvc.Logout(r.Context(), token); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}
