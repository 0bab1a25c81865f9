package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"bagStore/entities"
	"bagStore/filters"
	"bagStore/models"
	"bagStore/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const cartCookie = "cartSessionId"

type Handler struct {
	ps  services.ProductService
	cas *services.CategoryService
	cs  services.CartService
	cts *services.CatalogService
	ors services.OrderService
	hub *services.CartHub

	defaultLocale entities.Locale
	cookieTTL     time.Duration
}

type HandlerParams struct {
	PrdService     services.ProductService
	CatsService    *services.CategoryService
	CrtService     services.CartService
	CatalogService *services.CatalogService
	OrdService     services.OrderService
	Hub            *services.CartHub
	DefaultLocale  entities.Locale
	CookieTTL      time.Duration
}

func NewHandler(params HandlerParams) *Handler {
	h := &Handler{
		ps:            params.PrdService,
		cas:           params.CatsService,
		cs:            params.CrtService,
		cts:           params.CatalogService,
		ors:           params.OrdService,
		hub:           params.Hub,
		defaultLocale: params.DefaultLocale,
		cookieTTL:     params.CookieTTL,
	}
	if !h.defaultLocale.Valid() {
		h.defaultLocale = entities.LocaleRu
	}
	if h.cookieTTL <= 0 {
		h.cookieTTL = 24 * time.Hour
	}
	return h
}

// product
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	prod, err := h.ps.GetProductById(r.Context(), id, h.locale(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prod)
}

func (h *Handler) GetProductColors(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	colors, err := h.ps.GetColorVariants(r.Context(), id, h.locale(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, colors)
}

// reference lists

func (h *Handler) GetAllCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.cas.GetAllCategories(r.Context(), h.locale(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) GetBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.cas.GetBrands(r.Context())
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, brands)
}

func (h *Handler) GetSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.cas.GetSizes(r.Context())
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sizes)
}

func (h *Handler) GetColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.cas.GetColors(r.Context(), h.locale(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, colors)
}

func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.cas.GetContacts(r.Context(), h.locale(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// catalog

type catalogRequest struct {
	Path    string                `json:"path"`
	Query   string                `json:"query"`
	Filters *entities.FilterState `json:"filters"`
	Scroll  int                   `json:"scroll"`
}

func (req catalogRequest) state(locale entities.Locale) (entities.FilterState, error) {
	if req.Filters != nil {
		return *req.Filters, nil
	}
	values, err := url.ParseQuery(req.Query)
	if err != nil {
		return entities.FilterState{}, err
	}
	return filters.FromQuery(values, locale), nil
}

func decodeCatalogRequest(r *http.Request, locale entities.Locale) (catalogRequest, entities.FilterState, error) {
	var req catalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, entities.FilterState{}, err
	}
	if req.Path == "" {
		return req, entities.FilterState{}, models.ErrBadRequest
	}
	state, err := req.state(locale)
	return req, state, err
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	path := "/" + mux.Vars(r)["path"]
	state := filters.FromQuery(r.URL.Query(), locale)

	view, err := h.cts.Load(r.Context(), h.cartSessionId(r), path, state, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	req, state, err := decodeCatalogRequest(r, locale)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	view, err := h.cts.LoadMore(r.Context(), h.cartSessionId(r), req.Path, state, req.Scroll, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SaveScroll(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	req, state, err := decodeCatalogRequest(r, locale)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	err = h.cts.SaveScroll(r.Context(), h.cartSessionId(r), req.Path, state, req.Scroll, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	req, state, err := decodeCatalogRequest(r, locale)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	view, err := h.cts.ApplyFilters(r.Context(), h.cartSessionId(r), req.Path, state, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		log.Printf("ClearFilters: path is required")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	view, err := h.cts.ClearFilters(r.Context(), h.cartSessionId(r), path, h.locale(r))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) EndCatalogSession(w http.ResponseWriter, r *http.Request) {
	if _, err := h.cts.EndSession(r.Context(), h.cartSessionId(r)); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// cart

type quantityRequest struct {
	entities.LineKey
	Quantity *int `json:"quantity"`
	Delta    int  `json:"delta"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	locale := h.locale(r)
	cartSessionId, err := h.cartSession(w, r, false)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	if cartSessionId == "" {
		writeJSON(w, http.StatusOK, services.CartSummary(nil, locale))
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	cart, err := h.cs.GetCartItems(r.Context(), cartSessionId, refresh, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) GetCartCount(w http.ResponseWriter, r *http.Request) {
	count := 0
	if cartSessionId := h.cartSessionId(r); cartSessionId != "" {
		var err error
		count, err = h.cs.CartCount(r.Context(), cartSessionId)
		if err != nil {
			WriteErrorResponse(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	prods := entities.CartRequest{}
	err := json.NewDecoder(r.Body).Decode(&prods)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cartSessionId, err := h.cartSession(w, r, true)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	locale := h.locale(r)
	err = h.cs.AddCartItem(r.Context(), cartSessionId, prods, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.writeCart(w, r, cartSessionId, locale)
}

func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	req := quantityRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cartSessionId := h.cartSessionId(r)
	if cartSessionId == "" {
		WriteErrorResponse(w, models.ErrNotFoundError)
		return
	}
	if req.Quantity != nil {
		_, err = h.cs.UpdateQuantity(r.Context(), cartSessionId, req.LineKey, *req.Quantity)
	} else {
		_, err = h.cs.ChangeQuantity(r.Context(), cartSessionId, req.LineKey, req.Delta)
	}
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.writeCart(w, r, cartSessionId, h.locale(r))
}

// DeleteFromCart removes the rows named in the body; an empty body clears
// the whole cart.
func (h *Handler) DeleteFromCart(w http.ResponseWriter, r *http.Request) {
	cartSessionId := h.cartSessionId(r)
	if cartSessionId == "" {
		writeJSON(w, http.StatusOK, services.CartSummary(nil, h.locale(r)))
		return
	}
	prods := entities.CartRequest{}
	err := json.NewDecoder(r.Body).Decode(&prods)
	switch {
	case errors.Is(err, io.EOF):
		err = h.cs.ClearCart(r.Context(), cartSessionId)
	case err != nil:
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	default:
		err = h.cs.RemoveCartItem(r.Context(), cartSessionId, prods)
	}
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.writeCart(w, r, cartSessionId, h.locale(r))
}

func (h *Handler) SelectCartColor(w http.ResponseWriter, r *http.Request) {
	req := entities.ColorRequest{}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cartSessionId := h.cartSessionId(r)
	if cartSessionId == "" {
		WriteErrorResponse(w, models.ErrNotFoundError)
		return
	}
	locale := h.locale(r)
	if _, err = h.cs.SelectColor(r.Context(), cartSessionId, req, locale); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.writeCart(w, r, cartSessionId, locale)
}

// CartEvents streams a server-sent event every time the session's cart
// changes, in this process or, with redis, in any other.
func (h *Handler) CartEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	cartSessionId, err := h.cartSession(w, r, true)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := h.hub.Subscribe("sse:"+uuid.NewString(), func(e services.CartEvent) {
		if e.CartSessionId != cartSessionId {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			count, err := h.cs.CartCount(ctx, cartSessionId)
			if err != nil {
				log.Printf("CartEvents: %v", err)
				continue
			}
			data, _ := json.Marshal(map[string]int{"count": count})
			if _, err := w.Write([]byte("event: " + services.CartEventName + "\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	info := entities.CustomerInfo{}
	err := json.NewDecoder(r.Body).Decode(&info)
	if err != nil {
		log.Printf("Unmarshal err:%v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	locale := h.locale(r)
	cartSessionId := h.cartSessionId(r)
	if cartSessionId == "" {
		writeOrderError(w, models.ErrBadRequest, locale)
		return
	}
	conf, err := h.ors.CreateOrder(r.Context(), cartSessionId, info, locale)
	if err != nil {
		writeOrderError(w, err, locale)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

type orderError struct {
	Message string              `json:"message"`
	Fields  []models.FieldError `json:"fields,omitempty"`
}

func writeOrderError(w http.ResponseWriter, err error, locale entities.Locale) {
	body := orderError{Message: services.UserMessage(err, locale)}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	writeJSON(w, statusFor(err), body)
}

// session and locale helpers

func (h *Handler) cartSessionId(r *http.Request) string {
	c, err := r.Cookie(cartCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// cartSession returns the cart session of the request, refreshing its ttl.
// With create set, a missing or unusable id is replaced by a new one.
func (h *Handler) cartSession(w http.ResponseWriter, r *http.Request, create bool) (string, error) {
	cartSessionId := h.cartSessionId(r)
	if cartSessionId != "" {
		ok, err := h.cs.TouchCartSession(r.Context(), cartSessionId)
		if err != nil {
			return "", err
		}
		if ok {
			h.setCartCookie(w, cartSessionId)
			return cartSessionId, nil
		}
	}
	if !create {
		return "", nil
	}
	cartSessionId, err := h.cs.CreateCartSession(r.Context())
	if err != nil {
		log.Printf("CreateCartSession: %v", err)
		return "", models.ErrServerError
	}
	h.setCartCookie(w, cartSessionId)
	return cartSessionId, nil
}

func (h *Handler) setCartCookie(w http.ResponseWriter, cartSessionId string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    cartSessionId,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, cartSessionId string, locale entities.Locale) {
	cart, err := h.cs.GetCartItems(r.Context(), cartSessionId, false, locale)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Marshal err:%v", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// middleware

func (h *Handler) ErrorHandleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic occured: %v \n stacktrace: %v", rec, string(debug.Stack()))
				http.Error(w, "something went wrong, contact with service administration", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFoundError):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotAllowed):
		return http.StatusNotAcceptable
	case errors.Is(err, models.ErrStale):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func WriteErrorResponse(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, ve)
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		http.Error(w, models.ErrServerError.Error(), status)
		return
	}
	http.Error(w, err.Error(), status)
}
