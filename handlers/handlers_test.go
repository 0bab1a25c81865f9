package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bagStore/entities"
	"bagStore/models"
	"bagStore/repository"
	"bagStore/services"
)

type fakeApi struct {
	mu        sync.Mutex
	listCalls int
	orders    []models.OrderPayload
	orderKeys []string
}

func (f *fakeApi) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stock := 3
	product := models.ApiProduct{
		Id:      1,
		Brand:   models.ApiBrand{Id: 1, Title: "Gucci"},
		TitleRu: "Сумка",
		TitleUz: "Sumka",
		Price:   "250000.00",
		Variants: []models.ApiVariant{{
			Id:    10,
			Color: models.ApiColor{Id: 1, TitleRu: "Чёрный", TitleUz: "Qora"},
			Stock: &stock,
			Sizes: []models.ApiSize{{Id: 2, Title: "M"}},
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/products/1/":
		json.NewEncoder(w).Encode(product)
	case r.Method == http.MethodGet && r.URL.Path == "/api/products/":
		f.mu.Lock()
		f.listCalls++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(models.Page[models.ApiProduct]{Count: 1, Results: []models.ApiProduct{product}})
	case r.Method == http.MethodPost && r.URL.Path == "/api/orders/":
		var payload models.OrderPayload
		json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.orders = append(f.orders, payload)
		f.orderKeys = append(f.orderKeys, r.Header.Get("Idempotency-Key"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 77}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail": "Not found."}`)
	}
}

type testEnv struct {
	router http.Handler
	api    *fakeApi
	store  *repository.MemoryStore
	hub    *services.CartHub
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	api := &fakeApi{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := repository.NewApiClient(srv.URL+"/api/", 5*time.Second)
	if err != nil {
		t.Fatalf("NewApiClient: %v", err)
	}
	store := repository.NewMemoryStore()
	hub := services.NewCartHub()
	pr, _ := repository.NewProductRepository(client)
	cat, _ := repository.NewCategoryRepository(client)
	or, _ := repository.NewOrderRepository(client)
	cr, _ := repository.NewCartRepository(store, hub, 0)
	sr, _ := repository.NewSessionRepository(store, time.Hour)
	persistent, _ := repository.NewCatalogCache(store, time.Hour)

	h := NewHandler(HandlerParams{
		PrdService:     services.NewProductService(pr),
		CatsService:    services.NewCategoryService(cat),
		CrtService:     services.NewCartService(pr, cr, sr),
		CatalogService: services.NewCatalogService(pr, persistent, nil),
		OrdService:     services.NewOrderService(pr, cr, or, false),
		Hub:            hub,
	})
	return testEnv{router: NewRouter(h), api: api, store: store, hub: hub}
}

func newTestRouter(t *testing.T) (http.Handler, *fakeApi) {
	t.Helper()
	env := newTestEnv(t)
	return env.router, env.api
}

func do(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cartCookie {
			return c
		}
	}
	t.Fatal("no cart session cookie set")
	return nil
}

func TestGetCartWithoutSession(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/cart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cart entities.CartResponse
	json.Unmarshal(rec.Body.Bytes(), &cart)
	if cart.Count != 0 || cart.Items == nil {
		t.Errorf("cart = %+v", cart)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("reading an empty cart must not create a session")
	}
}

func TestCartFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body)
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	rec = do(t, router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"quantity":2}`, cookie)
	if rec.Code != http.StatusNotAcceptable {
		t.Errorf("over stock status = %d, want 406", rec.Code)
	}

	rec = do(t, router, http.MethodPatch, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"delta":1}`, cookie)
	var cart entities.CartResponse
	json.Unmarshal(rec.Body.Bytes(), &cart)
	if cart.Count != 3 || cart.TotalPrice != "750 000 сум" {
		t.Errorf("after increment cart = %+v", cart)
	}

	rec = do(t, router, http.MethodGet, "/cart/count", "", cookie)
	if strings.TrimSpace(rec.Body.String()) != "{\n  \"count\": 3\n}" {
		t.Errorf("count body = %q", rec.Body.String())
	}

	rec = do(t, router, http.MethodDelete, "/cart", "", cookie)
	json.Unmarshal(rec.Body.Bytes(), &cart)
	if rec.Code != http.StatusOK || cart.Count != 0 {
		t.Errorf("clear: status %d cart %+v", rec.Code, cart)
	}
}

func TestCartLocaleFromAcceptLanguage(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(`{"product_id":1,"variant_id":10,"quantity":1}`))
	req.Header.Set("Accept-Language", "uz-UZ,uz;q=0.9,en;q=0.5")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var cart entities.CartResponse
	json.Unmarshal(rec.Body.Bytes(), &cart)
	if len(cart.Items) != 1 || cart.Items[0].Name != "Sumka" || cart.TotalPrice != "250 000 so'm" {
		t.Errorf("cart = %+v", cart)
	}
}

func TestCheckout(t *testing.T) {
	router, api := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"quantity":1}`)
	cookie := sessionCookie(t, rec)

	rec = do(t, router, http.MethodPost, "/cart/checkout?lang=ru", `{"name":"Ali","phone":""}`, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid checkout status = %d", rec.Code)
	}
	var failure orderError
	json.Unmarshal(rec.Body.Bytes(), &failure)
	if failure.Message != "Введите номер телефона" || len(failure.Fields) != 2 {
		t.Errorf("failure = %+v", failure)
	}
	if len(api.orders) != 0 {
		t.Fatal("invalid form must not reach the api")
	}

	rec = do(t, router, http.MethodPost, "/cart/checkout", `{"name":"Ali","phone":"+998901234567","consent":true}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d body=%s", rec.Code, rec.Body)
	}
	var conf entities.OrderConfirmation
	json.Unmarshal(rec.Body.Bytes(), &conf)
	if conf.OrderId != 77 || conf.Items != 1 {
		t.Errorf("confirmation = %+v", conf)
	}
	if api.orderKeys[0] == "" {
		t.Error("missing Idempotency-Key header")
	}

	rec = do(t, router, http.MethodGet, "/cart/count", "", cookie)
	if !strings.Contains(rec.Body.String(), `"count": 0`) {
		t.Errorf("cart not cleared: %s", rec.Body)
	}
}

func TestCatalogIsServedFromCache(t *testing.T) {
	router, api := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/catalog/bags", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var view entities.CatalogView
	json.Unmarshal(rec.Body.Bytes(), &view)
	if view.Cached || view.CacheKey != "catalog:/ru/bags" || len(view.Page.Products) != 1 {
		t.Errorf("first view = %+v", view)
	}

	rec = do(t, router, http.MethodGet, "/catalog/bags", "")
	json.Unmarshal(rec.Body.Bytes(), &view)
	if !view.Cached {
		t.Error("second load must come from the cache")
	}
	if api.listCalls != 1 {
		t.Errorf("api list calls = %d, want 1", api.listCalls)
	}

	rec = do(t, router, http.MethodDelete, "/catalog/filters?path=/bags", "")
	json.Unmarshal(rec.Body.Bytes(), &view)
	if rec.Code != http.StatusOK || view.Cached {
		t.Errorf("clear filters: status %d view %+v", rec.Code, view)
	}
}

func TestProductNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/products/5", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.ValidationError{}, http.StatusBadRequest},
		{models.ErrBadRequest, http.StatusBadRequest},
		{models.ErrNotFoundError, http.StatusNotFound},
		{models.ErrNotAllowed, http.StatusNotAcceptable},
		{models.ErrStale, http.StatusConflict},
		{fmt.Errorf("%w: status 503", models.ErrUpstream), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestLocaleNegotiation(t *testing.T) {
	h := NewHandler(HandlerParams{DefaultLocale: entities.LocaleUz})
	tests := []struct {
		name   string
		query  string
		cookie string
		accept string
		want   entities.Locale
	}{
		{"default", "", "", "", entities.LocaleUz},
		{"query wins", "?lang=ru", "uz", "uz", entities.LocaleRu},
		{"cookie", "", "ru", "uz", entities.LocaleRu},
		{"accept language", "", "", "ru-RU,ru;q=0.9", entities.LocaleRu},
		{"unsupported query ignored", "?lang=en", "", "", entities.LocaleUz},
		{"unsupported accept language", "", "", "de-DE", entities.LocaleUz},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: langCookie, Value: tt.cookie})
			}
			if tt.accept != "" {
				r.Header.Set("Accept-Language", tt.accept)
			}
			if got := h.locale(r); got != tt.want {
				t.Errorf("locale = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExpiredSessionKeepsItsCart(t *testing.T) {
	env := newTestEnv(t)
	rec := do(t, env.router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"quantity":1}`)
	cookie := sessionCookie(t, rec)
	if err := env.store.Delete(context.Background(), "sess:"+cookie.Value); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	rec = do(t, env.router, http.MethodGet, "/cart", "", cookie)
	var cart entities.CartResponse
	json.Unmarshal(rec.Body.Bytes(), &cart)
	if cart.Count != 1 {
		t.Fatalf("cart after session expiry = %+v", cart)
	}
	if got := sessionCookie(t, rec); got.Value != cookie.Value {
		t.Errorf("cookie = %q, want the original id %q", got.Value, cookie.Value)
	}

	rec = do(t, env.router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"quantity":1}`, cookie)
	json.Unmarshal(rec.Body.Bytes(), &cart)
	if got := sessionCookie(t, rec); got.Value != cookie.Value || cart.Count != 2 {
		t.Errorf("add after restore: cookie %q cart %+v", got.Value, cart)
	}
}

func TestCartEventsStreamsChanges(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	rec := do(t, env.router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"quantity":1}`)
	cookie := sessionCookie(t, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/cart/events", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /cart/events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	if n := env.hub.Subscribers(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	do(t, env.router, http.MethodPost, "/cart", `{"product_id":1,"variant_id":10,"size_id":2,"quantity":1}`, cookie)

	reader := bufio.NewReader(resp.Body)
	want := []string{"event: " + services.CartEventName, `data: {"count":2}`, ""}
	for _, w := range want {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		if got := strings.TrimRight(line, "\n"); got != w {
			t.Errorf("line = %q, want %q", got, w)
		}
	}

	cancel()
	resp.Body.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream did not unsubscribe after the client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
