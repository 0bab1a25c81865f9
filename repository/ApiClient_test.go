package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"bagStore/models"
)

func newTestApi(t *testing.T, h http.HandlerFunc) *ApiClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api, err := NewApiClient(srv.URL+"/api", 5*time.Second)
	if err != nil {
		t.Fatalf("NewApiClient: %v", err)
	}
	return api
}

func TestListProductsQueryAndNextPage(t *testing.T) {
	var srvURL string
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("page") == "2" {
			io.WriteString(w, `{"count":3,"next":null,"previous":null,"results":[{"id":3}]}`)
			return
		}
		if r.URL.Query().Get("brand") != "4" {
			t.Errorf("brand param missing: %s", r.URL.RawQuery)
		}
		next := srvURL + "/api/products/?brand=4&page=2"
		json.NewEncoder(w).Encode(map[string]any{
			"count": 3, "next": next, "previous": nil,
			"results": []map[string]any{{"id": 1}, {"id": 2}},
		})
	})
	srvURL = api.baseURL.Scheme + "://" + api.baseURL.Host
	repo, _ := NewProductRepository(api)
	ctx := context.Background()

	first, err := repo.ListProducts(ctx, url.Values{"brand": {"4"}}, "")
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(first.Results) != 2 || first.Next == nil {
		t.Fatalf("first page = %+v", first)
	}
	second, err := repo.ListProducts(ctx, nil, *first.Next)
	if err != nil {
		t.Fatalf("ListProducts next: %v", err)
	}
	if len(second.Results) != 1 || second.Results[0].Id != 3 || second.Next != nil {
		t.Fatalf("second page = %+v", second)
	}
}

func TestGetProductNotFoundAndUpstream(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/1/":
			http.NotFound(w, r)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})
	repo, _ := NewProductRepository(api)
	ctx := context.Background()

	if _, err := repo.GetProductById(ctx, 1); !errors.Is(err, models.ErrNotFoundError) {
		t.Errorf("404 => %v, want ErrNotFoundError", err)
	}
	if _, err := repo.GetProductById(ctx, 2); !errors.Is(err, models.ErrUpstream) {
		t.Errorf("500 => %v, want ErrUpstream", err)
	}
}

func TestEnumerationsAcceptArrayOrEnvelope(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/brands/":
			io.WriteString(w, `[{"id":1,"title":"Gucci"},{"id":2,"title":"Prada"}]`)
		case "/api/sizes/":
			io.WriteString(w, `{"count":1,"next":null,"previous":null,"results":[{"id":5,"title":"M"}]}`)
		case "/api/contacts/":
			io.WriteString(w, `[{"phone":"+998 90 000 00 00","address_ru":"Ташкент","address_uz":"Toshkent"}]`)
		default:
			http.NotFound(w, r)
		}
	})
	repo, _ := NewCategoryRepository(api)
	ctx := context.Background()

	brands, err := repo.GetBrands(ctx)
	if err != nil || len(brands) != 2 || brands[1].Title != "Prada" {
		t.Errorf("GetBrands = %+v, %v", brands, err)
	}
	sizes, err := repo.GetSizes(ctx)
	if err != nil || len(sizes) != 1 || sizes[0].Title != "M" {
		t.Errorf("GetSizes = %+v, %v", sizes, err)
	}
	contacts, err := repo.GetContacts(ctx)
	if err != nil || contacts.AddressUz != "Toshkent" {
		t.Errorf("GetContacts = %+v, %v", contacts, err)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotKey string
	var got models.OrderPayload
	status := http.StatusCreated
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(status)
		if status == http.StatusBadRequest {
			io.WriteString(w, `{"phone":["Неверный номер"],"items":[{"quantity":["Нет в наличии"]}]}`)
			return
		}
		io.WriteString(w, `{"id":77}`)
	})
	repo, _ := NewOrderRepository(api)
	ctx := context.Background()
	payload := models.OrderPayload{
		FullName: "Ali",
		Phone:    "+998900000000",
		Items:    []models.OrderItemPayload{{Product: 1, Variant: 2, Quantity: 1}},
	}

	res, err := repo.CreateOrder(ctx, payload, "key-1")
	if err != nil || res.Id != 77 {
		t.Fatalf("CreateOrder = %+v, %v", res, err)
	}
	if gotKey != "key-1" || got.FullName != "Ali" || len(got.Items) != 1 {
		t.Errorf("server saw key=%q payload=%+v", gotKey, got)
	}

	status = http.StatusBadRequest
	_, err = repo.CreateOrder(ctx, payload, "key-2")
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("400 => %v, want *ValidationError", err)
	}
	field, msg, ok := ve.FirstMessage()
	if !ok || field != "phone" || msg != "Неверный номер" {
		t.Errorf("FirstMessage = %q %q %v", field, msg, ok)
	}

	status = http.StatusBadGateway
	if _, err := repo.CreateOrder(ctx, payload, ""); !errors.Is(err, models.ErrUpstream) {
		t.Errorf("502 => %v, want ErrUpstream", err)
	}
}

func TestNewApiClientRejectsRelativeBase(t *testing.T) {
	if _, err := NewApiClient("/api", time.Second); err == nil {
		t.Error("expected an error for a relative base url")
	}
	if _, err := NewApiClient("", time.Second); err == nil {
		t.Error("expected an error for an empty base url")
	}
}
