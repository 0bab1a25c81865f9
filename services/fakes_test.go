package services

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"bagStore/models"
	"bagStore/repository"
)

type fakeProducts struct {
	mu       sync.Mutex
	products map[int]models.ApiProduct
	pages    map[string]models.Page[models.ApiProduct]
	calls    map[string]int
	gates    map[string]chan struct{}
	entered  chan string
	err      error

	productGates   map[int]chan struct{}
	productEntered chan int
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{
		products: map[int]models.ApiProduct{},
		pages:    map[string]models.Page[models.ApiProduct]{},
		calls:    map[string]int{},
		gates:    map[string]chan struct{}{},
		entered:  make(chan string, 32),

		productGates:   map[int]chan struct{}{},
		productEntered: make(chan int, 32),
	}
}

func listKey(query url.Values, pageURL string) string {
	if pageURL != "" {
		return pageURL
	}
	return "products/?" + query.Encode()
}

func (f *fakeProducts) ListProducts(ctx context.Context, query url.Values, pageURL string) (models.Page[models.ApiProduct], error) {
	key := listKey(query, pageURL)
	f.mu.Lock()
	f.calls[key]++
	gate := f.gates[key]
	page, ok := f.pages[key]
	err := f.err
	f.mu.Unlock()

	select {
	case f.entered <- key:
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return models.Page[models.ApiProduct]{}, err
	}
	if !ok {
		return models.Page[models.ApiProduct]{}, models.ErrNotFoundError
	}
	return page, nil
}

func (f *fakeProducts) GetProductById(_ context.Context, id int) (models.ApiProduct, error) {
	f.mu.Lock()
	gate := f.productGates[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case f.productEntered <- id:
		default:
		}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.ApiProduct{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return models.ApiProduct{}, models.ErrNotFoundError
	}
	return p, nil
}

// gateProduct blocks fetches of id until the returned func is called.
func (f *fakeProducts) gateProduct(id int) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.productGates[id] = gate
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.productGates, id)
		f.mu.Unlock()
		close(gate)
	}
}

func (f *fakeProducts) setProduct(p models.ApiProduct) {
	f.mu.Lock()
	f.products[p.Id] = p
	f.mu.Unlock()
}

func (f *fakeProducts) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

type fakeOrders struct {
	mu       sync.Mutex
	payloads []models.OrderPayload
	keys     []string
	err      error

	// when set, CreateOrder signals entered and waits for gate
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeOrders) CreateOrder(_ context.Context, order models.OrderPayload, idempotencyKey string) (models.OrderResult, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, order)
	f.keys = append(f.keys, idempotencyKey)
	if f.err != nil {
		return models.OrderResult{}, f.err
	}
	return models.OrderResult{Id: 100 + len(f.payloads)}, nil
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func apiVariant(id int, stock *int, sizeIds ...int) models.ApiVariant {
	v := models.ApiVariant{
		Id:     id,
		Color:  models.ApiColor{Id: id, TitleRu: "Чёрный", TitleUz: "Qora", Hex: "#000000"},
		Stock:  stock,
		Images: []models.ApiImage{{Image: "https://cdn.example/" + strconv.Itoa(id) + ".jpg"}},
	}
	for _, s := range sizeIds {
		v.Sizes = append(v.Sizes, models.ApiSize{Id: s, Title: "S" + strconv.Itoa(s)})
	}
	return v
}

func apiProduct(id int, price string, variants ...models.ApiVariant) models.ApiProduct {
	return models.ApiProduct{
		Id:            id,
		Brand:         models.ApiBrand{Id: 1, Title: "Gucci"},
		TitleRu:       "Сумка " + strconv.Itoa(id),
		TitleUz:       "Sumka " + strconv.Itoa(id),
		DescriptionRu: "Кожаная",
		DescriptionUz: "Charm",
		Price:         price,
		Variants:      variants,
	}
}

func newTestCartRepo(t *testing.T) (repository.CartRepository, *CartHub) {
	t.Helper()
	hub := NewCartHub()
	cr, err := repository.NewCartRepository(repository.NewMemoryStore(), hub, 0)
	if err != nil {
		t.Fatalf("NewCartRepository: %v", err)
	}
	return cr, hub
}
