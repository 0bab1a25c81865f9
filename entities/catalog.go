package entities

const (
	DefaultPriceMin = "0"
	DefaultPriceMax = "1000000"
)

// FilterState is the active catalog query. Brands, Sizes and Colors are lists
// for storage, but only their first element is honored.
type FilterState struct {
	Search   string   `json:"search"`
	Brands   []string `json:"brands"`
	Sizes    []string `json:"sizes"`
	Colors   []string `json:"colors"`
	Category string   `json:"category"`
	PriceMin string   `json:"price_min"`
	PriceMax string   `json:"price_max"`
}

func DefaultFilterState() FilterState {
	return FilterState{
		Brands:   []string{},
		Sizes:    []string{},
		Colors:   []string{},
		PriceMin: DefaultPriceMin,
		PriceMax: DefaultPriceMax,
	}
}

// CatalogPage is the payload part of a cache entry.
type CatalogPage struct {
	Products       []ProductSummary `json:"products"`
	NextPage       *string          `json:"nextPage"`
	LoadedPages    int              `json:"loadedPages"`
	Filters        FilterState      `json:"filters"`
	ScrollPosition int              `json:"scrollPosition"`
}

// CatalogCacheEntry is stored as {timestamp: epoch-ms, data: {...}}.
type CatalogCacheEntry struct {
	Timestamp int64       `json:"timestamp"`
	Data      CatalogPage `json:"data"`
}

// CatalogView is what a client gets back for a listing request.
type CatalogView struct {
	URL      string      `json:"url"`
	CacheKey string      `json:"cache_key"`
	Cached   bool        `json:"cached"`
	Page     CatalogPage `json:"page"`
}
