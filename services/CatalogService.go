package services

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"sync"

	"bagStore/entities"
	"bagStore/filters"
	"bagStore/models"
	"bagStore/repository"

	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "catalog:"

// CacheKey derives the listing cache key from the page path and its query
// string. Equal filter states encode to equal query strings.
func CacheKey(path, rawQuery string) string {
	return cacheKeyPrefix + pathWithQuery(path, rawQuery)
}

func pathWithQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// localePath puts the locale in front of the page path, as the storefront
// routes do, so summaries in different languages never share an entry.
func localePath(locale entities.Locale, path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return "/" + string(locale) + path
}

type viewState struct {
	gen    uint64
	cancel context.CancelFunc
}

type CatalogService struct {
	pr      repository.ProductRepository
	cache   *repository.CatalogCache
	session *repository.CatalogCache
	flight  singleflight.Group

	mu    sync.Mutex
	gen   uint64
	views map[string]*viewState
}

// NewCatalogService wires the persistent tier and, optionally, the
// session-scoped tier (nil disables it).
func NewCatalogService(productRepo repository.ProductRepository, persistent, session *repository.CatalogCache) *CatalogService {
	return &CatalogService{
		pr:      productRepo,
		cache:   persistent,
		session: session,
		views:   make(map[string]*viewState),
	}
}

func (s *CatalogService) sessionTier(sessionId string) *repository.CatalogCache {
	if s.session == nil || sessionId == "" {
		return nil
	}
	return s.session.Namespaced(sessionId + ":")
}

// lookup reads both tiers and keeps the deeper entry. Read errors count as a miss.
func (s *CatalogService) lookup(ctx context.Context, sessionId, key string) *entities.CatalogCacheEntry {
	var persistent, session *entities.CatalogCacheEntry
	if e, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("CatalogService.lookup[persistent]: %v", err)
	} else if ok {
		persistent = &e
	}
	if tier := s.sessionTier(sessionId); tier != nil {
		if e, ok, err := tier.Get(ctx, key); err != nil {
			log.Printf("CatalogService.lookup[session]: %v", err)
		} else if ok {
			session = &e
		}
	}
	e := DeeperEntry(persistent, session)
	if e == nil {
		return nil
	}
	merged := *e
	merged.Data.ScrollPosition = 0
	if session != nil {
		merged.Data.ScrollPosition = session.Data.ScrollPosition
	}
	return &merged
}

// store writes the page to both tiers. The persistent tier is shared by every
// visitor, so the scroll offset is kept only in the session tier.
func (s *CatalogService) store(ctx context.Context, sessionId, key string, page entities.CatalogPage) {
	shared := page
	shared.ScrollPosition = 0
	if _, err := s.cache.Put(ctx, key, shared); err != nil {
		log.Printf("CatalogService.store[persistent]: %v", err)
	}
	if tier := s.sessionTier(sessionId); tier != nil {
		if _, err := tier.Put(ctx, key, page); err != nil {
			log.Printf("CatalogService.store[session]: %v", err)
		}
	}
}

// fetch collapses identical in-flight requests; each caller still honors its own ctx.
func (s *CatalogService) fetch(ctx context.Context, flightKey string, query url.Values, pageURL string) (models.Page[models.ApiProduct], error) {
	ch := s.flight.DoChan(flightKey, func() (any, error) {
		return s.pr.ListProducts(context.WithoutCancel(ctx), query, pageURL)
	})
	select {
	case <-ctx.Done():
		return models.Page[models.ApiProduct]{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Page[models.ApiProduct]{}, res.Err
		}
		return res.Val.(models.Page[models.ApiProduct]), nil
	}
}

// Load returns the cached page for the filter state or fetches the first page.
func (s *CatalogService) Load(ctx context.Context, sessionId, path string, state entities.FilterState, locale entities.Locale) (entities.CatalogView, error) {
	return s.load(ctx, sessionId, path, state, locale, nil)
}

func (s *CatalogService) load(ctx context.Context, sessionId, path string, state entities.FilterState, locale entities.Locale, current func() bool) (entities.CatalogView, error) {
	state = filters.Normalize(state)
	query := filters.Encode(state, locale)
	key := CacheKey(localePath(locale, path), query)
	view := entities.CatalogView{
		URL:      pathWithQuery(path, query),
		CacheKey: key,
		Page:     emptyPage(state),
	}
	if e := s.lookup(ctx, sessionId, key); e != nil {
		view.Cached = true
		view.Page = e.Data
		return view, nil
	}

	raw, err := s.fetch(ctx, key, filters.ToQuery(state, locale), "")
	if err != nil {
		log.Printf("CatalogService.Load %s: %v", key, err)
		return view, err
	}
	if current != nil && !current() {
		return view, models.ErrStale
	}
	view.Page = entities.CatalogPage{
		Products:    SummariesFromApi(raw.Results, locale),
		NextPage:    raw.Next,
		LoadedPages: 1,
		Filters:     state,
	}
	s.store(ctx, sessionId, key, view.Page)
	return view, nil
}

// LoadMore fetches the next page, appends it to the cached list and records
// the scroll offset. Without a next page it only records the offset.
func (s *CatalogService) LoadMore(ctx context.Context, sessionId, path string, state entities.FilterState, scroll int, locale entities.Locale) (entities.CatalogView, error) {
	view, err := s.Load(ctx, sessionId, path, state, locale)
	if err != nil {
		return view, err
	}
	page := view.Page
	if page.NextPage == nil || *page.NextPage == "" {
		page.ScrollPosition = scroll
		s.store(ctx, sessionId, view.CacheKey, page)
		view.Page = page
		return view, nil
	}

	next := *page.NextPage
	raw, err := s.fetch(ctx, view.CacheKey+"#"+next, nil, next)
	if err != nil {
		log.Printf("CatalogService.LoadMore %s: %v", view.CacheKey, err)
		return view, err
	}
	products := make([]entities.ProductSummary, 0, len(page.Products)+len(raw.Results))
	products = append(products, page.Products...)
	products = append(products, SummariesFromApi(raw.Results, locale)...)
	page.Products = products
	page.NextPage = raw.Next
	page.LoadedPages++
	page.ScrollPosition = scroll
	s.store(ctx, sessionId, view.CacheKey, page)

	view.Page = page
	view.Cached = false
	return view, nil
}

// SaveScroll records where the customer left the list, in the session tier
// only. Without a session there is nowhere to keep it.
func (s *CatalogService) SaveScroll(ctx context.Context, sessionId, path string, state entities.FilterState, scroll int, locale entities.Locale) error {
	state = filters.Normalize(state)
	key := CacheKey(localePath(locale, path), filters.Encode(state, locale))
	e := s.lookup(ctx, sessionId, key)
	if e == nil {
		return models.ErrNotFoundError
	}
	tier := s.sessionTier(sessionId)
	if tier == nil {
		return nil
	}
	page := e.Data
	page.ScrollPosition = scroll
	if _, err := tier.Put(ctx, key, page); err != nil {
		log.Printf("CatalogService.SaveScroll: %v", err)
		return err
	}
	return nil
}

// ApplyFilters is the navigate step: it supersedes any in-flight load of the
// same view, then loads the page for the new state. A load that was
// superseded reports ErrStale and writes nothing. Anonymous requests have no
// view of their own and are never superseded.
func (s *CatalogService) ApplyFilters(ctx context.Context, sessionId, path string, state entities.FilterState, locale entities.Locale) (entities.CatalogView, error) {
	if sessionId == "" {
		return s.load(ctx, sessionId, path, state, locale, nil)
	}
	vk := sessionId + "|" + path
	ctx, gen, done := s.begin(ctx, vk)
	defer done()

	view, err := s.load(ctx, sessionId, path, state, locale, func() bool { return s.isCurrent(vk, gen) })
	if err != nil && !s.isCurrent(vk, gen) {
		return view, models.ErrStale
	}
	return view, err
}

// ClearFilters drops every cached listing of the path in both tiers and both
// locales, then loads the unfiltered page.
func (s *CatalogService) ClearFilters(ctx context.Context, sessionId, path string, locale entities.Locale) (entities.CatalogView, error) {
	tiers := []*repository.CatalogCache{s.cache}
	if tier := s.sessionTier(sessionId); tier != nil {
		tiers = append(tiers, tier)
	}
	for _, l := range []entities.Locale{entities.LocaleRu, entities.LocaleUz} {
		base := CacheKey(localePath(l, path), "")
		for _, tier := range tiers {
			if _, err := tier.EvictPrefix(ctx, base+"?"); err != nil {
				log.Printf("ClearFilters: %v", err)
			}
			if err := tier.Delete(ctx, base); err != nil {
				log.Printf("ClearFilters: %v", err)
			}
		}
	}
	return s.ApplyFilters(ctx, sessionId, path, entities.DefaultFilterState(), locale)
}

// EndSession forgets the session-scoped tier of a session.
func (s *CatalogService) EndSession(ctx context.Context, sessionId string) (int, error) {
	tier := s.sessionTier(sessionId)
	if tier == nil {
		return 0, nil
	}
	return tier.EvictPrefix(ctx, "")
}

// EvictPrefix removes persistent entries whose key starts with prefix.
func (s *CatalogService) EvictPrefix(ctx context.Context, prefix string) (int, error) {
	return s.cache.EvictPrefix(ctx, prefix)
}

func (s *CatalogService) begin(ctx context.Context, vk string) (context.Context, uint64, func()) {
	cctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	vs, ok := s.views[vk]
	if !ok {
		vs = &viewState{}
		s.views[vk] = vs
	} else if vs.cancel != nil {
		vs.cancel()
	}
	vs.gen = gen
	vs.cancel = cancel
	s.mu.Unlock()

	return cctx, gen, func() {
		cancel()
		s.mu.Lock()
		if cur, ok := s.views[vk]; ok && cur.gen == gen {
			delete(s.views, vk)
		}
		s.mu.Unlock()
	}
}

func (s *CatalogService) isCurrent(vk string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs, ok := s.views[vk]
	return ok && vs.gen == gen
}

func emptyPage(state entities.FilterState) entities.CatalogPage {
	return entities.CatalogPage{
		Products: []entities.ProductSummary{},
		Filters:  state,
	}
}

func ParseScroll(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
