package services

import (
	"context"
	"log"
	"time"

	"bagStore/entities"
	"bagStore/models"
	"bagStore/repository"
)

// CategoryService serves the reference lists of the storefront: categories,
// brands, sizes, colours and the shop contacts.
type CategoryService struct {
	cr repository.CategoryRepository

	categories *memo[[]models.ApiCategory]
	brands     *memo[[]models.ApiBrand]
	sizes      *memo[[]models.ApiSize]
	colors     *memo[[]models.ApiColor]
	contacts   *memo[models.ApiContacts]
}

func NewCategoryService(catRepo repository.CategoryRepository) *CategoryService {
	return newCategoryService(catRepo, ReferenceTTL, time.Now)
}

func newCategoryService(catRepo repository.CategoryRepository, ttl time.Duration, now func() time.Time) *CategoryService {
	return &CategoryService{
		cr:         catRepo,
		categories: newMemo[[]models.ApiCategory](ttl, now),
		brands:     newMemo[[]models.ApiBrand](ttl, now),
		sizes:      newMemo[[]models.ApiSize](ttl, now),
		colors:     newMemo[[]models.ApiColor](ttl, now),
		contacts:   newMemo[models.ApiContacts](ttl, now),
	}
}

func (cas *CategoryService) GetAllCategories(ctx context.Context, locale entities.Locale) ([]entities.Category, error) {
	list, err := cas.categories.load(func() ([]models.ApiCategory, error) {
		return cas.cr.GetAllCategories(ctx)
	})
	if err != nil {
		log.Printf("GetAllCategories: %v", err)
		return nil, err
	}
	out := make([]entities.Category, 0, len(list))
	for _, c := range list {
		out = append(out, categoryFromApi(c, locale))
	}
	return out, nil
}

func (cas *CategoryService) GetBrands(ctx context.Context) ([]entities.Brand, error) {
	list, err := cas.brands.load(func() ([]models.ApiBrand, error) {
		return cas.cr.GetBrands(ctx)
	})
	if err != nil {
		log.Printf("GetBrands: %v", err)
		return nil, err
	}
	out := make([]entities.Brand, 0, len(list))
	for _, b := range list {
		out = append(out, entities.Brand{Id: b.Id, Name: b.Title})
	}
	return out, nil
}

func (cas *CategoryService) GetSizes(ctx context.Context) ([]entities.Size, error) {
	list, err := cas.sizes.load(func() ([]models.ApiSize, error) {
		return cas.cr.GetSizes(ctx)
	})
	if err != nil {
		log.Printf("GetSizes: %v", err)
		return nil, err
	}
	out := make([]entities.Size, 0, len(list))
	for _, s := range list {
		out = append(out, entities.Size{Id: s.Id, Title: s.Title})
	}
	return out, nil
}

func (cas *CategoryService) GetColors(ctx context.Context, locale entities.Locale) ([]entities.Color, error) {
	list, err := cas.colors.load(func() ([]models.ApiColor, error) {
		return cas.cr.GetColors(ctx)
	})
	if err != nil {
		log.Printf("GetColors: %v", err)
		return nil, err
	}
	out := make([]entities.Color, 0, len(list))
	for _, c := range list {
		out = append(out, entities.Color{
			Id:   c.Id,
			Name: localized(locale, c.TitleRu, c.TitleUz),
			Hex:  c.Hex,
		})
	}
	return out, nil
}

func (cas *CategoryService) GetContacts(ctx context.Context, locale entities.Locale) (entities.Contacts, error) {
	c, err := cas.contacts.load(func() (models.ApiContacts, error) {
		return cas.cr.GetContacts(ctx)
	})
	if err != nil {
		log.Printf("GetContacts: %v", err)
		return entities.Contacts{}, err
	}
	return entities.Contacts{
		Phone:        c.Phone,
		Email:        c.Email,
		Address:      localized(locale, c.AddressRu, c.AddressUz),
		Telegram:     c.Telegram,
		Instagram:    c.Instagram,
		WorkingHours: c.WorkingHours,
	}, nil
}

// Invalidate forgets every memoized list.
func (cas *CategoryService) Invalidate() {
	cas.categories.invalidate()
	cas.brands.invalidate()
	cas.sizes.invalidate()
	cas.colors.invalidate()
	cas.contacts.invalidate()
}
