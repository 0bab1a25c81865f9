package repository

import (
	"context"
	"errors"

	"bagStore/models"
)

// CategoryRepository reads the enumerations that feed the filter dropdowns.
type CategoryRepository interface {
	GetAllCategories(ctx context.Context) ([]models.ApiCategory, error)
	GetBrands(ctx context.Context) ([]models.ApiBrand, error)
	GetSizes(ctx context.Context) ([]models.ApiSize, error)
	GetColors(ctx context.Context) ([]models.ApiColor, error)
	GetContacts(ctx context.Context) (models.ApiContacts, error)
}

type CategoryRepo struct {
	api *ApiClient
}

func NewCategoryRepository(api *ApiClient) (CategoryRepository, error) {
	if api == nil {
		return nil, errors.New("api client must be non-nil")
	}
	return &CategoryRepo{
		api: api,
	}, nil
}

func (c *CategoryRepo) GetAllCategories(ctx context.Context) ([]models.ApiCategory, error) {
	return getList[models.ApiCategory](ctx, c.api, "categories/")
}

func (c *CategoryRepo) GetBrands(ctx context.Context) ([]models.ApiBrand, error) {
	return getList[models.ApiBrand](ctx, c.api, "brands/")
}

func (c *CategoryRepo) GetSizes(ctx context.Context) ([]models.ApiSize, error) {
	return getList[models.ApiSize](ctx, c.api, "sizes/")
}

func (c *CategoryRepo) GetColors(ctx context.Context) ([]models.ApiColor, error) {
	return getList[models.ApiColor](ctx, c.api, "colors/")
}

// GetContacts reads the shop's contact block; the api returns it as a one
// element list.
func (c *CategoryRepo) GetContacts(ctx context.Context) (models.ApiContacts, error) {
	list, err := getList[models.ApiContacts](ctx, c.api, "contacts/")
	if err != nil {
		return models.ApiContacts{}, err
	}
	if len(list) == 0 {
		return models.ApiContacts{}, models.ErrNotFoundError
	}
	return list[0], nil
}
