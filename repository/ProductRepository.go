package repository

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"bagStore/models"
)

type ProductRepository interface {
	// ListProducts fetches the first page for query, or the page at pageURL
	// (the "next" link of a previous page) when it is not empty.
	ListProducts(ctx context.Context, query url.Values, pageURL string) (models.Page[models.ApiProduct], error)
	GetProductById(ctx context.Context, id int) (models.ApiProduct, error)
}

type ProductRepo struct {
	api *ApiClient
}

func NewProductRepository(api *ApiClient) (ProductRepository, error) {
	if api == nil {
		return nil, errors.New("api client must be non-nil")
	}
	return &ProductRepo{
		api: api,
	}, nil
}

func (p *ProductRepo) ListProducts(ctx context.Context, query url.Values, pageURL string) (page models.Page[models.ApiProduct], err error) {
	if pageURL != "" {
		err = p.api.getJSON(ctx, pageURL, nil, &page)
	} else {
		err = p.api.getJSON(ctx, "products/", query, &page)
	}
	if page.Results == nil {
		page.Results = []models.ApiProduct{}
	}
	return
}

func (p *ProductRepo) GetProductById(ctx context.Context, id int) (prod models.ApiProduct, err error) {
	err = p.api.getJSON(ctx, "products/"+strconv.Itoa(id)+"/", nil, &prod)
	return
}
