package services

import (
	"context"
	"log"

	"bagStore/entities"
	"bagStore/models"
	"bagStore/repository"
)

type ProductService struct {
	pr repository.ProductRepository
}

func NewProductService(pRepo repository.ProductRepository) ProductService {
	return ProductService{
		pr: pRepo,
	}
}

func (ps *ProductService) GetProductById(ctx context.Context, prodId int, locale entities.Locale) (pEnt entities.ProductDetail, err error) {
	if prodId < 1 {
		err = models.ErrBadRequest
		return
	}
	p, err := ps.pr.GetProductById(ctx, prodId)
	if err != nil {
		log.Printf("GetProductById %d: %v", prodId, err)
		return
	}
	pEnt = DetailFromApi(p, locale)
	return
}

// GetColorVariants lists the colour variants of a product for the cart's
// colour picker.
func (ps *ProductService) GetColorVariants(ctx context.Context, prodId int, locale entities.Locale) ([]entities.ColorVariant, error) {
	p, err := ps.pr.GetProductById(ctx, prodId)
	if err != nil {
		log.Printf("GetColorVariants %d: %v", prodId, err)
		return nil, err
	}
	return colorVariants(p, locale), nil
}
