package services

import (
	"strconv"

	"bagStore/entities"
	"bagStore/models"

	"github.com/gosimple/slug"
)

func localized(locale entities.Locale, ru, uz string) string {
	if locale == entities.LocaleUz && uz != "" {
		return uz
	}
	if ru == "" {
		return uz
	}
	return ru
}

func colorVariants(p models.ApiProduct, locale entities.Locale) []entities.ColorVariant {
	colors := make([]entities.ColorVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		colors = append(colors, colorVariant(v, locale))
	}
	return colors
}

func colorVariant(v models.ApiVariant, locale entities.Locale) entities.ColorVariant {
	cv := entities.ColorVariant{
		VariantId: v.Id,
		ColorId:   v.Color.Id,
		Name:      localized(locale, v.Color.TitleRu, v.Color.TitleUz),
		Hex:       v.Color.Hex,
		Stock:     v.Stock,
	}
	if len(v.Images) > 0 {
		cv.Image = v.Images[0].Image
	}
	return cv
}

// productAvailability: in stock if any variant has stock, pre-order if any
// variant has unknown stock, otherwise out of stock.
func productAvailability(p models.ApiProduct) entities.Availability {
	if len(p.Variants) == 0 {
		return entities.OutOfStock
	}
	preOrder := false
	for _, v := range p.Variants {
		switch entities.AvailabilityOf(v.Stock) {
		case entities.InStock:
			return entities.InStock
		case entities.PreOrder:
			preOrder = true
		}
	}
	if preOrder {
		return entities.PreOrder
	}
	return entities.OutOfStock
}

func SummaryFromApi(p models.ApiProduct, locale entities.Locale) entities.ProductSummary {
	name := localized(locale, p.TitleRu, p.TitleUz)
	s := entities.ProductSummary{
		Id:           p.Id,
		BrandId:      p.Brand.Id,
		BrandName:    p.Brand.Title,
		Name:         name,
		Description:  localized(locale, p.DescriptionRu, p.DescriptionUz),
		Slug:         slug.MakeLang(name, string(locale)),
		Price:        FormatPrice(p.Price, locale),
		IsSale:       p.IsSale,
		Availability: productAvailability(p),
		SizeIds:      []int{},
		Colors:       colorVariants(p, locale),
	}
	if s.Slug == "" {
		s.Slug = strconv.Itoa(p.Id)
	}
	if p.IsSale && p.SalePrice != nil {
		s.SalePrice = FormatPrice(*p.SalePrice, locale)
	}
	seen := map[int]bool{}
	for _, v := range p.Variants {
		if s.Image == "" && len(v.Images) > 0 {
			s.Image = v.Images[0].Image
		}
		for _, size := range v.Sizes {
			if !seen[size.Id] {
				seen[size.Id] = true
				s.SizeIds = append(s.SizeIds, size.Id)
			}
		}
	}
	return s
}

func SummariesFromApi(list []models.ApiProduct, locale entities.Locale) []entities.ProductSummary {
	out := make([]entities.ProductSummary, 0, len(list))
	for _, p := range list {
		out = append(out, SummaryFromApi(p, locale))
	}
	return out
}

func DetailFromApi(p models.ApiProduct, locale entities.Locale) entities.ProductDetail {
	d := entities.ProductDetail{
		ProductSummary: SummaryFromApi(p, locale),
		Variants:       make([]entities.VariantDetail, 0, len(p.Variants)),
	}
	if p.Category != nil {
		cat := categoryFromApi(*p.Category, locale)
		d.Category = &cat
	}
	for _, v := range p.Variants {
		vd := entities.VariantDetail{
			Id:           v.Id,
			Color:        colorVariant(v, locale),
			Price:        FormatPrice(variantPrice(p, v), locale),
			Stock:        v.Stock,
			Availability: entities.AvailabilityOf(v.Stock),
			Images:       make([]string, 0, len(v.Images)),
			Sizes:        make([]entities.Size, 0, len(v.Sizes)),
		}
		for _, img := range v.Images {
			vd.Images = append(vd.Images, img.Image)
		}
		for _, size := range v.Sizes {
			vd.Sizes = append(vd.Sizes, entities.Size{Id: size.Id, Title: size.Title})
		}
		d.Variants = append(d.Variants, vd)
	}
	return d
}

func categoryFromApi(c models.ApiCategory, locale entities.Locale) entities.Category {
	name := localized(locale, c.TitleRu, c.TitleUz)
	return entities.Category{
		Id:   c.Id,
		Name: name,
		Slug: slug.MakeLang(name, string(locale)),
	}
}

// variantPrice prefers the variant's own price, then the sale price.
func variantPrice(p models.ApiProduct, v models.ApiVariant) string {
	if v.Price != "" {
		return v.Price
	}
	if p.IsSale && p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// LineItemFromApi builds a cart row from fresh product data. It fails with
// ErrBadRequest when the variant or size does not belong to the product.
func LineItemFromApi(p models.ApiProduct, variantId int, sizeId *int, quantity int, locale entities.Locale) (entities.CartLineItem, error) {
	var variant *models.ApiVariant
	for i := range p.Variants {
		if p.Variants[i].Id == variantId {
			variant = &p.Variants[i]
			break
		}
	}
	if variant == nil {
		return entities.CartLineItem{}, models.ErrBadRequest
	}
	if sizeId != nil {
		found := false
		for _, s := range variant.Sizes {
			if s.Id == *sizeId {
				found = true
				break
			}
		}
		if !found {
			return entities.CartLineItem{}, models.ErrBadRequest
		}
	}
	item := entities.CartLineItem{
		ProductId:   p.Id,
		VariantId:   variant.Id,
		SizeId:      sizeId,
		Quantity:    quantity,
		Name:        localized(locale, p.TitleRu, p.TitleUz),
		Description: localized(locale, p.DescriptionRu, p.DescriptionUz),
		Price:       FormatPrice(variantPrice(p, *variant), locale),
		Stock:       variant.Stock,
	}
	if len(variant.Images) > 0 {
		item.Image = variant.Images[0].Image
	}
	return item, nil
}
