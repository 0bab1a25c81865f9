package services

import (
	"context"
	"errors"
	"log"

	"bagStore/entities"
	"bagStore/models"
	"bagStore/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const refreshParallelism = 4

type CartService struct {
	pr repository.ProductRepository
	cr repository.CartRepository
	sr repository.SessionRepository
}

func NewCartService(productRepo repository.ProductRepository, cartRepo repository.CartRepository, sessionRepo repository.SessionRepository) CartService {
	return CartService{
		pr: productRepo,
		cr: cartRepo,
		sr: sessionRepo,
	}
}

func (cs *CartService) CreateCartSession(ctx context.Context) (string, error) {
	return cs.sr.CreateSession(ctx)
}

// TouchCartSession keeps a session alive and reports whether the id is
// usable. An expired session whose cart is still stored is registered again.
func (cs *CartService) TouchCartSession(ctx context.Context, cartSessionId string) (bool, error) {
	ok, err := cs.sr.CheckSession(ctx, cartSessionId)
	if err != nil {
		return false, err
	}
	if !ok {
		items, err := cs.cr.GetCart(ctx, cartSessionId)
		if err != nil || len(items) == 0 {
			return false, err
		}
		log.Printf("TouchCartSession: restoring expired session with %d cart rows", len(items))
	}
	return true, cs.sr.RefreshSession(ctx, cartSessionId)
}

func (cs *CartService) AddCartItem(ctx context.Context, cartSessionId string, req entities.CartRequest, locale entities.Locale) (err error) {
	if req.Quantity < 1 || req.VariantId == nil {
		log.Printf("AddCartItem: quantity and variant are required")
		return models.ErrBadRequest
	}
	p, e := cs.pr.GetProductById(ctx, req.ProductId)
	if e != nil {
		if errors.Is(e, models.ErrNotFoundError) {
			log.Printf("AddCartItem: product %d does not exist", req.ProductId)
			return models.ErrBadRequest
		}
		return e
	}
	item, err := LineItemFromApi(p, *req.VariantId, req.SizeId, req.Quantity, locale)
	if err != nil {
		log.Printf("AddCartItem: variant %d size %v is not part of product %d", *req.VariantId, req.SizeId, req.ProductId)
		return err
	}
	err = cs.cr.AddCartItem(ctx, cartSessionId, item)
	if errors.Is(err, models.ErrNotAllowed) {
		log.Printf("AddCartItem: the required quantity of products is not available")
	}
	return err
}

func (cs *CartService) UpdateQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, quantity int) (bool, error) {
	return cs.cr.UpdateQuantity(ctx, cartSessionId, key, quantity)
}

// ChangeQuantity applies a +/- step to a row; steps that leave [1, stock] are ignored.
func (cs *CartService) ChangeQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, delta int) (bool, error) {
	return cs.cr.ChangeQuantity(ctx, cartSessionId, key, delta)
}

// RemoveCartItem drops one row when the variant is given, otherwise every
// row of the product.
func (cs *CartService) RemoveCartItem(ctx context.Context, cartSessionId string, req entities.CartRequest) error {
	if req.VariantId == nil {
		return cs.cr.RemoveProduct(ctx, cartSessionId, req.ProductId)
	}
	return cs.cr.RemoveLine(ctx, cartSessionId, entities.LineKey{
		ProductId: req.ProductId,
		VariantId: *req.VariantId,
		SizeId:    req.SizeId,
	})
}

func (cs *CartService) ClearCart(ctx context.Context, cartSessionId string) error {
	return cs.cr.ClearCart(ctx, cartSessionId)
}

// SelectColor records the chosen colour variant and stores the product's
// colour list, fetched on demand for the picker.
func (cs *CartService) SelectColor(ctx context.Context, cartSessionId string, req entities.ColorRequest, locale entities.Locale) (bool, error) {
	p, err := cs.pr.GetProductById(ctx, req.ProductId)
	if err != nil {
		return false, err
	}
	colors := colorVariants(p, locale)
	known := false
	for _, c := range colors {
		if c.VariantId == req.ColorVariantId {
			known = true
			break
		}
	}
	if !known {
		return false, models.ErrBadRequest
	}
	return cs.cr.SelectColor(ctx, cartSessionId, req.LineKey, req.ColorVariantId, colors)
}

func (cs *CartService) GetCartItems(ctx context.Context, cartSessionId string, refresh bool, locale entities.Locale) (resp entities.CartResponse, err error) {
	items, err := cs.cr.GetCart(ctx, cartSessionId)
	if err != nil {
		return
	}
	if refresh && len(items) > 0 {
		fresh, changed := cs.refreshItems(ctx, items, locale)
		if changed {
			merged, e := cs.cr.RefreshLines(ctx, cartSessionId, fresh)
			if e != nil {
				log.Printf("GetCartItems: saving refreshed cart: %v", e)
				items = fresh
			} else {
				items = merged
			}
		}
	}
	return CartSummary(items, locale), nil
}

// CartSummary totals quantities and line prices.
func CartSummary(items []entities.CartLineItem, locale entities.Locale) entities.CartResponse {
	total := decimal.Zero
	count := 0
	for _, it := range items {
		count += it.Quantity
		if price, ok := ParsePrice(it.Price); ok {
			total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	if items == nil {
		items = []entities.CartLineItem{}
	}
	return entities.CartResponse{
		Items:      items,
		Count:      count,
		TotalPrice: FormatAmount(total, locale),
	}
}

func (cs *CartService) CartCount(ctx context.Context, cartSessionId string) (int, error) {
	items, err := cs.cr.GetCart(ctx, cartSessionId)
	if err != nil {
		return 0, err
	}
	return CartSummary(items, entities.LocaleRu).Count, nil
}

// refreshItems re-reads each row's product. A failed fetch keeps the stored
// row; the quantity is never touched.
func (cs *CartService) refreshItems(ctx context.Context, items []entities.CartLineItem, locale entities.Locale) ([]entities.CartLineItem, bool) {
	return refreshLineItems(ctx, cs.pr, items, locale)
}

func refreshLineItems(ctx context.Context, pr repository.ProductRepository, items []entities.CartLineItem, locale entities.Locale) ([]entities.CartLineItem, bool) {
	fresh := make([]entities.CartLineItem, len(items))
	copy(fresh, items)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshParallelism)
	for i := range fresh {
		i := i
		g.Go(func() error {
			old := fresh[i]
			p, err := pr.GetProductById(gctx, old.ProductId)
			if err != nil {
				log.Printf("refreshLineItems: product %d: %v", old.ProductId, err)
				return nil
			}
			item, err := LineItemFromApi(p, old.VariantId, old.SizeId, old.Quantity, locale)
			if err != nil {
				log.Printf("refreshLineItems: product %d variant %d is gone", old.ProductId, old.VariantId)
				return nil
			}
			item.SelectedColor = old.SelectedColor
			item.Colors = old.Colors
			fresh[i] = item
			return nil
		})
	}
	_ = g.Wait()

	changed := false
	for i := range fresh {
		if repository.LineChanged(items[i], fresh[i]) {
			changed = true
			break
		}
	}
	return fresh, changed
}
