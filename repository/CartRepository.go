package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"bagStore/entities"
	"bagStore/models"
)

// CartNotifier is told after every persisted cart mutation.
type CartNotifier interface {
	NotifyCartChanged(ctx context.Context, cartSessionId string)
}

type CartRepository interface {
	GetCart(ctx context.Context, cartSessionId string) ([]entities.CartLineItem, error)
	SetCart(ctx context.Context, cartSessionId string, items []entities.CartLineItem) error
	AddCartItem(ctx context.Context, cartSessionId string, item entities.CartLineItem) error
	UpdateQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, quantity int) (changed bool, err error)
	ChangeQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, delta int) (changed bool, err error)
	RefreshLines(ctx context.Context, cartSessionId string, fresh []entities.CartLineItem) ([]entities.CartLineItem, error)
	SelectColor(ctx context.Context, cartSessionId string, key entities.LineKey, variantId int, colors []entities.ColorVariant) (changed bool, err error)
	RemoveProduct(ctx context.Context, cartSessionId string, productId int) error
	RemoveLine(ctx context.Context, cartSessionId string, key entities.LineKey) error
	RemoveLines(ctx context.Context, cartSessionId string, keys []entities.LineKey) error
	ClearCart(ctx context.Context, cartSessionId string) error
}

type CartRepo struct {
	store    KVStore
	notifier CartNotifier
	ttl      time.Duration
	locks    keyedMutex
}

func NewCartRepository(store KVStore, notifier CartNotifier, ttl time.Duration) (CartRepository, error) {
	if store == nil {
		return nil, errors.New("store must be non-nil")
	}
	return &CartRepo{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		locks:    keyedMutex{locks: make(map[string]*refLock)},
	}, nil
}

func CartKey(cartSessionId string) string {
	return "cart:" + cartSessionId
}

// GetCart never fails on malformed data: a broken value reads as an empty cart.
func (c *CartRepo) GetCart(ctx context.Context, cartSessionId string) ([]entities.CartLineItem, error) {
	items := []entities.CartLineItem{}
	val, found, err := c.store.Get(ctx, CartKey(cartSessionId))
	if err != nil {
		return items, err
	}
	if !found {
		return items, nil
	}
	if e := json.Unmarshal(val, &items); e != nil || items == nil {
		if e != nil {
			log.Printf("GetCart: malformed cart %s: %v", cartSessionId, e)
		}
		return []entities.CartLineItem{}, nil
	}
	return items, nil
}

func (c *CartRepo) SetCart(ctx context.Context, cartSessionId string, items []entities.CartLineItem) error {
	unlock := c.locks.Lock(cartSessionId)
	defer unlock()
	return c.persist(ctx, cartSessionId, items)
}

// AddCartItem increments a matching row or appends the item. When the item
// carries a known stock, a total above it is refused with ErrNotAllowed.
func (c *CartRepo) AddCartItem(ctx context.Context, cartSessionId string, item entities.CartLineItem) error {
	var refused error
	err := c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		key := item.Key()
		inCart := 0
		idx := -1
		for i := range items {
			if key.Matches(items[i]) {
				inCart = items[i].Quantity
				idx = i
				break
			}
		}
		if item.Stock != nil && inCart+item.Quantity > *item.Stock {
			refused = models.ErrNotAllowed
			return items, false
		}
		if idx < 0 {
			return append(items, item), true
		}
		items[idx].Quantity += item.Quantity
		return items, true
	})
	if err != nil {
		return err
	}
	return refused
}

// UpdateQuantity ignores targets below 1 or above a known stock.
func (c *CartRepo) UpdateQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, quantity int) (bool, error) {
	return c.setQuantity(ctx, cartSessionId, key, func(int) int { return quantity })
}

// ChangeQuantity applies a +/- step to the row's current quantity; steps
// that leave [1, stock] are ignored.
func (c *CartRepo) ChangeQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, delta int) (bool, error) {
	return c.setQuantity(ctx, cartSessionId, key, func(cur int) int { return cur + delta })
}

func (c *CartRepo) setQuantity(ctx context.Context, cartSessionId string, key entities.LineKey, target func(cur int) int) (bool, error) {
	changed := false
	err := c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		for i := range items {
			if !key.Matches(items[i]) {
				continue
			}
			quantity := target(items[i].Quantity)
			if quantity < 1 || quantity == items[i].Quantity {
				return items, false
			}
			if items[i].Stock != nil && quantity > *items[i].Stock {
				return items, false
			}
			items[i].Quantity = quantity
			changed = true
			return items, true
		}
		return items, false
	})
	return changed, err
}

// RefreshLines copies the product fields of fresh rows onto the stored rows
// with the same key. Quantity, colour choice and rows without a fresh
// counterpart are left alone. It returns the cart as stored afterwards.
func (c *CartRepo) RefreshLines(ctx context.Context, cartSessionId string, fresh []entities.CartLineItem) ([]entities.CartLineItem, error) {
	var out []entities.CartLineItem
	err := c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		changed := false
		for i := range items {
			for _, f := range fresh {
				if !f.Key().Matches(items[i]) {
					continue
				}
				if LineChanged(items[i], f) {
					items[i].Name = f.Name
					items[i].Description = f.Description
					items[i].Price = f.Price
					items[i].Stock = f.Stock
					items[i].Image = f.Image
					changed = true
				}
				break
			}
		}
		out = items
		return items, changed
	})
	if out == nil {
		out = []entities.CartLineItem{}
	}
	return out, err
}

// LineChanged reports whether two rows differ in what the shopper sees.
func LineChanged(a, b entities.CartLineItem) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Price != b.Price || a.Image != b.Image {
		return true
	}
	if (a.Stock == nil) != (b.Stock == nil) {
		return true
	}
	return a.Stock != nil && *a.Stock != *b.Stock
}

func (c *CartRepo) SelectColor(ctx context.Context, cartSessionId string, key entities.LineKey, variantId int, colors []entities.ColorVariant) (bool, error) {
	changed := false
	err := c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		for i := range items {
			if key.Matches(items[i]) {
				v := variantId
				items[i].SelectedColor = &v
				if colors != nil {
					items[i].Colors = colors
				}
				changed = true
				return items, true
			}
		}
		return items, false
	})
	return changed, err
}

func (c *CartRepo) RemoveProduct(ctx context.Context, cartSessionId string, productId int) error {
	return c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		kept := items[:0]
		for _, it := range items {
			if it.ProductId != productId {
				kept = append(kept, it)
			}
		}
		return kept, true
	})
}

func (c *CartRepo) RemoveLine(ctx context.Context, cartSessionId string, key entities.LineKey) error {
	return c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		kept := items[:0]
		for _, it := range items {
			if !key.Matches(it) {
				kept = append(kept, it)
			}
		}
		return kept, true
	})
}

// RemoveLines drops the rows with the given keys and keeps everything else.
func (c *CartRepo) RemoveLines(ctx context.Context, cartSessionId string, keys []entities.LineKey) error {
	return c.mutate(ctx, cartSessionId, func(items []entities.CartLineItem) ([]entities.CartLineItem, bool) {
		kept := items[:0]
		for _, it := range items {
			drop := false
			for _, k := range keys {
				if k.Matches(it) {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, it)
			}
		}
		return kept, len(kept) != len(items)
	})
}

func (c *CartRepo) ClearCart(ctx context.Context, cartSessionId string) error {
	return c.mutate(ctx, cartSessionId, func([]entities.CartLineItem) ([]entities.CartLineItem, bool) {
		return []entities.CartLineItem{}, true
	})
}

// mutate is the read-modify-write cycle shared by every cart operation. The
// whole array is rewritten and one notification fires when fn reports a change.
func (c *CartRepo) mutate(ctx context.Context, cartSessionId string, fn func([]entities.CartLineItem) ([]entities.CartLineItem, bool)) error {
	unlock := c.locks.Lock(cartSessionId)
	defer unlock()

	items, err := c.GetCart(ctx, cartSessionId)
	if err != nil {
		return err
	}
	items, write := fn(items)
	if !write {
		return nil
	}
	return c.persist(ctx, cartSessionId, items)
}

func (c *CartRepo) persist(ctx context.Context, cartSessionId string, items []entities.CartLineItem) error {
	if items == nil {
		items = []entities.CartLineItem{}
	}
	jsonData, err := json.Marshal(items)
	if err != nil {
		log.Printf("SetCart: marshal: %v", err)
		return models.ErrServerError
	}
	if err := c.store.Set(ctx, CartKey(cartSessionId), jsonData, c.ttl); err != nil {
		return err
	}
	if c.notifier != nil {
		c.notifier.NotifyCartChanged(ctx, cartSessionId)
	}
	return nil
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes cart writes per session inside one process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
