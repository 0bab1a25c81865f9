package entities

// LineKey identifies a cart row: one product variant in one size.
type LineKey struct {
	ProductId int  `json:"product_id"`
	VariantId int  `json:"variant_id"`
	SizeId    *int `json:"size_id"`
}

func (k LineKey) Matches(item CartLineItem) bool {
	if k.ProductId != item.ProductId || k.VariantId != item.VariantId {
		return false
	}
	if k.SizeId == nil || item.SizeId == nil {
		return k.SizeId == nil && item.SizeId == nil
	}
	return *k.SizeId == *item.SizeId
}

type CartLineItem struct {
	ProductId     int            `json:"product_id"`
	VariantId     int            `json:"variant_id"`
	SizeId        *int           `json:"size_id"`
	Quantity      int            `json:"quantity"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         string         `json:"price"`
	Stock         *int           `json:"stock"`
	Image         string         `json:"image"`
	SelectedColor *int           `json:"selected_color,omitempty"`
	Colors        []ColorVariant `json:"colors,omitempty"`
}

func (i CartLineItem) Key() LineKey {
	return LineKey{ProductId: i.ProductId, VariantId: i.VariantId, SizeId: i.SizeId}
}

// CartRequest is what a client sends to add, update or remove a row.
type CartRequest struct {
	ProductId int  `json:"product_id"`
	VariantId *int `json:"variant_id"`
	SizeId    *int `json:"size_id"`
	Quantity  int  `json:"quantity"`
}

type ColorRequest struct {
	LineKey
	ColorVariantId int `json:"color_variant_id"`
}

type CartResponse struct {
	Items      []CartLineItem `json:"items"`
	Count      int            `json:"count"`
	TotalPrice string         `json:"total_price"`
}

type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Comment string `json:"comment"`
	Consent bool   `json:"consent"`
}

type OrderConfirmation struct {
	OrderId int `json:"order_id"`
	Items   int `json:"items"`
}
