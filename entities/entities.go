package entities

type Locale string

const (
	LocaleRu Locale = "ru"
	LocaleUz Locale = "uz"
)

func (l Locale) Valid() bool {
	return l == LocaleRu || l == LocaleUz
}

type Availability string

const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
	PreOrder   Availability = "pre_order"
)

// AvailabilityOf classifies a stock value; nil stock means the item is sold on pre-order.
func AvailabilityOf(stock *int) Availability {
	switch {
	case stock == nil:
		return PreOrder
	case *stock > 0:
		return InStock
	default:
		return OutOfStock
	}
}

type ColorVariant struct {
	VariantId int    `json:"variant_id"`
	ColorId   int    `json:"color_id"`
	Name      string `json:"name"`
	Hex       string `json:"hex"`
	Image     string `json:"image"`
	Stock     *int   `json:"stock"`
}

type Size struct {
	Id    int    `json:"id"`
	Title string `json:"title"`
}

type Brand struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Color struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

type Contacts struct {
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	Telegram     string `json:"telegram"`
	Instagram    string `json:"instagram"`
	WorkingHours string `json:"working_hours"`
}

type ProductSummary struct {
	Id           int            `json:"id"`
	BrandId      int            `json:"brand_id"`
	BrandName    string         `json:"brand_name"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Slug         string         `json:"slug"`
	Price        string         `json:"price"`
	IsSale       bool           `json:"is_sale"`
	SalePrice    string         `json:"sale_price,omitempty"`
	Availability Availability   `json:"availability"`
	Image        string         `json:"image"`
	SizeIds      []int          `json:"size_ids"`
	Colors       []ColorVariant `json:"colors"`
}

type VariantDetail struct {
	Id           int          `json:"id"`
	Color        ColorVariant `json:"color"`
	Price        string       `json:"price"`
	Stock        *int         `json:"stock"`
	Availability Availability `json:"availability"`
	Images       []string     `json:"images"`
	Sizes        []Size       `json:"sizes"`
}

type ProductDetail struct {
	ProductSummary
	Category *Category      `json:"category,omitempty"`
	Variants []VariantDetail `json:"variants"`
}
