package models

import (
	"errors"
)

var ErrBadRequest = errors.New("bad request")
var ErrServerError = errors.New("server error")
var ErrNotFoundError = errors.New("not found")
var ErrNotAllowed = errors.New("not acceptable")
var ErrUpstream = errors.New("catalog api unavailable")
var ErrValidation = errors.New("validation failed")
var ErrStale = errors.New("superseded by a newer request")

// Page is the pagination envelope every listing endpoint of the catalog api returns.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type ApiBrand struct {
	Id    int    `json:"id"`
	Title string `json:"title"`
}

type ApiSize struct {
	Id    int    `json:"id"`
	Title string `json:"title"`
}

type ApiColor struct {
	Id      int    `json:"id"`
	TitleRu string `json:"title_ru"`
	TitleUz string `json:"title_uz"`
	Hex     string `json:"hex"`
}

type ApiCategory struct {
	Id      int    `json:"id"`
	TitleRu string `json:"title_ru"`
	TitleUz string `json:"title_uz"`
}

type ApiImage struct {
	Image string `json:"image"`
}

type ApiVariant struct {
	Id     int        `json:"id"`
	Color  ApiColor   `json:"color"`
	Price  string     `json:"price"`
	Stock  *int       `json:"stock"`
	Images []ApiImage `json:"images"`
	Sizes  []ApiSize  `json:"sizes"`
}

type ApiProduct struct {
	Id            int          `json:"id"`
	Brand         ApiBrand     `json:"brand"`
	Category      *ApiCategory `json:"category"`
	TitleRu       string       `json:"title_ru"`
	TitleUz       string       `json:"title_uz"`
	DescriptionRu string       `json:"description_ru"`
	DescriptionUz string       `json:"description_uz"`
	Price         string       `json:"price"`
	IsSale        bool         `json:"is_sale"`
	SalePrice     *string      `json:"sale_price"`
	Variants      []ApiVariant `json:"variants"`
}

type ApiContacts struct {
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	AddressRu    string `json:"address_ru"`
	AddressUz    string `json:"address_uz"`
	Telegram     string `json:"telegram"`
	Instagram    string `json:"instagram"`
	WorkingHours string `json:"working_hours"`
}

type OrderItemPayload struct {
	Product  int  `json:"product"`
	Variant  int  `json:"variant"`
	Size     *int `json:"size"`
	Quantity int  `json:"quantity"`
}

type OrderPayload struct {
	FullName string             `json:"full_name"`
	Phone    string             `json:"phone"`
	Address  string             `json:"address,omitempty"`
	Comment  string             `json:"comment,omitempty"`
	Items    []OrderItemPayload `json:"items"`
}

type OrderResult struct {
	Id int `json:"id"`
}
