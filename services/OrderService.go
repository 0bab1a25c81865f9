package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"bagStore/entities"
	"bagStore/models"
	"bagStore/repository"

	"github.com/google/uuid"
)

var requiredMessages = map[entities.Locale]map[string]string{
	entities.LocaleRu: {
		"full_name": "Введите ваше имя",
		"phone":     "Введите номер телефона",
		"consent":   "Необходимо согласие на обработку персональных данных",
	},
	entities.LocaleUz: {
		"full_name": "Ismingizni kiriting",
		"phone":     "Telefon raqamingizni kiriting",
		"consent":   "Shaxsiy ma'lumotlarni qayta ishlashga rozilik bering",
	},
}

var genericOrderFailure = map[entities.Locale]string{
	entities.LocaleRu: "Не удалось оформить заказ. Попробуйте ещё раз.",
	entities.LocaleUz: "Buyurtmani rasmiylashtirib bo'lmadi. Qaytadan urinib ko'ring.",
}

type OrderService struct {
	pr repository.ProductRepository
	cr repository.CartRepository
	or repository.OrderRepository

	refreshItems bool
}

func NewOrderService(productRepo repository.ProductRepository, cartRepo repository.CartRepository, orderRepo repository.OrderRepository, refreshItems bool) OrderService {
	return OrderService{
		pr:           productRepo,
		cr:           cartRepo,
		or:           orderRepo,
		refreshItems: refreshItems,
	}
}

// ValidateCustomer checks the required checkout fields locally. It returns
// nil when the form may be submitted.
func ValidateCustomer(info entities.CustomerInfo, locale entities.Locale) *models.ValidationError {
	msgs, ok := requiredMessages[locale]
	if !ok {
		msgs = requiredMessages[entities.LocaleRu]
	}
	ve := &models.ValidationError{}
	if strings.TrimSpace(info.Name) == "" {
		ve.Add("full_name", msgs["full_name"])
	}
	if strings.TrimSpace(info.Phone) == "" {
		ve.Add("phone", msgs["phone"])
	}
	if !info.Consent {
		ve.Add("consent", msgs["consent"])
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// CreateOrder submits the cart of the session. The submitted rows are
// removed only after the api accepted the order; rows added meanwhile stay.
func (ors *OrderService) CreateOrder(ctx context.Context, cartSessionId string, info entities.CustomerInfo, locale entities.Locale) (conf entities.OrderConfirmation, err error) {
	if ve := ValidateCustomer(info, locale); ve != nil {
		log.Printf("CreateOrder: %v", ve)
		err = ve
		return
	}
	items, err := ors.cr.GetCart(ctx, cartSessionId)
	if err != nil {
		return
	}
	if len(items) == 0 {
		log.Printf("CreateOrder: cart is empty")
		err = models.ErrBadRequest
		return
	}
	if ors.refreshItems {
		items, _ = refreshLineItems(ctx, ors.pr, items, locale)
	}

	payload := OrderPayload(info, items)
	res, err := ors.or.CreateOrder(ctx, payload, uuid.NewString())
	if err != nil {
		log.Printf("CreateOrder: %v", err)
		return
	}
	keys := make([]entities.LineKey, 0, len(items))
	for _, it := range items {
		keys = append(keys, it.Key())
	}
	if e := ors.cr.RemoveLines(ctx, cartSessionId, keys); e != nil {
		log.Printf("CreateOrder: order %d placed but cart not cleared: %v", res.Id, e)
	}
	conf.OrderId = res.Id
	conf.Items = len(payload.Items)
	return
}

// OrderPayload builds the request body. Rows whose stock is known to be zero
// are sent with quantity 0.
func OrderPayload(info entities.CustomerInfo, items []entities.CartLineItem) models.OrderPayload {
	payload := models.OrderPayload{
		FullName: strings.TrimSpace(info.Name),
		Phone:    strings.TrimSpace(info.Phone),
		Address:  strings.TrimSpace(info.Address),
		Comment:  strings.TrimSpace(info.Comment),
		Items:    make([]models.OrderItemPayload, 0, len(items)),
	}
	for _, it := range items {
		qty := it.Quantity
		if it.Stock != nil && *it.Stock == 0 {
			qty = 0
		}
		payload.Items = append(payload.Items, models.OrderItemPayload{
			Product:  it.ProductId,
			Variant:  it.VariantId,
			Size:     it.SizeId,
			Quantity: qty,
		})
	}
	return payload
}

// UserMessage turns a checkout failure into the text shown to the customer:
// the first validation message when there is one, otherwise a generic line.
func UserMessage(err error, locale entities.Locale) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		if _, msg, ok := ve.FirstMessage(); ok {
			return msg
		}
	}
	if msg, ok := genericOrderFailure[locale]; ok {
		return msg
	}
	return genericOrderFailure[entities.LocaleRu]
}
