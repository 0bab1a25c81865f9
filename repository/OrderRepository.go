package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"bagStore/models"
)

type OrderRepository interface {
	// CreateOrder posts the order. A 400 answer comes back as *models.ValidationError.
	CreateOrder(ctx context.Context, order models.OrderPayload, idempotencyKey string) (models.OrderResult, error)
}

type OrderRepo struct {
	api *ApiClient
}

func NewOrderRepository(api *ApiClient) (OrderRepository, error) {
	if api == nil {
		return nil, errors.New("api client must be non-nil")
	}
	return &OrderRepo{
		api: api,
	}, nil
}

func (o *OrderRepo) CreateOrder(ctx context.Context, order models.OrderPayload, idempotencyKey string) (res models.OrderResult, err error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	status, body, err := o.api.postJSON(ctx, "orders/", order, headers)
	if err != nil {
		return
	}
	switch {
	case status >= 200 && status <= 299:
		if len(body) > 0 {
			if e := json.Unmarshal(body, &res); e != nil {
				log.Printf("CreateOrder: decode: %v", e)
			}
		}
		return res, nil
	case status == http.StatusBadRequest:
		ve := models.ParseValidationError(body)
		log.Printf("CreateOrder: rejected: %v", ve)
		return res, ve
	default:
		log.Printf("CreateOrder: status=%d body=%s", status, string(body))
		return res, fmt.Errorf("%w: status %d", models.ErrUpstream, status)
	}
}
