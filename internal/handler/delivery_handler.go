package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
	"github.com/kursadbilgin/webhook-relay/internal/service"
)

type DeliveryService interface {
	Ingest(ctx context.Context, subscriptionID string, payload []byte) (*domain.Delivery, error)
	GetStatus(ctx context.Context, id string) (*service.DeliveryView, error)
	ListBySubscription(ctx context.Context, subscriptionID string, status *domain.Status, limit int) ([]domain.Delivery, error)
}

type DeliveryHandler struct {
	service DeliveryService
}

func NewDeliveryHandler(service DeliveryService) (*DeliveryHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	return &DeliveryHandler{service: service}, nil
}

func RegisterDeliveryRoutes(router fiber.Router, service DeliveryService) error {
	h, err := NewDeliveryHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/ingest/:subscriptionId", h.Ingest)
	v1.Get("/deliveries/:id", h.GetDelivery)
	v1.Get("/subscriptions/:subscriptionId/deliveries", h.ListDeliveries)

	return nil
}

type ingestResponse struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
}

type deliveryResponse struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscriptionId"`
	Status         string     `json:"status"`
	AttemptCount   int        `json:"attemptCount"`
	LastAttemptAt  *time.Time `json:"lastAttemptAt,omitempty"`
	NextRetryAt    *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type deliveryDetailResponse struct {
	deliveryResponse
	Payload  json.RawMessage   `json:"payload"`
	Attempts []attemptResponse `json:"attempts"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	AttemptNumber int       `json:"attemptNumber"`
	StatusCode    *int      `json:"statusCode,omitempty"`
	ResponseBody  *string   `json:"responseBody,omitempty"`
	ErrorMessage  *string   `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type listDeliveriesResponse struct {
	Data []deliveryResponse `json:"data"`
}

// Ingest accepts the raw request body as the event payload and responds 202
// once the delivery row is durable and enqueued.
func (h *DeliveryHandler) Ingest(c *fiber.Ctx) error {
	subscriptionID := strings.TrimSpace(c.Params("subscriptionId"))

	delivery, err := h.service.Ingest(c.Context(), subscriptionID, c.Body())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(ingestResponse{
		DeliveryID: delivery.ID,
		Status:     delivery.Status.String(),
	})
}

func (h *DeliveryHandler) GetDelivery(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	view, err := h.service.GetStatus(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	attempts := make([]attemptResponse, 0, len(view.Attempts))
	for _, attempt := range view.Attempts {
		attempts = append(attempts, attemptResponse{
			ID:            attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			StatusCode:    attempt.StatusCode,
			ResponseBody:  attempt.ResponseBody,
			ErrorMessage:  attempt.ErrorMessage,
			CreatedAt:     attempt.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(deliveryDetailResponse{
		deliveryResponse: toDeliveryResponse(&view.Delivery),
		Payload:          json.RawMessage(view.Delivery.Payload),
		Attempts:         attempts,
	})
}

func (h *DeliveryHandler) ListDeliveries(c *fiber.Ctx) error {
	subscriptionID := strings.TrimSpace(c.Params("subscriptionId"))
	limit := c.QueryInt("limit", 0)

	var status *domain.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := domain.ParseStatusFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		status = &parsed
	}

	deliveries, err := h.service.ListBySubscription(c.Context(), subscriptionID, status, limit)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]deliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		data = append(data, toDeliveryResponse(&deliveries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listDeliveriesResponse{Data: data})
}

func toDeliveryResponse(d *domain.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		Status:         d.Status.String(),
		AttemptCount:   d.AttemptCount,
		LastAttemptAt:  d.LastAttemptAt,
		NextRetryAt:    d.NextRetryAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
