package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/webhook-relay/internal/domain"
)

type SubscriptionService interface {
	Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	List(ctx context.Context) ([]domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

type SubscriptionHandler struct {
	service SubscriptionService
}

func NewSubscriptionHandler(service SubscriptionService) (*SubscriptionHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("subscription service is required")
	}
	return &SubscriptionHandler{service: service}, nil
}

func RegisterSubscriptionRoutes(router fiber.Router, service SubscriptionService) error {
	h, err := NewSubscriptionHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/subscriptions", h.CreateSubscription)
	v1.Get("/subscriptions", h.ListSubscriptions)
	v1.Get("/subscriptions/:id", h.GetSubscription)
	v1.Put("/subscriptions/:id", h.UpdateSubscription)
	v1.Delete("/subscriptions/:id", h.DeleteSubscription)

	return nil
}

type subscriptionRequest struct {
	Name      string  `json:"name"`
	TargetURL string  `json:"targetUrl"`
	SecretKey *string `json:"secretKey,omitempty"`
}

type subscriptionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TargetURL string    `json:"targetUrl"`
	HasSecret bool      `json:"hasSecret"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listSubscriptionsResponse struct {
	Data []subscriptionResponse `json:"data"`
}

func (h *SubscriptionHandler) CreateSubscription(c *fiber.Ctx) error {
	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	created, err := h.service.Create(c.Context(), &domain.Subscription{
		Name:      req.Name,
		TargetURL: req.TargetURL,
		SecretKey: req.SecretKey,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSubscriptionResponse(created))
}

func (h *SubscriptionHandler) GetSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	sub, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSubscriptionResponse(sub))
}

func (h *SubscriptionHandler) ListSubscriptions(c *fiber.Ctx) error {
	subs, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]subscriptionResponse, 0, len(subs))
	for i := range subs {
		data = append(data, toSubscriptionResponse(&subs[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listSubscriptionsResponse{Data: data})
}

func (h *SubscriptionHandler) UpdateSubscription(c *fiber.Ctx) error {
	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(c.Context(), &domain.Subscription{
		ID:        strings.TrimSpace(c.Params("id")),
		Name:      req.Name,
		TargetURL: req.TargetURL,
		SecretKey: req.SecretKey,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSubscriptionResponse(updated))
}

func (h *SubscriptionHandler) DeleteSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	if err := h.service.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// The secret never leaves the service; responses only flag its presence.
func toSubscriptionResponse(s *domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        s.ID,
		Name:      s.Name,
		TargetURL: s.TargetURL,
		HasSecret: s.SecretKey != nil && strings.TrimSpace(*s.SecretKey) != "",
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
