// Package billing registers tenant owners as MercadoPago customers.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tenant-booking-api/internal/resilience"
)

const DefaultBaseURL = "https://api.mercadopago.com"

var ErrNoCustomerID = errors.New("billing: response carried no customer id")

type customerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type customerResponse struct {
	ID       string `json:"id"`
	Response *struct {
		ID string `json:"id"`
	} `json:"response,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

type Client struct {
	http    *resty.Client
	breaker *resilience.Breaker
	log     *zap.Logger
}

func New(baseURL, accessToken string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:    c,
		breaker: resilience.NewBreaker(5, time.Minute),
		log:     log,
	}
}

// CreateCustomer creates a customer for email and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	var id string
	err := c.breaker.Do(func() error {
		var out customerResponse
		var apiErr apiError
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(customerRequest{Email: email, FirstName: name}).
			SetResult(&out).
			SetError(&apiErr).
			Post("/v1/customers")
		if err != nil {
			return fmt.Errorf("billing: create customer: %w", err)
		}
		if resp.IsError() {
			msg := apiErr.Message
			if msg == "" {
				msg = resp.Status()
			}
			return fmt.Errorf("billing: create customer: %s (status %d)", msg, resp.StatusCode())
		}
		id = out.ID
		if id == "" && out.Response != nil {
			id = out.Response.ID
		}
		if id == "" {
			return ErrNoCustomerID
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	c.log.Info("billing customer created", zap.String("customer_id", id))
	return id, nil
}
