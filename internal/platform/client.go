// Package platform предоставляет клиент для API торговой платформы.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/orderload-system/internal/model"
)

const (
	apiVersion     = "2022-01"
	requestTimeout = 30 * time.Second
)

// Client инкапсулирует HTTP-взаимодействие с admin API платформы.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// APIError описывает отказ платформы: код ответа и тело ошибки, если оно есть.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("platform responded %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("platform responded %d", e.StatusCode)
}

type orderRequest struct {
	Order *model.OrderPayload `json:"order"`
}

type orderResponse struct {
	Order struct {
		ID          string `json:"id"`
		OrderNumber int64  `json:"order_number"`
	} `json:"order"`
}

// NewClient создаёт клиент для магазина storeDomain с указанным токеном доступа.
// Схема и завершающие слэши в домене игнорируются.
func NewClient(storeDomain, accessToken string) *Client {
	domain := strings.TrimSpace(storeDomain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimRight(domain, "/")

	return &Client{
		baseURL:     fmt.Sprintf("https://%s/admin/openapi/%s", domain, apiVersion),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// CreateOrder отправляет заказ на платформу и возвращает идентификаторы
// созданного заказа. Клиент не выполняет повторных попыток: политика повторов
// принадлежит вызывающему.
func (c *Client) CreateOrder(ctx context.Context, order *model.OrderPayload) (*OrderResult, error) {
	body, err := json.Marshal(orderRequest{Order: order})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	url := c.baseURL + "/orders.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var result orderResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &OrderResult{
		ID:     result.Order.ID,
		Number: result.Order.OrderNumber,
	}, nil
}

// OrderResult содержит идентификаторы заказа, созданного на платформе.
type OrderResult struct {
	ID     string
	Number int64
}
