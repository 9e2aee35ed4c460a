// Package remote implements the thin client for the authoritative cart API.
// It centralizes auth headers, bounded timeouts, and error-taxonomy mapping,
// so callers only ever see coded errors.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pharmakart/cartsync/pkg/config"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/types"
	"go.uber.org/multierr"
)

var (
	errBaseURLRequired = errors.New("remote base url is required")
	errLoggerRequired  = errors.New("remote logger is required")
)

// Client talks to the authoritative cart backend.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	timeout      time.Duration
	orderTimeout time.Duration
	logger       *logger.Logger
}

// NewClient validates the configuration and builds the remote client.
func NewClient(cfg config.RemoteConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	orderTimeout := cfg.OrderTimeout
	if orderTimeout <= 0 {
		orderTimeout = 15 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{},
		baseURL:      baseURL,
		timeout:      timeout,
		orderTimeout: orderTimeout,
		logger:       logg,
	}, nil
}

// FetchCart loads the remote cart for the authenticated identity.
func (c *Client) FetchCart(ctx context.Context, credential string) ([]types.LineItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp fetchCartResponse
	if err := c.do(ctx, http.MethodGet, "/cart", credential, nil, &resp); err != nil {
		return nil, err
	}
	return toLineItems(resp.Items), nil
}

// ReplaceCart overwrites the entire remote cart (full-replace semantics).
func (c *Client) ReplaceCart(ctx context.Context, credential string, items []types.LineItem) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := replaceCartRequest{Items: fromLineItems(items)}
	return c.do(ctx, http.MethodPost, "/cart", credential, body, nil)
}

// ClearCart deletes the remote cart for the authenticated identity.
func (c *Client) ClearCart(ctx context.Context, credential string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.do(ctx, http.MethodDelete, "/cart", credential, nil, nil)
}

// PlaceOrder submits the cart snapshot plus shipping data to the order
// endpoint. It uses its own, longer bounded timeout.
func (c *Client) PlaceOrder(ctx context.Context, credential string, items []types.LineItem, shipping types.ShippingInfo) (*OrderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	defer cancel()

	body := placeOrderRequest{Cart: fromLineItems(items), ShippingInfo: shipping}
	var record OrderRecord
	if err := c.do(ctx, http.MethodPost, "/orders", credential, body, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) do(ctx context.Context, method, path, credential string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRemoteFailure, err, "cart service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeRemoteFailure, err, "decode response body")
		}
		return nil
	}

	return c.mapError(method, path, resp)
}

func (c *Client) mapError(method, path string, resp *http.Response) error {
	var payload errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &payload)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s not found", method, path))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return invalidOrderError(payload)
	default:
		message := payload.Message
		if message == "" {
			message = fmt.Sprintf("%s %s failed with status %d", method, path, resp.StatusCode)
		}
		return pkgerrors.New(pkgerrors.CodeRemoteFailure, message)
	}
}

// invalidOrderError aggregates per-item stock issues reported by the backend
// into one human-readable error.
func invalidOrderError(payload errorResponse) error {
	message := payload.Message
	if message == "" {
		message = "invalid order data"
	}

	var issues error
	details := make([]string, 0, len(payload.Items))
	for _, issue := range payload.Items {
		label := issue.Name
		if label == "" {
			label = issue.ProductID
		}
		text := issue.Message
		if text == "" && issue.Available != nil {
			text = fmt.Sprintf("only %d left in stock", *issue.Available)
		}
		if text == "" {
			text = "unavailable"
		}
		line := fmt.Sprintf("%s: %s", label, text)
		details = append(details, line)
		issues = multierr.Append(issues, errors.New(line))
	}

	err := pkgerrors.Wrap(pkgerrors.CodeInvalidOrder, issues, message)
	if len(details) > 0 {
		err = err.WithDetails(details)
	}
	return err
}
