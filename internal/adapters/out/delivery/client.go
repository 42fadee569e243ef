package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"go.uber.org/ratelimit"
)

const (
	ordersPath         = "/external/orders"
	healthPath         = "/health"
	healthCheckTimeout = 5 * time.Second
	maxResponseBytes   = 1 << 20
)

// Config describes how the external order service is reached.
type Config struct {
	BaseURL string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// RetryTimes is the total number of HTTP attempts per delivery.
	RetryTimes int
	RetryDelay time.Duration
	// RateLimit caps outgoing requests per second; 0 disables limiting.
	RateLimit int
	// SourceName prefixes the id field sent along with each order, as in "<source>_order_id".
	SourceName string
}

// Client implements ports.DeliveryClient over HTTP.
//
// Transport errors and 5xx answers are retried up to RetryTimes attempts in
// total, RetryDelay apart. Other non-2xx answers are rejections and are not
// retried here; job-level retries belong to the scheduler.
type Client struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
	limiter    ratelimit.Limiter
	logger     *slog.Logger
}

var _ ports.DeliveryClient = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid external service url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryTimes < 1 {
		cfg.RetryTimes = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "orderflow"
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    limiter,
		logger:     logger.With("component", "delivery-client"),
	}, nil
}

// Deliver posts the order to the external service.
func (c *Client) Deliver(ctx context.Context, aggregate *order.Order) ports.DeliveryOutcome {
	payload, err := json.Marshal(map[string]any{
		"order_number":                 aggregate.OrderNumber(),
		"customer":                     aggregate.Customer(),
		"product":                      aggregate.Product(),
		"quantity":                     aggregate.Quantity(),
		c.cfg.SourceName + "_order_id": aggregate.ID().String(),
	})
	if err != nil {
		return ports.NewRejectedOutcome(fmt.Sprintf("encode order: %v", err), 0, "")
	}

	log := c.logger.With("order_id", aggregate.ID().String(), "order_number", aggregate.OrderNumber())
	log.InfoContext(ctx, "Sending order to external service", "url", c.baseURL+ordersPath)

	var outcome ports.DeliveryOutcome
	for attempt := 1; attempt <= c.cfg.RetryTimes; attempt++ {
		if attempt > 1 {
			if waitErr := sleep(ctx, c.cfg.RetryDelay); waitErr != nil {
				return ports.NewUnreachableOutcome(waitErr.Error())
			}
		}

		var retryable bool
		outcome, retryable = c.post(ctx, payload)
		if !retryable {
			break
		}
		log.WarnContext(ctx, "External service attempt failed",
			"http_attempt", attempt,
			"outcome", outcome.Kind.String(),
			"error", outcome.Err(),
		)
	}

	if outcome.Kind == ports.Delivered {
		log.InfoContext(ctx, "Order accepted by external service", "external_id", outcome.ExternalID)
	} else {
		log.ErrorContext(ctx, "Order not accepted by external service",
			"status_code", outcome.StatusCode,
			"error", outcome.Err(),
		)
	}
	return outcome
}

// post performs a single HTTP attempt and reports whether it may be retried.
func (c *Client) post(ctx context.Context, payload []byte) (ports.DeliveryOutcome, bool) {
	c.limiter.Take()

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return ports.NewRejectedOutcome(fmt.Sprintf("build request: %v", err), 0, ""), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.NewUnreachableOutcome(err.Error()), ctx.Err() == nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.NewUnreachableOutcome(fmt.Sprintf("read response: %v", err)), ctx.Err() == nil
	}
	raw := string(body)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return ports.NewRejectedOutcome(rejectionReason(resp.StatusCode, body), resp.StatusCode, raw), true
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return ports.NewRejectedOutcome(rejectionReason(resp.StatusCode, body), resp.StatusCode, raw), false
	}

	var decoded responseBody
	if len(bytes.TrimSpace(body)) > 0 {
		if err = json.Unmarshal(body, &decoded); err != nil {
			return ports.NewRejectedOutcome("response is not valid JSON", resp.StatusCode, raw), false
		}
	}
	if decoded.Success != nil && !*decoded.Success {
		return ports.NewRejectedOutcome(rejectionReason(resp.StatusCode, body), resp.StatusCode, raw), false
	}

	return ports.NewDeliveredOutcome(decoded.externalID(), raw), false
}

// HealthCheck reports whether GET {base}/health answers with 2xx within five seconds.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "External service health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	return resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
}

type responseBody struct {
	Success    *bool           `json:"success"`
	Message    string          `json:"message"`
	ID         json.RawMessage `json:"id"`
	ExternalID json.RawMessage `json:"external_id"`
}

// externalID accepts string and numeric ids.
func (r responseBody) externalID() string {
	for _, raw := range []json.RawMessage{r.ID, r.ExternalID} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	}
	return ""
}

func rejectionReason(statusCode int, body []byte) string {
	var decoded responseBody
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Message != "" {
		return decoded.Message
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return http.StatusText(statusCode)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Join(errors.New("delivery cancelled"), ctx.Err())
	case <-timer.C:
		return nil
	}
}
