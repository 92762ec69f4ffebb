package webhook

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dwarvesf/chain-scanner/internal/utils/logger"
)

// Client pings an uptime monitor after successful scan cycles.
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

// New creates a new webhook client with timeout
func New(logger *logger.Logger) *Client {
	return &Client{
		http:   resty.New().SetTimeout(10 * time.Second),
		logger: logger,
	}
}

// Heartbeat issues a GET to webhookURL tagged with the chain that finished a
// cycle. Failures are logged and never returned.
func (c *Client) Heartbeat(ctx context.Context, webhookURL, chain string) {
	if webhookURL == "" {
		return
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("chain", chain).
		Get(webhookURL)
	if err != nil {
		c.logger.Error("[Heartbeat] failed to call uptime webhook", map[string]string{
			"url":   webhookURL,
			"chain": chain,
			"error": err.Error(),
		})
		return
	}

	c.logger.Debug("[Heartbeat] uptime webhook called", map[string]string{
		"url":         webhookURL,
		"chain":       chain,
		"status_code": resp.Status(),
	})
}
