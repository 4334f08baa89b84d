package oms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/orderlab/oms/internal/consumer/service/models/auditlog"
)

// Client forwards audit log batches to the order service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// logOrderRequest is the request body for the audit endpoint.
type logOrderRequest struct {
	Orders []auditlog.AuditLogOrder `json:"orders"`
}

// MustNewClient creates a new order service client.
func MustNewClient() *Client {
	baseURL := viper.GetString("oms.base_url")
	if baseURL == "" {
		panic("oms.base_url is not set in config")
	}

	timeout := viper.GetInt("oms.timeout_seconds")
	if timeout == 0 {
		timeout = 30
	}

	slog.Info("Order service client configured", "base_url", baseURL)

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// SaveAuditLogs sends audit logs to the order service audit endpoint.
// Any non-2xx response is an error.
func (c *Client) SaveAuditLogs(ctx context.Context, auditLogs []auditlog.AuditLogOrder) error {
	ctx, span := otel.Tracer("oms-client").Start(ctx, "Client.SaveAuditLogs")
	defer span.End()

	body, err := json.Marshal(logOrderRequest{Orders: auditLogs})
	if err != nil {
		return fmt.Errorf("failed to marshal audit logs: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/audit/log-order",
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send audit logs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("audit endpoint returned %d: %s", resp.StatusCode, respBody)
	}

	slog.Info("Audit logs saved", "count", len(auditLogs))

	return nil
}
