package monitoring

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dwarvesf/chain-scanner/internal/explorer"
	"github.com/dwarvesf/chain-scanner/internal/utils/config"
)

// CircuitBreakerConfig defines the configuration for circuit breakers
type CircuitBreakerConfig struct {
	MaxRequests                 uint32        `json:"max_requests"`
	Interval                    time.Duration `json:"interval"`
	Timeout                     time.Duration `json:"timeout"`
	ConsecutiveFailureThreshold int           `json:"consecutive_failure_threshold"`
}

func NewCircuitBreakerConfig(cfg config.MonitoringConfig) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:                 cfg.CircuitBreakerMaxRequests,
		Interval:                    cfg.CircuitBreakerInterval,
		Timeout:                     cfg.CircuitBreakerTimeout,
		ConsecutiveFailureThreshold: cfg.CircuitBreakerFailureThreshold,
	}
}

func (c CircuitBreakerConfig) Validate() error {
	if c.MaxRequests == 0 {
		return errors.New("max_requests must be greater than 0")
	}
	if c.ConsecutiveFailureThreshold <= 0 {
		return errors.New("consecutive_failure_threshold must be greater than 0")
	}
	if c.Timeout < 0 || c.Interval < 0 {
		return errors.New("timeout and interval must be non-negative")
	}
	return nil
}

// APIErrorType represents different types of API errors for classification
type APIErrorType string

const (
	ErrorTypeTimeout         APIErrorType = "timeout"
	ErrorTypeNetworkError    APIErrorType = "network_error"
	ErrorTypeServerError     APIErrorType = "server_error"
	ErrorTypeClientError     APIErrorType = "client_error"
	ErrorTypeInvalidResponse APIErrorType = "invalid_response"
	ErrorTypeUnknown         APIErrorType = "unknown"
)

func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if errors.Is(err, explorer.ErrInvalidResponse) {
		return ErrorTypeInvalidResponse
	}
	var apiErr *explorer.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 0:
			return ErrorTypeNetworkError
		case apiErr.StatusCode >= 500:
			return ErrorTypeServerError
		default:
			return ErrorTypeClientError
		}
	}
	return ErrorTypeUnknown
}
