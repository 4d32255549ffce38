package inspectionapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
	"github.com/zatekoja/foodinspector/internal/domain/providers"
	"github.com/zatekoja/foodinspector/pkg/config"
	apperrors "github.com/zatekoja/foodinspector/pkg/errors"
	"golang.org/x/time/rate"
)

// AppTokenHeader carries the open-data application token.
const AppTokenHeader = "X-App-Token"

// maxErrorBody bounds how much of a failed response body is kept for diagnostics.
const maxErrorBody = 512

var _ providers.InspectionSource = (*HTTPClient)(nil)

// HTTPClient calls the remote inspection API
type HTTPClient struct {
	appToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inspection api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("inspection api returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a client from configuration
func NewClient(cfg *config.InspectionAPIConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithHTTP(cfg, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a client on top of the given http.Client
func NewClientWithHTTP(cfg *config.InspectionAPIConfig, httpClient *http.Client) *HTTPClient {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &HTTPClient{
		appToken:   cfg.AppToken,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// GetInspections fetches and decodes the rows for one fully built query URL
func (c *HTTPClient) GetInspections(ctx context.Context, url string) ([]entities.InspectionRow, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewFetchFailedError("rate limiter wait aborted", err)
		}
	}

	var rows []entities.InspectionRow
	if err := c.doJSON(ctx, url, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []entities.InspectionRow{}
	}
	return rows, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, endpoint string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewFetchFailedError("invalid request url", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		httpReq.Header.Set(AppTokenHeader, c.appToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewFetchFailedError("inspection api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewFetchFailedError("inspection api request failed", &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewMalformedResponseError("could not decode inspection api response", err)
	}

	return nil
}

// IsRetryable reports whether a GetInspections error is worth another attempt.
// Throttling, server errors and transport failures are; malformed bodies,
// client errors and cancellation are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apperrors.IsType(err, apperrors.ErrorTypeMalformedResponse) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return apperrors.IsType(err, apperrors.ErrorTypeFetchFailed)
}
