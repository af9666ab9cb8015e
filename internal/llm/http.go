package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/acordao-extractor/internal/common"
)

// maxErrorBody caps how much of a non-2xx body is kept in the error.
const maxErrorBody = 2 << 10

// StatusError is a non-2xx provider answer. It unwraps to common.ErrTransport.
type StatusError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("status %d", e.Status)
	if e.Quota() {
		msg += " (quota)"
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" retry after %s", e.RetryAfter)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return common.ErrTransport }

// Quota reports a rate or quota rejection.
func (e *StatusError) Quota() bool { return e.Status == http.StatusTooManyRequests }

// SendJSON posts body as JSON and returns the raw response body. Headers
// override the default content type. Every failure wraps common.ErrTransport.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	reqID := common.RequestIDFromContext(ctx)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, errors.Join(common.ErrTransport, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("llm.http.close_error", "req_id", reqID, "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(common.ErrTransport, fmt.Errorf("read body: %w", err))
	}
	logger.Info("llm.http.response",
		"req_id", reqID,
		"run_id", common.RunIDFromContext(ctx),
		"document", common.DocumentIDFromContext(ctx),
		"status", resp.StatusCode,
		"sent", len(payload),
		"received", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{
			Status:     resp.StatusCode,
			Body:       truncate(string(raw), maxErrorBody),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
		if serr.Quota() {
			logger.Warn("llm.http.quota", "req_id", reqID, "retry_after", serr.RetryAfter)
		}
		return nil, serr
	}
	return raw, nil
}

// retryAfter reads the delay-seconds form of Retry-After; dates are ignored.
func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
