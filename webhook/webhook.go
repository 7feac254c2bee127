package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/tendercrawl/models"
	"github.com/use-agent/tendercrawl/retry"
)

// Event types.
const (
	EventCompleted = "crawl.completed"
	EventFailed    = "crawl.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Tender-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Summary is the Data of crawl events.
type Summary struct {
	Pages            int                 `json:"pages"`
	Records          int                 `json:"records"`
	DetailsProcessed int                 `json:"details_processed"`
	DetailsEnriched  int                 `json:"details_enriched"`
	OutputPath       string              `json:"output_path,omitempty"`
	Error            *models.ErrorDetail `json:"error,omitempty"`
}

// NewRunID returns a fresh identifier for one crawl run.
func NewRunID() string {
	return uuid.NewString()
}

// NewEvent builds a crawl.completed event, or crawl.failed when
// summary carries an error.
func NewEvent(runID string, summary Summary) *Event {
	typ := EventCompleted
	if summary.Error != nil {
		typ = EventFailed
	}
	return &Event{Type: typ, RunID: runID, Timestamp: time.Now().Unix(), Data: summary}
}

// Deliver sends a webhook event synchronously.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
// Header: X-Tender-Signature: sha256=<hex>
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TenderCrawl-Webhook/1.0")

	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// DefaultDelays are the waits before each delivery attempt.
var DefaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second}

// DeliverWithRetry sends event, waiting delays[i] before attempt i+1. It
// blocks so the process does not exit before delivery; the caller bounds
// it with ctx.
func DeliverWithRetry(ctx context.Context, url, secret string, event *Event, delays []time.Duration, logger *slog.Logger) error {
	var lastErr error
	for attempt, delay := range delays {
		if _, err := retry.Sleep(ctx, delay); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		lastErr = Deliver(attemptCtx, url, secret, event)
		cancel()
		if lastErr == nil {
			logger.Info("webhook delivered",
				"url", url,
				"event", event.Type,
				"run_id", event.RunID,
				"attempt", attempt+1,
			)
			return nil
		}
		logger.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"run_id", event.RunID,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}
	logger.Error("webhook delivery exhausted all retries",
		"url", url,
		"event", event.Type,
		"run_id", event.RunID,
	)
	return lastErr
}
