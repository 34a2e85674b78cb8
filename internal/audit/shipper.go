// Package audit records security-relevant portal actions: logins and logouts,
// certificate issuance and revocation, request approvals and rejections.
// Audit events are intentionally separate from application logs because they
// have different consumers and retention requirements: application logs are
// ephemeral debug output consumed by on-call engineers, while audit events are
// records consumed by security and compliance reviewers. Every event is
// written to the structured log; when a webhook is configured, events are also
// shipped there in batches so they can land in a SIEM independently of the
// logging pipeline.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/certifypro/certportal/internal/safego"
)

// Event is one recorded portal action.
type Event struct {
	Timestamp    time.Time      `json:"timestamp"`
	Action       string         `json:"action"`
	Actor        string         `json:"actor,omitempty"`
	ActorRole    string         `json:"actorRole,omitempty"`
	ResourceType string         `json:"resourceType,omitempty"`
	ResourceID   string         `json:"resourceId,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	Success      bool           `json:"success"`
	Detail       map[string]any `json:"detail,omitempty"`
}

// Actions recorded by the portal.
const (
	ActionLogin          = "auth.login"
	ActionRegister       = "auth.register"
	ActionLogout         = "auth.logout"
	ActionIssue          = "certificate.issue"
	ActionRevoke         = "certificate.revoke"
	ActionRequestSubmit  = "request.submit"
	ActionRequestApprove = "request.approve"
	ActionRequestReject  = "request.reject"
)

// Shipper delivers events to an external destination.
type Shipper interface {
	Ship(ctx context.Context, event *Event) error
	Close() error
}

// Recorder is the entry point handlers use. It always writes the event to the
// structured log; a configured shipper additionally forwards it. A nil
// Recorder is valid and records nothing, so call sites need no enabled checks.
type Recorder struct {
	shipper Shipper
}

// NewRecorder builds a Recorder. shipper may be nil.
func NewRecorder(shipper Shipper) *Recorder {
	return &Recorder{shipper: shipper}
}

// Record stamps and emits the event. Shipping failures are logged, never
// propagated: an unreachable SIEM must not fail the user's action.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	slog.Info("audit",
		"action", event.Action,
		"actor", event.Actor,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"request_id", event.RequestID,
		"success", event.Success,
	)

	if r.shipper != nil {
		if err := r.shipper.Ship(ctx, &event); err != nil {
			slog.Error("audit shipper failed", "action", event.Action, "error", err)
		}
	}
}

// Close flushes and closes the underlying shipper.
func (r *Recorder) Close() error {
	if r == nil || r.shipper == nil {
		return nil
	}
	return r.shipper.Close()
}

// WebhookConfig holds webhook shipper configuration.
type WebhookConfig struct {
	// URL is the webhook endpoint
	URL string
	// Headers are additional HTTP headers to send
	Headers map[string]string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// BatchSize is how many events to batch before sending (0 = no batching)
	BatchSize int
	// FlushInterval is how often to flush batched events
	FlushInterval time.Duration
}

// WebhookShipper posts events to an HTTP endpoint, batched when configured.
type WebhookShipper struct {
	cfg       WebhookConfig
	client    *http.Client
	batchCh   chan *Event
	batch     []*Event
	batchMu   sync.Mutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper creates a webhook shipper.
func NewWebhookShipper(cfg WebhookConfig) (*WebhookShipper, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	ws := &WebhookShipper{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		batchCh: make(chan *Event, 1000),
		closeCh: make(chan struct{}),
	}

	if cfg.BatchSize > 0 {
		safego.Go(ws.processBatches)
	}

	return ws, nil
}

func (ws *WebhookShipper) processBatches() {
	flushInterval := ws.cfg.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-ws.batchCh:
			ws.batchMu.Lock()
			ws.batch = append(ws.batch, event)
			if len(ws.batch) >= ws.cfg.BatchSize {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ticker.C:
			ws.batchMu.Lock()
			if len(ws.batch) > 0 {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
		case <-ws.closeCh:
			// Flush remaining
			ws.batchMu.Lock()
			if len(ws.batch) > 0 {
				ws.flushBatch()
			}
			ws.batchMu.Unlock()
			return
		}
	}
}

// flushBatch sends the current batch. Caller holds batchMu.
func (ws *WebhookShipper) flushBatch() {
	data, err := json.Marshal(ws.batch)
	if err != nil {
		slog.Error("failed to marshal audit batch", "error", err)
		ws.batch = ws.batch[:0]
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.cfg.Timeout)
	defer cancel()

	if err := ws.sendRequest(ctx, data); err != nil {
		slog.Error("failed to send audit batch", "size", len(ws.batch), "error", err)
	}

	ws.batch = ws.batch[:0]
}

// Ship queues the event when batching, otherwise posts it directly.
func (ws *WebhookShipper) Ship(ctx context.Context, event *Event) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.batchCh <- event:
			return nil
		default:
			// Channel full, send directly
		}
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	return ws.sendRequest(ctx, data)
}

func (ws *WebhookShipper) sendRequest(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close flushes any batched events and stops the batch loop.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.closeCh)
	})
	return nil
}
