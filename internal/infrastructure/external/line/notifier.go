// Package line implements the chat notifier against the LINE Messaging API
// push endpoint.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kaiwen/taskline/internal/application/port"
)

// Config holds LINE client configuration
type Config struct {
	ChannelToken string
	APIBaseURL   string
	APITimeout   time.Duration

	// Push messages per second and burst allowed against the platform API.
	RateLimit float64
	RateBurst int
}

// Notifier pushes text messages to LINE groups and users. Deliveries are
// rate-limited client-side; failures are returned to the caller, which treats
// them as retriable and non-fatal.
type Notifier struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewNotifier creates a LINE push client
func NewNotifier(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.line.me"
	}
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}

	return &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.APITimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger,
	}
}

// SendToGroup pushes a text message to a group chat
func (n *Notifier) SendToGroup(ctx context.Context, groupID string, payload string) error {
	return n.push(ctx, groupID, payload)
}

// SendToUser pushes a text message to a one-on-one chat
func (n *Notifier) SendToUser(ctx context.Context, userID string, payload string) error {
	return n.push(ctx, userID, payload)
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

type pushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) push(ctx context.Context, to, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(pushRequest{
		To:       to,
		Messages: []pushMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.cfg.APIBaseURL+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.cfg.ChannelToken)

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("LINE push failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("push message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The error body is short JSON; cap the read regardless.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		n.logger.Warn("LINE push rejected",
			zap.String("to", to),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", detail))
		return fmt.Errorf("push message: status %d", resp.StatusCode)
	}

	return nil
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
