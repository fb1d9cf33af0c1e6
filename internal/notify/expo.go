// Package notify delivers mission push notifications through the Expo push API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fieldops/missiond/internal/models"
)

const (
	// DefaultPushURL is the public Expo push endpoint.
	DefaultPushURL = "https://exp.host/--/api/v2/push/send"
	// ChunkSize is the maximum number of messages Expo accepts per request.
	ChunkSize = 100

	ticketOK = "ok"
)

// Message is one Expo push message.
type Message struct {
	To        string            `json:"to"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Sound     string            `json:"sound,omitempty"`
	Priority  string            `json:"priority,omitempty"`
	ChannelID string            `json:"channelId,omitempty"`
	Vibrate   []int             `json:"vibrate,omitempty"`
}

// Ticket is Expo's per-message delivery receipt.
type Ticket struct {
	Status  string         `json:"status"`
	ID      string         `json:"id,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type pushResponse struct {
	Data   []Ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// TokenStore drops tokens Expo refused to deliver to.
type TokenStore interface {
	RemovePushTokens(ctx context.Context, userID string, tokens []string) error
}

// Config configures an ExpoNotifier.
type Config struct {
	// URL is the push endpoint; DefaultPushURL when empty.
	URL string
	// AccessToken is sent as a bearer token when set.
	AccessToken string
	// Timeout bounds each HTTP request; 10s when zero.
	Timeout time.Duration
}

// ExpoNotifier sends the "new mission" message to every Expo token of a user.
type ExpoNotifier struct {
	url         string
	accessToken string
	client      *http.Client
	tokens      TokenStore
	log         *zap.Logger
}

// NewExpoNotifier returns a notifier posting to cfg.URL. tokens may be nil,
// in which case refused tokens are only logged.
func NewExpoNotifier(cfg Config, tokens TokenStore, log *zap.Logger) *ExpoNotifier {
	if cfg.URL == "" {
		cfg.URL = DefaultPushURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ExpoNotifier{
		url:         cfg.URL,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: cfg.Timeout},
		tokens:      tokens,
		log:         log,
	}
}

// NotifyMissionAssigned pushes m to user's devices and prunes the tokens
// Expo rejects. A user without valid tokens is skipped silently.
func (n *ExpoNotifier) NotifyMissionAssigned(ctx context.Context, user *models.User, m *models.Mission) error {
	var tokens []string
	for _, t := range user.PushTokens {
		if models.IsExpoPushToken(t) {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		n.log.Debug("no expo push tokens", zap.String("username", user.Username))
		return nil
	}

	msgs, err := MissionMessages(m, tokens)
	if err != nil {
		return err
	}
	tickets, err := n.Send(ctx, msgs)
	if err != nil {
		return err
	}

	var failed []string
	for i, t := range tickets {
		if t.Status != ticketOK {
			failed = append(failed, tokens[i])
			n.log.Warn("expo rejected push token",
				zap.String("username", user.Username),
				zap.String("token", tokens[i]),
				zap.String("reason", t.Message),
			)
		}
	}
	n.log.Info("expo push sent",
		zap.String("username", user.Username),
		zap.String("missionId", m.MissionID),
		zap.Int("success", len(tickets)-len(failed)),
		zap.Int("failure", len(failed)),
	)

	if len(failed) > 0 && n.tokens != nil {
		if err := n.tokens.RemovePushTokens(ctx, user.ID, failed); err != nil {
			n.log.Error("failed to remove rejected push tokens",
				zap.String("username", user.Username),
				zap.Error(err),
			)
		} else {
			n.log.Info("removed rejected push tokens",
				zap.String("username", user.Username),
				zap.Int("count", len(failed)),
			)
		}
	}
	return nil
}

// MissionMessages builds one "New Mission" message per token.
func MissionMessages(m *models.Mission, tokens []string) ([]Message, error) {
	payload, err := json.Marshal(struct {
		ID string `json:"id"`
		models.Payload
	}{ID: m.MissionID, Payload: m.Payload})
	if err != nil {
		return nil, fmt.Errorf("encode mission payload: %w", err)
	}

	machine := m.Payload.MachineName
	if machine == "" {
		machine = "Unknown"
	}
	cashier := m.Payload.Cashier
	if cashier == "" {
		cashier = "Unknown cashier"
	}

	msgs := make([]Message, 0, len(tokens))
	for _, t := range tokens {
		msgs = append(msgs, Message{
			To:        t,
			Title:     "New Mission",
			Body:      fmt.Sprintf("Machine: %s - %s", machine, cashier),
			Data:      map[string]string{"id": m.MissionID, "payload": string(payload)},
			Sound:     "default",
			Priority:  "high",
			ChannelID: "missions",
			Vibrate:   []int{0, 250, 250, 250},
		})
	}
	return msgs, nil
}

// Send posts msgs in chunks of ChunkSize, concurrently, and returns the
// tickets in message order.
func (n *ExpoNotifier) Send(ctx context.Context, msgs []Message) ([]Ticket, error) {
	tickets := make([]Ticket, len(msgs))
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(msgs); start += ChunkSize {
		end := min(start+ChunkSize, len(msgs))
		g.Go(func() error {
			got, err := n.post(gctx, msgs[start:end])
			if err != nil {
				return err
			}
			copy(tickets[start:end], got)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (n *ExpoNotifier) post(ctx context.Context, chunk []Message) ([]Ticket, error) {
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encode push messages: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if n.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.accessToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("expo push: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read expo response: %w", err)
	}
	var out pushResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && len(out.Errors) > 0 {
			return nil, fmt.Errorf("expo push: status %d: %s: %s", resp.StatusCode, out.Errors[0].Code, out.Errors[0].Message)
		}
		return nil, fmt.Errorf("expo push: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode expo response: %w", decodeErr)
	}
	if len(out.Data) != len(chunk) {
		return nil, errors.New("expo push: ticket count does not match message count")
	}
	return out.Data, nil
}
