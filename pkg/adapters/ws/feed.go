// Package ws provides the websocket client for per-workflow change feeds.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/pkg/domain"
	"github.com/loomengine/loom/pkg/ports"
)

const (
	feedBuffer  = 16
	dialTimeout = 10 * time.Second
)

// Feed implements ports.ChangeFeed by dialing the service's
// /workflows/{id}/events websocket endpoint. Each Subscribe call opens
// its own connection; the server's pings keep it alive and gorilla's
// default ping handler answers them.
type Feed struct {
	baseURL string
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

var _ ports.ChangeFeed = (*Feed)(nil)

// Option configures the Feed.
type Option func(*Feed)

// WithLogger configures the feed logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Feed) {
		f.logger = logger
	}
}

// NewFeed creates a feed client for the service at baseURL. baseURL uses
// the http/https scheme of the REST API; it is rewritten to ws/wss.
func NewFeed(baseURL string, opts ...Option) *Feed {
	f := &Feed{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  &websocket.Dialer{HandshakeTimeout: dialTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) endpoint(workflowID string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid feed base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported feed scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/workflows/" + workflowID + "/events"
	return u.String(), nil
}

// Subscribe implements ports.ChangeFeed.
func (f *Feed) Subscribe(ctx context.Context, workflowID string) (<-chan domain.ChangeEvent, ports.UnsubscribeFunc, error) {
	target, err := f.endpoint(workflowID)
	if err != nil {
		return nil, nil, err
	}

	conn, _, err := f.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", workflowID, err)
	}

	events := make(chan domain.ChangeEvent, feedBuffer)
	done := make(chan struct{})

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer unsubscribe()
		for {
			var event domain.ChangeEvent
			if err := conn.ReadJSON(&event); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
					f.logger.Warn("feed connection lost", "workflow_id", workflowID, "err", err)
				}
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, unsubscribe, nil
}
