package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/muesli/termenv"

	"github.com/loomengine/loom/pkg/adapters/ws"
	"github.com/loomengine/loom/pkg/domain"
)

// watchBackoff is the pause before re-dialing a lost feed.
const watchBackoff = 2 * time.Second

var eventColors = map[domain.ChangeType]string{
	domain.ChangeNodeCreated:       "#22c55e",
	domain.ChangeNodeUpdated:       "#fbbf24",
	domain.ChangeNodeDeleted:       "#ef4444",
	domain.ChangeConnectionCreated: "#38bdf8",
	domain.ChangeConnectionDeleted: "#f472b6",
}

// WatchOptions configures RunWatch.
type WatchOptions struct {
	BaseURL    string
	WorkflowID string
	Verbose    bool
}

// RunWatch tails a workflow's change feed, printing each event, and
// re-dials on connection loss until the context is cancelled.
func RunWatch(ctx context.Context, opts WatchOptions) error {
	logger := NewLogger(opts.Verbose)
	feed := ws.NewFeed(opts.BaseURL, ws.WithLogger(logger))

	PrintSystemMessage("Watching workflow '%s' on %s", opts.WorkflowID, opts.BaseURL)

	for {
		events, unsubscribe, err := feed.Subscribe(ctx, opts.WorkflowID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to open feed: %w", err)
		}

		for event := range events {
			printEvent(event)
		}
		unsubscribe()

		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("feed closed, reconnecting", "workflow_id", opts.WorkflowID)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchBackoff):
		}
	}
}

func printEvent(event domain.ChangeEvent) {
	p := termenv.ColorProfile()
	label := termenv.String(string(event.Type))
	if color, ok := eventColors[event.Type]; ok {
		label = label.Foreground(p.Color(color))
	}
	fmt.Printf("%s  %-20s  node=%s\n",
		event.Timestamp.Format(time.TimeOnly), label, event.NodeID)
}
