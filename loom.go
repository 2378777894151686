package loom

import (
	"context"

	"github.com/loomengine/loom/internal/server"
	"github.com/loomengine/loom/pkg/adapters/memory"
	"github.com/loomengine/loom/pkg/adapters/rest"
	"github.com/loomengine/loom/pkg/adapters/ws"
	"github.com/loomengine/loom/pkg/editor"
)

// Version is the library version, reported by the CLI.
const Version = "0.3.0"

// Open connects to a loom service and opens an editing session on one
// workflow: the REST client for fetches and mutations, the websocket
// feed for push notifications, and the editor wiring on top.
//
// The session holds the live graph view until Close is called.
func Open(ctx context.Context, serverURL, workflowID string, opts ...editor.Option) (*editor.Session, error) {
	remote := rest.NewClient(serverURL)
	feed := ws.NewFeed(serverURL)
	return editor.Open(ctx, remote, feed, workflowID, opts...)
}

// OpenInMemory opens an editing session on a standalone in-memory
// remote seeded with the built-in module catalog, mainly for tests and
// demos. The remote is returned alongside the session so callers can
// seed graph state or drive remote-side changes.
func OpenInMemory(ctx context.Context, workflowID string, opts ...editor.Option) (*editor.Session, *memory.Remote, error) {
	remote := memory.NewRemote()
	remote.AddWorkflow(workflowID)
	remote.SetModules(server.DefaultCatalog())
	session, err := editor.Open(ctx, remote, remote, workflowID, opts...)
	if err != nil {
		return nil, nil, err
	}
	return session, remote, nil
}
