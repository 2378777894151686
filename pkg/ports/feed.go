package ports

import (
	"context"

	"github.com/loomengine/loom/pkg/domain"
)

// UnsubscribeFunc releases a feed subscription. Safe to call more than
// once.
type UnsubscribeFunc func()

// ChangeFeed is the per-workflow push channel. Subscribe is called when a
// workflow view opens and the returned UnsubscribeFunc when it closes;
// there is no implicit lifecycle coupling.
//
// The returned channel is closed when the subscription ends, whether via
// the UnsubscribeFunc, context cancellation, or a transport failure.
type ChangeFeed interface {
	Subscribe(ctx context.Context, workflowID string) (<-chan domain.ChangeEvent, UnsubscribeFunc, error)
}
