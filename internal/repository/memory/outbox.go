package memory

import (
	"context"
	"slices"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type outboxStore struct{ s *Store }

// Drain publishes outside the data lock and then removes the published
// messages. drainMu keeps two relays from handing out the same message;
// placements only append, so the drained prefix stays in place meanwhile.
func (o outboxStore) Drain(ctx context.Context, limit int, publish func(context.Context, entity.OutboxMessage) error) (int, error) {
	o.s.drainMu.Lock()
	defer o.s.drainMu.Unlock()

	o.s.mu.RLock()
	n := len(o.s.outbox)
	if limit > 0 && n > limit {
		n = limit
	}
	pending := slices.Clone(o.s.outbox[:n])
	o.s.mu.RUnlock()

	var (
		sent       int
		publishErr error
	)
	for _, m := range pending {
		if err := publish(ctx, m); err != nil {
			publishErr = err
			break
		}
		sent++
	}

	if sent > 0 {
		o.s.mu.Lock()
		o.s.outbox = slices.Clone(o.s.outbox[sent:])
		o.s.mu.Unlock()
	}
	return sent, publishErr
}
