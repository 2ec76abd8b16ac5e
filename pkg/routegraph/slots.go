package routegraph

import (
	"context"
	"fmt"

	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
)

// operation is one in-flight mutation. slot is empty for operations no
// later call can supersede.
type operation struct {
	id     uint64
	slot   string
	cancel context.CancelCauseFunc
}

const (
	slotRefetch = "refetch"
	slotLoop    = "loop"
)

func moveSlot(index int) string { return fmt.Sprintf("waypoint:%d", index) }

// begin registers an operation, cancels the previous holder of slot and
// waits for the operation lock. The returned func releases both.
func (g *Graph) begin(ctx context.Context, slot string) (context.Context, func(), error) {
	opCtx, cancel := context.WithCancelCause(ctx)

	g.slotMu.Lock()
	g.nextOp++
	op := &operation{id: g.nextOp, slot: slot, cancel: cancel}
	if slot != "" {
		if prev, ok := g.slots[slot]; ok {
			prev.cancel(hubErrors.ErrSuperseded)
		}
		g.slots[slot] = op
	}
	g.inflight[op.id] = op
	g.slotMu.Unlock()

	release := func() {
		g.slotMu.Lock()
		delete(g.inflight, op.id)
		if slot != "" && g.slots[slot] == op {
			delete(g.slots, slot)
		}
		g.slotMu.Unlock()
		cancel(nil)
	}

	g.opMu.Lock()
	if err := stopped(opCtx); err != nil {
		g.opMu.Unlock()
		release()
		return nil, nil, err
	}
	return opCtx, func() {
		g.opMu.Unlock()
		release()
	}, nil
}

// cancelInflight supersedes every registered operation, including those
// still waiting for the lock.
func (g *Graph) cancelInflight() {
	g.slotMu.Lock()
	defer g.slotMu.Unlock()
	for _, op := range g.inflight {
		op.cancel(hubErrors.ErrSuperseded)
	}
}

// stopped returns why ctx ended: ErrSuperseded when a newer edit took over,
// otherwise the caller's own cancellation.
func stopped(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return ctx.Err()
}
