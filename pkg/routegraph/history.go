package routegraph

import "github.com/xpayn3/cyclinghub-server/pkg/elevation"

// history is a linear snapshot stack. idx is -1 when empty.
type history struct {
	entries []Snapshot
	idx     int
}

func newHistory() history { return history{idx: -1} }

// push drops any redo entries past the cursor and appends a copy of s.
func (h *history) push(s Snapshot) {
	h.entries = append(h.entries[:h.idx+1], s.Clone())
	h.idx = len(h.entries) - 1
}

func (h *history) canUndo() bool { return h.idx > 0 }

func (h *history) canRedo() bool { return h.idx >= 0 && h.idx < len(h.entries)-1 }

func (h *history) undo() (Snapshot, bool) {
	if !h.canUndo() {
		return Snapshot{}, false
	}
	h.idx--
	return h.entries[h.idx].Clone(), true
}

func (h *history) redo() (Snapshot, bool) {
	if !h.canRedo() {
		return Snapshot{}, false
	}
	h.idx++
	return h.entries[h.idx].Clone(), true
}

func (h *history) reset() {
	h.entries = nil
	h.idx = -1
}

func (h *history) replaceElevation(p elevation.Profile) {
	if h.idx < 0 {
		return
	}
	h.entries[h.idx].Elevation = elevation.Profile{Samples: append([]elevation.Sample(nil), p.Samples...)}
}

// CanUndo reports whether Undo would change the graph.
func (g *Graph) CanUndo() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.history.canUndo()
}

// CanRedo reports whether Redo would change the graph.
func (g *Graph) CanRedo() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.history.canRedo()
}

// Undo steps back one snapshot. It waits for an in-flight edit to commit
// first. It reports false, and changes nothing, when the history is
// exhausted.
func (g *Graph) Undo() bool {
	return g.step((*history).undo)
}

// Redo steps forward one snapshot. It reports false at the newest entry.
func (g *Graph) Redo() bool {
	return g.step((*history).redo)
}

func (g *Graph) step(move func(*history) (Snapshot, bool)) bool {
	g.opMu.Lock()
	defer g.opMu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := move(&g.history)
	if ok {
		g.state = s
	}
	return ok
}
