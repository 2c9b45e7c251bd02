package runner

import "context"

// Handler receives report events during a run.
type Handler interface {
	// Event is called for each decoded event with the run's tree.
	Event(ctx context.Context, event Event, tree *ResultTree) error

	// Err is called for stderr output and lines that are not events.
	Err(text string) error
}

// MultiHandler fans out events to multiple handlers.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler creates a handler that dispatches to multiple handlers.
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Event dispatches to all handlers, stopping on first error.
func (m *MultiHandler) Event(ctx context.Context, event Event, tree *ResultTree) error {
	for _, h := range m.handlers {
		err := h.Event(ctx, event, tree)
		if err != nil {
			return err
		}
	}

	return nil
}

// Err dispatches to all handlers.
func (m *MultiHandler) Err(text string) error {
	for _, h := range m.handlers {
		err := h.Err(text)
		if err != nil {
			return err
		}
	}

	return nil
}

// TreeHandler folds events into the tree it is given and records error
// text in the tree's error buffer.
type TreeHandler struct {
	tree *ResultTree
}

// NewTreeHandler creates a handler that folds into tree.
func NewTreeHandler(tree *ResultTree) *TreeHandler {
	return &TreeHandler{tree: tree}
}

// Event folds the event.
func (h *TreeHandler) Event(_ context.Context, event Event, _ *ResultTree) error {
	h.tree.Fold(event)

	return nil
}

// Err appends text to the tree's error buffer.
func (h *TreeHandler) Err(text string) error {
	h.tree.AddError(text)

	return nil
}

// StopOnFailHandler stops execution when max failures is reached.
type StopOnFailHandler struct {
	maxFails int
}

// NewStopOnFailHandler creates a handler that stops after n failures.
func NewStopOnFailHandler(maxFails int) *StopOnFailHandler {
	return &StopOnFailHandler{maxFails: maxFails}
}

// Event checks if we've hit max failures.
func (h *StopOnFailHandler) Event(_ context.Context, event Event, tree *ResultTree) error {
	if h.maxFails <= 0 || event.Kind != KindTestCompleted || event.Status != StatusFail {
		return nil
	}

	if tree.Counts().Failed >= h.maxFails {
		return ErrMaxFailures
	}

	return nil
}

// Err is a no-op.
func (h *StopOnFailHandler) Err(_ string) error {
	return nil
}
