package usecases

import (
	"context"
	"errors"
	"sync"

	"github.com/geowerks/specklegeo/internal/core/domain"
	"github.com/geowerks/specklegeo/internal/core/ports"
)

// errStopWalk is returned by a visitor when the consumer needs no more nodes.
// The walker unwinds without error; outstanding prefetch work is abandoned.
var errStopWalk = errors.New("stop walk")

// walker performs one depth-first traversal of a model graph. Child order is
// the property order serialized by the store, each distinct node id is visited
// at most once, and reference expansion is demand-driven with an optional
// bounded look-ahead. A walker serves a single request and is not reused.
type walker struct {
	store    ports.ObjectStore
	ref      domain.ModelRef
	prefetch int
	seen     map[string]bool

	mu       sync.Mutex
	inflight map[string]*objectFetch
	sem      chan struct{}
}

type objectFetch struct {
	done chan struct{}
	node *domain.Node
	err  error
}

func newWalker(store ports.ObjectStore, ref domain.ModelRef, prefetch int) *walker {
	w := &walker{
		store:    store,
		ref:      ref,
		prefetch: prefetch,
		seen:     make(map[string]bool),
		inflight: make(map[string]*objectFetch),
	}
	if prefetch > 0 {
		w.sem = make(chan struct{}, prefetch)
	}
	return w
}

// walk visits node and, when visit asks to descend, its children in source
// order. visit returns whether to descend; errStopWalk aborts the whole
// traversal cleanly.
func (w *walker) walk(ctx context.Context, node *domain.Node, visit func(*domain.Node) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if node.ID != "" {
		if w.seen[node.ID] {
			return nil
		}
		w.seen[node.ID] = true
	}

	descend, err := visit(node)
	if err != nil || !descend {
		return err
	}

	w.scheduleLookahead(ctx, node)

	for _, p := range node.Props {
		if err := w.walkValue(ctx, p.Value, visit); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkValue(ctx context.Context, v domain.Value, visit func(*domain.Node) (bool, error)) error {
	switch v.Kind {
	case domain.KindNode:
		return w.walk(ctx, v.Node, visit)
	case domain.KindReference:
		if w.seen[v.Ref] {
			return nil
		}
		child, err := w.resolve(ctx, v.Ref)
		if err != nil {
			return err
		}
		return w.walk(ctx, child, visit)
	case domain.KindSequence:
		for _, el := range v.Sequence {
			if err := w.walkValue(ctx, el, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// scheduleLookahead starts asynchronous fetches for the first few unexpanded
// references of a node so expansion latency overlaps with downstream work.
// Look-ahead never extends past the node's direct children and is bounded by
// the prefetch budget; with prefetch 0 the walker is strictly demand-driven.
func (w *walker) scheduleLookahead(ctx context.Context, node *domain.Node) {
	if w.sem == nil {
		return
	}
	budget := w.prefetch
	for _, p := range node.Props {
		if budget == 0 {
			return
		}
		w.eachRef(p.Value, func(id string) bool {
			w.start(ctx, id)
			budget--
			return budget > 0
		})
	}
}

// eachRef calls fn for each not-yet-seen reference id in v, stopping when fn
// returns false.
func (w *walker) eachRef(v domain.Value, fn func(string) bool) bool {
	switch v.Kind {
	case domain.KindReference:
		if !w.seen[v.Ref] {
			return fn(v.Ref)
		}
	case domain.KindSequence:
		for _, el := range v.Sequence {
			if !w.eachRef(el, fn) {
				return false
			}
		}
	}
	return true
}

// start launches an idempotent asynchronous fetch for id.
func (w *walker) start(ctx context.Context, id string) *objectFetch {
	w.mu.Lock()
	if f, ok := w.inflight[id]; ok {
		w.mu.Unlock()
		return f
	}
	f := &objectFetch{done: make(chan struct{})}
	w.inflight[id] = f
	w.mu.Unlock()

	go func() {
		defer close(f.done)
		select {
		case w.sem <- struct{}{}:
			defer func() { <-w.sem }()
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		}
		if err := ctx.Err(); err != nil {
			// cancelled while queued: issue no new fetch
			f.err = err
			return
		}
		f.node, f.err = w.store.Object(ctx, w.ref, id)
	}()
	return f
}

// resolve returns the object for id, reusing an in-flight prefetch when one
// exists and fetching synchronously otherwise.
func (w *walker) resolve(ctx context.Context, id string) (*domain.Node, error) {
	if w.sem == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return w.store.Object(ctx, w.ref, id)
	}

	f := w.start(ctx, id)
	select {
	case <-f.done:
		return f.node, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
