package fluxgraph

import "context"

// route pairs a predicate with the operator that should handle matching items.
type route[T any] struct {
	name      string
	predicate func(T) bool
	op        Operator[T]
}

// Router implements first-match content-based routing: each item is sent to
// the first route whose predicate matches (or the default route, if
// configured), and every route's output is merged back into one stream.
// Routes evaluate in the order they were added.
type Router[T any] struct {
	base
	routes       []route[T]
	defaultRoute *route[T]
}

// NewRouter creates a content-based router.
func NewRouter[T any](name string) *Router[T] {
	return &Router[T]{base: newBase(name)}
}

// AddRoute appends a named route.
func (r *Router[T]) AddRoute(name string, predicate func(T) bool, op Operator[T]) *Router[T] {
	r.routes = append(r.routes, route[T]{name: name, predicate: predicate, op: op})
	return r
}

// WithDefault sets the fallback route for items matching nothing else.
// Without one, unmatched items are dropped.
func (r *Router[T]) WithDefault(op Operator[T]) *Router[T] {
	r.defaultRoute = &route[T]{name: "default", op: op}
	return r
}

func (r *Router[T]) Process(ctx context.Context, fail func(error), in <-chan Message[T]) <-chan Message[T] {
	routeIns := make([]chan Message[T], len(r.routes))
	for i := range r.routes {
		routeIns[i] = make(chan Message[T], InboundQueueSize)
	}
	var defaultIn chan Message[T]
	if r.defaultRoute != nil {
		defaultIn = make(chan Message[T], InboundQueueSize)
	}

	r.setState(StateRunning)
	go func() {
		defer func() {
			for _, ch := range routeIns {
				close(ch)
			}
			if defaultIn != nil {
				close(defaultIn)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				r.setState(StateFailed)
				return
			case msg, ok := <-in:
				if !ok {
					r.setState(StateTerminated)
					return
				}
				if msg.Sentinel {
					r.setState(StateDraining)
					for _, ch := range routeIns {
						select {
						case ch <- msg:
						case <-ctx.Done():
							return
						}
					}
					if defaultIn != nil {
						select {
						case defaultIn <- msg:
						case <-ctx.Done():
							return
						}
					}
					r.setState(StateTerminated)
					return
				}
				routed := false
				for i, rt := range r.routes {
					if rt.predicate(msg.Value) {
						select {
						case routeIns[i] <- msg:
							routed = true
						case <-ctx.Done():
							return
						}
						break
					}
				}
				if !routed && defaultIn != nil {
					select {
					case defaultIn <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	ins := make([]<-chan Message[T], 0, len(r.routes)+1)
	for i, rt := range r.routes {
		ins = append(ins, rt.op.Process(ctx, fail, routeIns[i]))
	}
	if r.defaultRoute != nil {
		ins = append(ins, r.defaultRoute.op.Process(ctx, fail, defaultIn))
	}

	return NewFanIn[T](r.name + "-merge").Merge(ctx, ins...)
}
