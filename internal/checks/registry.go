// Package checks implements the stateless per-type check execution
// algorithm and the registry of type handlers it dispatches to.
package checks

import (
	"context"
	"time"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// HandlerFunc performs one check attempt against the target described by
// view, writing its outcome onto hb. It must set hb.Status = StatusUp on
// success; any returned error is treated as a DOWN outcome. A handler must
// never mutate hb.Status itself on failure — the executor owns that.
type HandlerFunc func(ctx context.Context, view domain.View, hb *domain.Heartbeat, timeout time.Duration) error

// HandlerContract describes one monitor type's registered behaviour
// (external interface named alongside the type-handler contract): whether
// it honours condition variables, which ones, and whether it is allowed to
// terminate in a status other than UP/DOWN on its own.
type HandlerContract struct {
	SupportsConditions bool
	ConditionVariables []string
	AllowCustomStatus  bool
	Check              HandlerFunc
}

// Registry maps a monitor type to its handler contract. The executor is
// agnostic to which types are registered.
type Registry struct {
	handlers map[domain.Type]HandlerContract
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.Type]HandlerContract)}
}

func (r *Registry) Register(t domain.Type, c HandlerContract) {
	r.handlers[t] = c
}

func (r *Registry) Lookup(t domain.Type) (HandlerContract, bool) {
	c, ok := r.handlers[t]
	return c, ok
}
