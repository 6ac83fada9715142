// Package hooking lets observers attach to well-known positions inside the
// run-loop and the transport adapters without those components knowing who is
// listening.
package hooking

// HookPos names a place where a component reports to its hooks, such as a
// transfer being dispatched or a frame leaving an adapter. Positions are
// compared by pointer, so each one is declared once as a package variable.
type HookPos struct {
	Name string
}

func (p *HookPos) String() string {
	if p == nil {
		return "<nil>"
	}

	return p.Name
}

// HookCtx is what a hook receives. Item is the transfer, frame or buffer
// element the report is about; Detail is position specific.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is a component that reports to hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// Hook observes a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc turns a function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f(ctx).
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase keeps the hooks of a component. Embed it to implement
// Hookable and call Emit at each position.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns the number of attached hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the attached hooks in attach order.
func (h *HookableBase) Hooks() []Hook {
	return append([]Hook(nil), h.hooks...)
}

// AcceptHook attaches a hook. Attaching the same hook value twice panics;
// HookFuncs cannot be compared and are always attached.
func (h *HookableBase) AcceptHook(hook Hook) {
	if identifiable(hook) {
		for _, have := range h.hooks {
			if have == hook {
				panic("hook already attached")
			}
		}
	}

	h.hooks = append(h.hooks, hook)
}

// DetachHook removes a hook attached earlier and reports whether it was
// found. HookFuncs cannot be detached.
func (h *HookableBase) DetachHook(hook Hook) bool {
	if !identifiable(hook) {
		return false
	}

	for i, have := range h.hooks {
		if have == hook {
			h.hooks = append(h.hooks[:i], h.hooks[i+1:]...)
			return true
		}
	}

	return false
}

// InvokeHook hands ctx to every hook in attach order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}

// Emit reports at pos on behalf of domain. Nothing is built when no hook is
// attached, so components call it on their hot paths.
func (h *HookableBase) Emit(domain Hookable, pos *HookPos, item, detail any) {
	if len(h.hooks) == 0 {
		return
	}

	h.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}

func identifiable(hook Hook) bool {
	_, isFunc := hook.(HookFunc)
	return !isFunc
}
