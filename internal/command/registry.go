package command

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc is a command's business-logic entry point. It receives the
// coerced, typed parameter mapping only after the full validation
// pipeline has passed. Caller identity travels in ctx.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// Command pairs a contract with its handler.
type Command struct {
	Contract *Contract
	Handler  HandlerFunc
}

// Registry is the process-wide command lookup table. Commands are
// registered explicitly at startup; there is no implicit plugin
// discovery.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command. The contract's shape is checked here, once:
// empty or duplicate command names, unknown param types, and duplicate
// param names are registration errors. A nil handler is allowed and
// yields a handler-not-implemented failure at call time.
func (r *Registry) Register(contract *Contract, handler HandlerFunc) error {
	if err := contract.check(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[contract.Name]; exists {
		return fmt.Errorf("command %q already registered", contract.Name)
	}
	r.commands[contract.Name] = &Command{Contract: contract, Handler: handler}
	r.order = append(r.order, contract.Name)
	return nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns every registered command in registration order.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Definitions returns the definition of every registered command in
// registration order.
func (r *Registry) Definitions() []Definition {
	all := r.All()
	out := make([]Definition, 0, len(all))
	for _, cmd := range all {
		out = append(out, cmd.Contract.Definition())
	}
	return out
}
