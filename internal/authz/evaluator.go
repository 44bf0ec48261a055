// Package authz decides whether a caller holds the permissions a command
// requires. The decision is delegated to OPA so operators can override
// the built-in subset check with their own rego policies (time windows,
// org-scoped grants, wildcard permissions).
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/af-corp/commandgate/internal/config"
	"github.com/open-policy-agent/opa/rego"
)

const allowQuery = "data.commandgate.authz.allow"

// defaultModule grants access when every required permission appears in
// the subject's granted set. Loaded when no bundle path is configured.
const defaultModule = `
package commandgate.authz

import rego.v1

default allow := false

allow if {
	every p in input.command.required_permissions {
		p in input.subject.permissions
	}
}
`

// Input is the data sent to OPA for evaluation.
type Input struct {
	Subject Subject `json:"subject"`
	Command Command `json:"command"`
	Time    Clock   `json:"time"`
}

type Subject struct {
	ID          string   `json:"id"`
	Org         string   `json:"org"`
	Permissions []string `json:"permissions"`
}

type Command struct {
	Name                string   `json:"name"`
	RequiredPermissions []string `json:"required_permissions"`
}

type Clock struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// Evaluator answers permission checks via a prepared rego query.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.AuthzConfig
}

// NewEvaluator creates an evaluator. Call Load() to compile policies.
func NewEvaluator(cfg func() config.AuthzConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Load compiles rego modules from the configured bundle path, or the
// built-in subset policy when no path is set.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	if cfg.BundlePath == "" {
		return e.LoadFromModules(map[string]string{"default.rego": defaultModule})
	}

	modules, err := LoadRegoFiles(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found, using built-in policy", "path", cfg.BundlePath)
		return e.LoadFromModules(map[string]string{"default.rego": defaultModule})
	}
	return e.LoadFromModules(modules)
}

// LoadFromModules compiles policies from provided module sources.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	opts := make([]func(*rego.Rego), 0, len(modules)+1)
	opts = append(opts, rego.Query(allowQuery))
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()

	slog.Info("authz policies loaded", "modules", len(modules))
	return nil
}

// Evaluate runs the policy against the given input.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		// No policies loaded: fail closed
		return false, nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	allowed, _ := results[0].Expressions[0].Value.(bool)
	return allowed, nil
}

// HasPermissions reports whether the subject may run a command requiring
// the given permissions. Evaluation errors fail closed.
func (e *Evaluator) HasPermissions(ctx context.Context, subject Subject, command string, required []string) bool {
	if required == nil {
		required = []string{}
	}
	if subject.Permissions == nil {
		subject.Permissions = []string{}
	}
	now := time.Now().UTC()
	input := Input{
		Subject: subject,
		Command: Command{Name: command, RequiredPermissions: required},
		Time:    Clock{Hour: now.Hour(), Day: now.Weekday().String()},
	}

	allowed, err := e.Evaluate(ctx, input)
	if err != nil {
		slog.Error("authz evaluation failed", "error", err, "command", command)
		return false
	}
	return allowed
}
