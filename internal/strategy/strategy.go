// Package strategy defines the Strategy plug-in interface for signal
// generation and provides a Registry for managing multiple strategy
// implementations.
package strategy

import (
	"context"
	"log/slog"
	"sort"

	"nivesh/internal/domain"
)

// Strategy is the contract every signal generator fulfils. The platform
// does not care how a strategy derives its confidence or price levels;
// it only consumes the uniform Signal record.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Evaluate inspects a symbol's daily bar history (oldest first) and
	// returns a signal, or nil when the strategy has no opinion.
	Evaluate(ctx context.Context, symbol string, bars []domain.Bar) (*domain.Signal, error)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunAll evaluates every registered strategy over every symbol's bars
// and returns the nested strategy → symbol → signal map the consensus
// builder consumes. One strategy failing on one symbol is logged and
// skipped; it never aborts the scan.
func RunAll(ctx context.Context, reg *Registry, bars map[string][]domain.Bar, log *slog.Logger) map[string]map[string]domain.Signal {
	if log == nil {
		log = slog.Default()
	}

	out := make(map[string]map[string]domain.Signal)
	for _, name := range reg.List() {
		strat, _ := reg.Get(name)
		for symbol, history := range bars {
			sig, err := strat.Evaluate(ctx, symbol, history)
			if err != nil {
				log.Warn("strategy evaluation failed",
					"strategy", name, "symbol", symbol, "error", err)
				continue
			}
			if sig == nil {
				continue
			}
			if out[name] == nil {
				out[name] = make(map[string]domain.Signal)
			}
			out[name][symbol] = *sig
		}
	}
	return out
}
