// Package registry maps swapper names to their execution type and to
// the strategy that settles quotes brokered through them. Dispatch is
// table-driven: adding a provider means one classification entry plus
// one Register call at startup, with no switch statements to extend.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/Checker-Finance/swap-broker/pkg/model"
)

// Strategy executes the settlement leg for quotes brokered through one
// provider. Implementations must be safe for concurrent use: the monitor
// fans out over quotes and several may share a strategy.
type Strategy interface {
	Name() model.SwapperName
	Execute(ctx context.Context, quote *model.Quote) model.SwapExecutionResult
}

// classification is the authoritative swapper-to-type table. A name
// missing here is unknown to the broker regardless of what strategies
// have been registered.
var classification = map[model.SwapperName]model.SwapperType{
	model.ChainflipProvider:   model.SwapperTypeDirect,
	model.NearIntentsProvider: model.SwapperTypeDirect,

	model.ThorchainProvider:  model.SwapperTypeServiceWallet,
	model.JupiterProvider:    model.SwapperTypeServiceWallet,
	model.RelayProvider:      model.SwapperTypeServiceWallet,
	model.MayachainProvider:  model.SwapperTypeServiceWallet,
	model.ButterSwapProvider: model.SwapperTypeServiceWallet,
	model.BebopProvider:      model.SwapperTypeServiceWallet,
}

// Classify returns the execution type for a swapper name. Unknown names
// fail with ErrUnknownSwapper so quote creation can reject them up front.
func Classify(name model.SwapperName) (model.SwapperType, error) {
	t, ok := classification[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrUnknownSwapper, name)
	}
	return t, nil
}

// Known reports whether name is a recognized swapper.
func Known(name model.SwapperName) bool {
	_, ok := classification[name]
	return ok
}

// Registry holds the strategies wired at startup.
type Registry struct {
	strategies map[model.SwapperName]Strategy
}

func New() *Registry {
	return &Registry{strategies: make(map[model.SwapperName]Strategy)}
}

// Register adds a strategy. The name must be classified and not already
// registered; both failures are wiring bugs surfaced at startup.
func (r *Registry) Register(s Strategy) error {
	name := s.Name()
	if _, err := Classify(name); err != nil {
		return err
	}
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("strategy %q registered twice", name)
	}
	r.strategies[name] = s
	return nil
}

// MustRegister is Register for static startup wiring.
func (r *Registry) MustRegister(s Strategy) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// StrategyFor resolves the strategy and execution type for a swapper.
// A classified name with no registered strategy is reported distinctly
// from an unknown name: the former is a deployment gap, the latter a
// caller error.
func (r *Registry) StrategyFor(name model.SwapperName) (Strategy, model.SwapperType, error) {
	t, err := Classify(name)
	if err != nil {
		return nil, "", err
	}
	s, ok := r.strategies[name]
	if !ok {
		return nil, "", fmt.Errorf("no strategy registered for swapper %q", name)
	}
	return s, t, nil
}

// Names returns the registered swapper names, sorted for stable logs.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, string(name))
	}
	sort.Strings(out)
	return out
}
