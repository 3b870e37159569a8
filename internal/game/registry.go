package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the available strategies by kind and name.
type Registry struct {
	mu       sync.RWMutex
	players  map[string]PlayerFactory
	managers map[string]ManagerFactory
	info     map[Kind]map[string]StrategyInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		players:  make(map[string]PlayerFactory),
		managers: make(map[string]ManagerFactory),
		info: map[Kind]map[string]StrategyInfo{
			KindPlayer:  {},
			KindManager: {},
		},
	}
}

// DefaultRegistry returns a registry holding every built-in strategy.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterPlayer("random", "uniform choice among legal actions", NewRandomPlayer)
	r.RegisterPlayer("heuristic", "role-based preferences", NewHeuristicPlayer)
	r.RegisterPlayer("minimax", "alpha-beta lookahead over ball contacts", NewMinimaxPlayer)
	r.RegisterPlayer("rollout", "Monte-Carlo playouts to the end of the rally", NewRolloutPlayer)
	r.RegisterManager("random", "uniform choice among manager actions", NewRandomManager)
	r.RegisterManager("situational", "time-outs on runs, substitutions when trailing", NewSituationalManager)
	r.RegisterManager("minimax", "two-ply search over manager actions", NewMinimaxManager)
	return r
}

// RegisterPlayer adds a player strategy. Panics on duplicate names.
func (r *Registry) RegisterPlayer(name, description string, f PlayerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.players[name]; exists {
		panic(fmt.Sprintf("player strategy %q already registered", name))
	}
	r.players[name] = f
	r.info[KindPlayer][name] = StrategyInfo{Name: name, Kind: KindPlayer, Description: description}
}

// RegisterManager adds a manager strategy. Panics on duplicate names.
func (r *Registry) RegisterManager(name, description string, f ManagerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.managers[name]; exists {
		panic(fmt.Sprintf("manager strategy %q already registered", name))
	}
	r.managers[name] = f
	r.info[KindManager][name] = StrategyInfo{Name: name, Kind: KindManager, Description: description}
}

// Player builds a new instance of the named player strategy.
func (r *Registry) Player(name string, opts Options) (PlayerStrategy, error) {
	r.mu.RLock()
	f, ok := r.players[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown player strategy %q", name)
	}
	return f(opts), nil
}

// Manager builds a new instance of the named manager strategy.
func (r *Registry) Manager(name string, opts Options) (ManagerStrategy, error) {
	r.mu.RLock()
	f, ok := r.managers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown manager strategy %q", name)
	}
	return f(opts), nil
}

// List returns info for all registered strategies, players first, each kind
// sorted by name.
func (r *Registry) List() []StrategyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]StrategyInfo, 0, len(r.players)+len(r.managers))
	for _, kind := range []Kind{KindPlayer, KindManager} {
		start := len(infos)
		for _, info := range r.info[kind] {
			infos = append(infos, info)
		}
		part := infos[start:]
		sort.Slice(part, func(i, j int) bool { return part[i].Name < part[j].Name })
	}
	return infos
}
