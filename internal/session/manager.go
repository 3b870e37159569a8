package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"volleysim/internal/game"
	"volleysim/internal/game/volleyball"
	"volleysim/internal/random"
	"volleysim/internal/roster"
	"volleysim/internal/storage"
)

// finalDeliveryTimeout bounds how long the end-of-match message waits for
// slow spectators.
const finalDeliveryTimeout = 2 * time.Second

// Options tunes the matches a Manager runs.
type Options struct {
	Depth            int
	Playouts         int
	ManagerInterval  int
	MaxSubstitutions int
}

// Manager manages all known sessions and the simulations behind them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	registry *game.Registry
	roster   *roster.Roster
	store    *storage.Store
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(registry *game.Registry, rs *roster.Roster, store *storage.Store, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions: make(map[string]*Session),
		registry: registry,
		roster:   rs,
		store:    store,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Create validates the configuration, then makes a new session and persists
// it. A zero seed draws a fresh one.
func (m *Manager) Create(home, away SideConfig, seed int64) (*Session, error) {
	for _, side := range []SideConfig{home, away} {
		if err := m.check(side); err != nil {
			return nil, err
		}
	}
	if strings.EqualFold(home.Team, away.Team) {
		return nil, fmt.Errorf("a team cannot play itself")
	}
	if seed == 0 {
		seed = random.NewSeed()
	}
	id := uuid.NewString()
	row := storage.MatchRow{
		ID:           id,
		Home:         home.Team,
		Away:         away.Team,
		HomeStrategy: home.strategy(),
		AwayStrategy: away.strategy(),
		Seed:         seed,
	}
	if err := m.store.CreateMatch(row); err != nil {
		return nil, fmt.Errorf("persist match: %w", err)
	}
	s := NewSession(id, home, away, seed)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	log.Info().Str("match", id).Str("home", home.Team).Str("away", away.Team).Int64("seed", seed).Msg("match-created")
	return s, nil
}

func (m *Manager) check(side SideConfig) error {
	if _, err := m.roster.Team(side.Team); err != nil {
		return err
	}
	if _, err := m.registry.Player(side.Players, game.Options{}); err != nil {
		return err
	}
	if _, err := m.registry.Manager(side.Manager, game.Options{}); err != nil {
		return err
	}
	return nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns info for all known sessions.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Start launches the simulation of a waiting session in the background.
// Every rally is broadcast as a "frame" message and the end of the match as
// a "summary" message.
func (m *Manager) Start(s *Session) error {
	sim, err := m.simulator(s)
	if err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	if err := m.store.UpdateMatchStatus(s.ID, string(StatusPlaying)); err != nil {
		log.Error().Err(err).Str("match", s.ID).Msg("update-status-failed")
	}
	log.Info().Str("match", s.ID).Msg("match-started")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		sum, err := sim.Run(m.ctx)
		if err != nil {
			log.Error().Err(err).Str("match", s.ID).Msg("match-abandoned")
			s.Abandon()
			m.persist(s.ID, StatusAbandoned, nil)
			s.Deliver(Encode("abandoned", s.Info()), finalDeliveryTimeout)
			return
		}
		s.Finish(sum)
		m.persist(s.ID, StatusFinished, &sum)
		s.Deliver(Encode("summary", sum), finalDeliveryTimeout)
	}()
	return nil
}

func (m *Manager) simulator(s *Session) (*game.Simulator, error) {
	home, err := m.roster.Team(s.Home.Team)
	if err != nil {
		return nil, err
	}
	away, err := m.roster.Team(s.Away.Team)
	if err != nil {
		return nil, err
	}
	hl, err := volleyball.NewLineUp(home)
	if err != nil {
		return nil, fmt.Errorf("home line-up: %w", err)
	}
	al, err := volleyball.NewLineUp(away)
	if err != nil {
		return nil, fmt.Errorf("away line-up: %w", err)
	}
	state := volleyball.NewState(home, away, random.New(s.Seed))
	if m.opts.MaxSubstitutions > 0 {
		state.MaxSubstitutions = m.opts.MaxSubstitutions
	}
	state.ConfLineUps(hl, al)

	homeSide, err := m.side(s.Home, s.Seed+1)
	if err != nil {
		return nil, err
	}
	awaySide, err := m.side(s.Away, s.Seed+2)
	if err != nil {
		return nil, err
	}
	interval := m.opts.ManagerInterval
	if interval == 0 {
		interval = game.DefaultManagerInterval
	}
	return game.NewSimulator(state, homeSide, awaySide, game.SimOptions{
		ManagerInterval: interval,
		OnFrame: func(f game.Frame) {
			s.record(f)
			s.Broadcast(Encode("frame", f))
		},
	}), nil
}

func (m *Manager) side(c SideConfig, seed int64) (game.Side, error) {
	opts := game.Options{Seed: seed, Depth: m.opts.Depth, Playouts: m.opts.Playouts}
	p, err := m.registry.Player(c.Players, opts)
	if err != nil {
		return game.Side{}, err
	}
	mg, err := m.registry.Manager(c.Manager, opts)
	if err != nil {
		return game.Side{}, err
	}
	return game.Side{Players: p, Manager: mg}, nil
}

func (m *Manager) persist(id string, status Status, sum *volleyball.Summary) {
	if sum != nil {
		data, err := json.Marshal(sum)
		if err != nil {
			log.Error().Err(err).Str("match", id).Msg("marshal-summary-failed")
		} else if err := m.store.SaveSummary(id, string(data)); err != nil {
			log.Error().Err(err).Str("match", id).Msg("save-summary-failed")
		}
	}
	if err := m.store.UpdateMatchStatus(id, string(status)); err != nil {
		log.Error().Err(err).Str("match", id).Msg("update-status-failed")
	}
}

// Restore loads matches from the database on startup. Matches that were
// waiting or playing when the process stopped are marked abandoned.
func (m *Manager) Restore() error {
	rows, err := m.store.ListMatches("")
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	for _, row := range rows {
		home, away := parseSide(row.Home, row.HomeStrategy), parseSide(row.Away, row.AwayStrategy)
		s := NewSession(row.ID, home, away, row.Seed)
		s.CreatedAt = row.CreatedAt

		switch Status(row.Status) {
		case StatusFinished:
			sr, err := m.store.GetSummary(row.ID)
			if err != nil {
				log.Warn().Err(err).Str("match", row.ID).Msg("skipping-match-without-summary")
				continue
			}
			var sum volleyball.Summary
			if err := json.Unmarshal([]byte(sr.SummaryJSON), &sum); err != nil {
				log.Warn().Err(err).Str("match", row.ID).Msg("skipping-unreadable-summary")
				continue
			}
			s.Finish(sum)
		case StatusAbandoned:
			s.Abandon()
		default:
			s.Abandon()
			if err := m.store.UpdateMatchStatus(row.ID, string(StatusAbandoned)); err != nil {
				return fmt.Errorf("abandon match %s: %w", row.ID, err)
			}
			log.Info().Str("match", row.ID).Str("was", row.Status).Msg("match-abandoned-on-restore")
		}
		m.mu.Lock()
		m.sessions[row.ID] = s
		m.mu.Unlock()
	}
	return nil
}

func parseSide(team, strategy string) SideConfig {
	players, manager, _ := strings.Cut(strategy, "/")
	return SideConfig{Team: team, Players: players, Manager: manager}
}

// Remove deletes a session from memory and storage.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if err := m.store.DeleteMatch(id); err != nil {
		log.Error().Err(err).Str("match", id).Msg("delete-match-failed")
	}
}

// CleanupLoop removes stale sessions periodically until ctx is done.
func (m *Manager) CleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(maxAge)
		}
	}
}

// cleanup forgets sessions nobody watches that are either over or have
// waited longer than maxAge. Stored records are kept for finished matches.
func (m *Manager) cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.sessions {
		s.mu.RLock()
		empty := len(s.Spectators) == 0
		status := s.Status
		age := now.Sub(s.CreatedAt)
		s.mu.RUnlock()

		if !empty || status == StatusPlaying {
			continue
		}
		switch {
		case status == StatusFinished && age > maxAge:
			log.Info().Str("match", id).Msg("cleaning-up-match")
			delete(m.sessions, id)
		case status != StatusFinished && age > maxAge:
			log.Info().Str("match", id).Str("status", string(status)).Msg("cleaning-up-match")
			if err := m.store.DeleteMatch(id); err != nil {
				log.Error().Err(err).Str("match", id).Msg("delete-match-failed")
			}
			delete(m.sessions, id)
		}
	}
}

// Shutdown stops running simulations and waits for them to settle.
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}
