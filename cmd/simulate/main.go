// Command simulate plays a batch of matches concurrently and prints a summary
// table. Settings come from the VOLLEY_* environment and can be overridden
// with flags.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"volleysim/internal/config"
	"volleysim/internal/game"
	"volleysim/internal/game/volleyball"
	"volleysim/internal/random"
	"volleysim/internal/roster"
	"volleysim/internal/storage"
)

type options struct {
	home, away       string
	players          string
	managers         string
	matches          int
	seed             int64
	parallel         int
	store            string
	showField        bool
	shuffleLineUps   bool
	maxSubstitutions int
	interval         int
	depth            int
	rollouts         int
}

type result struct {
	id      string
	seed    int64
	summary volleyball.Summary
	actions int
	elapsed time.Duration
	field   string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.home, "home", "", "home team (default: first roster team)")
	flag.StringVar(&opts.away, "away", "", "away team (default: second roster team)")
	flag.StringVar(&opts.players, "players", "heuristic", "player strategy for both teams, or home,away")
	flag.StringVar(&opts.managers, "managers", "situational", "manager strategy for both teams, or home,away")
	flag.IntVar(&opts.matches, "n", 1, "number of matches")
	flag.Int64Var(&opts.seed, "seed", 0, "seed of the first match (0 draws one)")
	flag.IntVar(&opts.parallel, "parallel", runtime.NumCPU(), "matches simulated at once")
	flag.StringVar(&opts.store, "store", "", "sqlite database to save summaries to")
	flag.BoolVar(&opts.showField, "show-field", false, "print the final field of every match")
	flag.BoolVar(&opts.shuffleLineUps, "shuffle-lineups", false, "start each match from a random rotation order")
	flag.IntVar(&opts.depth, "depth", cfg.SearchDepth, "minimax search depth")
	flag.IntVar(&opts.rollouts, "rollouts", cfg.Rollouts, "playouts per candidate for the rollout strategy")
	flag.IntVar(&opts.interval, "manager-interval", cfg.ManagerInterval, "rallies between manager decisions")
	flag.IntVar(&opts.maxSubstitutions, "max-substitutions", cfg.MaxSubstitutions, "substitutions allowed per set")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	if err := config.SetupLogging(*logLevel, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		log.Error().Err(err).Msg("simulate")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, opts options) error {
	if opts.matches < 1 {
		return fmt.Errorf("need at least one match, got %d", opts.matches)
	}
	rs, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return err
	}
	names := rs.Names()
	if opts.home == "" {
		opts.home = names[0]
	}
	if opts.away == "" {
		if len(names) < 2 {
			return fmt.Errorf("roster has a single team, pass -away")
		}
		opts.away = names[1]
	}
	home, err := rs.Team(opts.home)
	if err != nil {
		return err
	}
	away, err := rs.Team(opts.away)
	if err != nil {
		return err
	}
	if opts.seed == 0 {
		opts.seed = random.NewSeed()
	}

	registry := game.DefaultRegistry()
	homePlayers, awayPlayers := splitPair(opts.players)
	homeManager, awayManager := splitPair(opts.managers)
	// Fail fast on unknown names before any goroutine starts.
	for _, name := range []string{homePlayers, awayPlayers} {
		if _, err := registry.Player(name, game.Options{}); err != nil {
			return err
		}
	}
	for _, name := range []string{homeManager, awayManager} {
		if _, err := registry.Manager(name, game.Options{}); err != nil {
			return err
		}
	}

	interval := opts.interval
	if interval == 0 {
		interval = game.DefaultManagerInterval
	}

	results := make([]result, opts.matches)
	started := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	for i := range results {
		seed := opts.seed + int64(i)*3
		g.Go(func() error {
			begin := time.Now()
			state, err := newMatch(home, away, seed, opts)
			if err != nil {
				return err
			}
			sides, err := buildSides(registry, seed, opts, [2][2]string{{homePlayers, homeManager}, {awayPlayers, awayManager}})
			if err != nil {
				return err
			}
			sim := game.NewSimulator(state, sides[volleyball.Home], sides[volleyball.Away], game.SimOptions{
				ManagerInterval: interval,
			})
			sum, err := sim.Run(ctx)
			if err != nil {
				return fmt.Errorf("match %d (seed %d): %w", i+1, seed, err)
			}
			results[i] = result{
				id:      uuid.NewString(),
				seed:    seed,
				summary: sum,
				actions: sim.Dispatcher().StackDepth(),
				elapsed: time.Since(begin),
			}
			if opts.showField {
				results[i].field = state.Field.String()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Int("matches", opts.matches).Dur("elapsed", time.Since(started)).Msg("batch-done")

	if opts.store != "" {
		if err := save(opts.store, home.Name, away.Name, opts, results); err != nil {
			return err
		}
	}
	report(os.Stdout, home.Name, away.Name, opts.showField, results)
	return nil
}

// newMatch builds a configured match state. Each match owns its state and
// outcome source.
func newMatch(home, away volleyball.TeamData, seed int64, opts options) (*volleyball.State, error) {
	hl, err := volleyball.NewLineUp(home)
	if err != nil {
		return nil, fmt.Errorf("%s line-up: %w", home.Name, err)
	}
	al, err := volleyball.NewLineUp(away)
	if err != nil {
		return nil, fmt.Errorf("%s line-up: %w", away.Name, err)
	}
	src := random.New(seed)
	if opts.shuffleLineUps {
		all := volleyball.AllLineUps(hl)
		hl = all[src.Intn(len(all))]
		all = volleyball.AllLineUps(al)
		al = all[src.Intn(len(all))]
	}
	state := volleyball.NewState(home, away, src)
	if opts.maxSubstitutions > 0 {
		state.MaxSubstitutions = opts.maxSubstitutions
	}
	state.ConfLineUps(hl, al)
	return state, nil
}

func buildSides(registry *game.Registry, seed int64, opts options, names [2][2]string) ([2]game.Side, error) {
	var sides [2]game.Side
	for i, n := range names {
		gopts := game.Options{Seed: seed + int64(i) + 1, Depth: opts.depth, Playouts: opts.rollouts}
		p, err := registry.Player(n[0], gopts)
		if err != nil {
			return sides, err
		}
		m, err := registry.Manager(n[1], gopts)
		if err != nil {
			return sides, err
		}
		sides[i] = game.Side{Players: p, Manager: m}
	}
	return sides, nil
}

// splitPair reads "a,b" as a home/away pair and "a" as the same for both.
func splitPair(v string) (string, string) {
	if home, away, ok := strings.Cut(v, ","); ok {
		return home, away
	}
	return v, v
}

func save(path, home, away string, opts options, results []result) error {
	store, err := storage.New(path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	hp, ap := splitPair(opts.players)
	hm, am := splitPair(opts.managers)
	for _, r := range results {
		row := storage.MatchRow{
			ID:           r.id,
			Home:         home,
			Away:         away,
			HomeStrategy: hp + "/" + hm,
			AwayStrategy: ap + "/" + am,
			Seed:         r.seed,
		}
		if err := store.CreateMatch(row); err != nil {
			return fmt.Errorf("save match: %w", err)
		}
		data, err := json.Marshal(r.summary)
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		if err := store.SaveSummary(r.id, string(data)); err != nil {
			return fmt.Errorf("save summary: %w", err)
		}
		if err := store.UpdateMatchStatus(r.id, "finished"); err != nil {
			return fmt.Errorf("save status: %w", err)
		}
	}
	log.Info().Str("path", path).Int("matches", len(results)).Msg("summaries-saved")
	return nil
}

func report(out io.Writer, home, away string, showField bool, results []result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "#\tSEED\tWINNER\tSETS\tRALLIES\tACTIONS\tACES\tKILLS\tBLOCKS\tSUBS\tTIME\n")

	wins := map[string]int{}
	var rallies, actions int
	for i, r := range results {
		sum := r.summary
		hs, as := sum.Teams[volleyball.Home].Statistics, sum.Teams[volleyball.Away].Statistics
		wins[sum.Winner]++
		rallies += len(sum.Points)
		actions += r.actions
		fmt.Fprintf(w, "%d\t%d\t%s\t%d-%d\t%s\t%s\t%d-%d\t%d-%d\t%d-%d\t%d-%d\t%s\n",
			i+1, r.seed, sum.Winner, sum.Sets[volleyball.Home], sum.Sets[volleyball.Away],
			humanize.Comma(int64(len(sum.Points))), humanize.Comma(int64(r.actions)),
			hs.Aces, as.Aces, hs.Kills, as.Kills, hs.BlockPoints, as.BlockPoints,
			hs.Substitutions, as.Substitutions, r.elapsed.Round(time.Millisecond))
	}
	w.Flush()

	n := float64(len(results))
	fmt.Fprintf(out, "\n%s %s, %s %s over %s matches (%s rallies, %s actions, %s actions per rally)\n",
		home, humanize.Comma(int64(wins[home])), away, humanize.Comma(int64(wins[away])),
		humanize.Comma(int64(len(results))), humanize.Comma(int64(rallies)), humanize.Comma(int64(actions)),
		humanize.FormatFloat("#.##", float64(actions)/max(float64(rallies), 1)))
	fmt.Fprintf(out, "%s win rate %s%%\n", home, humanize.FormatFloat("#.#", 100*float64(wins[home])/n))

	if showField {
		for i, r := range results {
			fmt.Fprintf(out, "\nmatch %d final field:\n%s\n", i+1, r.field)
		}
	}
}
