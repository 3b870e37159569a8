// Package roster loads team rosters from YAML.
package roster

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"volleysim/internal/game/volleyball"
)

//go:embed default.yaml
var defaultYAML []byte

type document struct {
	Teams []volleyball.TeamData `yaml:"teams"`
}

// Roster is a validated set of teams in file order.
type Roster struct {
	teams []volleyball.TeamData
}

// Parse decodes and validates a roster document.
func Parse(data []byte) (*Roster, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if len(doc.Teams) == 0 {
		return nil, fmt.Errorf("roster has no teams")
	}
	seen := make(map[string]bool, len(doc.Teams))
	for _, t := range doc.Teams {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate team %q", t.Name)
		}
		seen[key] = true
	}
	return &Roster{teams: doc.Teams}, nil
}

// Load reads a roster file. An empty path yields the embedded default.
func Load(path string) (*Roster, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Default returns the built-in rosters.
func Default() (*Roster, error) {
	return Parse(defaultYAML)
}

// Names lists the team names in file order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.teams))
	for i, t := range r.teams {
		names[i] = t.Name
	}
	return names
}

// Team looks a team up by name, ignoring case. The returned data is a copy.
func (r *Roster) Team(name string) (volleyball.TeamData, error) {
	for _, t := range r.teams {
		if strings.EqualFold(t.Name, name) {
			t.Players = append([]volleyball.PlayerData(nil), t.Players...)
			return t, nil
		}
	}
	return volleyball.TeamData{}, fmt.Errorf("unknown team %q", name)
}

// Teams returns copies of every team.
func (r *Roster) Teams() []volleyball.TeamData {
	out := make([]volleyball.TeamData, len(r.teams))
	for i, t := range r.teams {
		t.Players = append([]volleyball.PlayerData(nil), t.Players...)
		out[i] = t
	}
	return out
}
