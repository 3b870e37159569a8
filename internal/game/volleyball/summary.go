package volleyball

// TeamSummary is one side's end-of-match export.
type TeamSummary struct {
	Name                string               `json:"name"`
	Statistics          TeamStats            `json:"statistics"`
	OnField             []int                `json:"on_field"`
	OnBench             []int                `json:"on_bench"`
	SubstitutionHistory []SubstitutionRecord `json:"substitution_history"`
	PlayersStatistics   map[int]Stats        `json:"players_statistics"`
}

// Summary is the match export consumed by reporting tools.
type Summary struct {
	Teams     map[Team]TeamSummary `json:"teams"`
	Scores    [2]int               `json:"scores"`
	Sets      [2]int               `json:"sets"`
	SetNumber int                  `json:"set_number"`
	Finished  bool                 `json:"finished"`
	Winner    string               `json:"winner,omitempty"`
	Points    []PointRecord        `json:"points_history"`
}

// Summary exports the current statistics. The result shares no memory with
// the state.
func (s *State) Summary() Summary {
	out := Summary{
		Teams:     make(map[Team]TeamSummary, 2),
		Scores:    s.Scores,
		Sets:      s.Sets,
		SetNumber: s.SetNumber,
		Finished:  s.IsFinish(),
		Points:    append([]PointRecord(nil), s.points...),
	}
	if w, ok := s.Winner(); ok {
		out.Winner = s.Teams[w].Name
	}
	for _, team := range Teams {
		t := s.Teams[team]
		players := make(map[int]Stats, len(t.PlayerStats))
		for d, st := range t.PlayerStats {
			players[d] = *st
		}
		out.Teams[team] = TeamSummary{
			Name:                t.Name,
			Statistics:          t.Stats,
			OnField:             t.FieldDorsals(),
			OnBench:             t.BenchDorsals(),
			SubstitutionHistory: append([]SubstitutionRecord(nil), t.Substitutions...),
			PlayersStatistics:   players,
		}
	}
	return out
}
