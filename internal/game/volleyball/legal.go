package volleyball

// PlayerActions lists what one on-court player may legally do right now.
// The result always ends with Nothing.
func PlayerActions(s *State, team Team, dorsal int) []Action {
	idle := &Nothing{Player: dorsal, Side: team}
	if s.IsFinish() {
		return []Action{idle}
	}
	at, ok := s.Field.FindPlayer(team, dorsal)
	if !ok {
		return []Action{idle}
	}
	ball, _ := s.Field.Ball()
	var out []Action

	switch s.Rally.Phase {
	case ServeWait, RallyOver:
		if team == s.Serving && dorsal == s.Server() && at == ball {
			for _, dst := range teamCells(s, team.Opponent()) {
				out = append(out, NewServe(team, dorsal, at, dst))
			}
		}
	case InPlay:
		r := s.Rally
		if team == r.Possession && at == ball {
			switch {
			case r.Next == KindReceive && r.Touches[team] == 0:
				for _, dst := range teammateCells(s, team, dorsal) {
					out = append(out, NewReceive(team, dorsal, at, dst))
				}
				for _, dst := range teammateCells(s, team, dorsal) {
					out = append(out, NewDig(team, dorsal, at, dst))
				}
			case r.Touches[team] < MaxTouches:
				for _, dst := range teammateCells(s, team, dorsal) {
					out = append(out, NewSet(team, dorsal, at, dst))
				}
				for _, dst := range teamCells(s, team.Opponent()) {
					out = append(out, NewAttack(team, dorsal, at, dst))
				}
			}
		} else if at != ball {
			for _, n := range Neighbors(at) {
				if !s.Field.Occupied(n) {
					out = append(out, &Move{Player: dorsal, Side: team, Src: at, Dest: n})
				}
			}
		}
	}
	return append(out, idle)
}

// PossibleActions is the union of every on-court player's actions in slot
// order, with a single trailing Nothing for the team.
func PossibleActions(s *State, team Team) []Action {
	var out []Action
	for _, pos := range s.Teams[team].LineUp.Slots {
		for _, a := range PlayerActions(s, team, pos.Dorsal) {
			if a.Kind() != KindNothing {
				out = append(out, a)
			}
		}
	}
	return append(out, &Nothing{Player: -1, Side: team})
}

// TouchActions is the subset of PossibleActions that contact the ball.
func TouchActions(s *State, team Team) []Action {
	var out []Action
	for _, a := range PossibleActions(s, team) {
		if a.Kind().IsTouch() {
			out = append(out, a)
		}
	}
	return out
}

// ManagerActions lists a manager's options: same-role substitutions within
// the per-set cap that do not repeat a pair already used this set, a
// time-out while any remain, a celebration while the team holds the ball,
// and ManagerNothing last.
func ManagerActions(s *State, team Team) []Action {
	idle := &ManagerNothing{Side: team}
	if s.IsFinish() {
		return []Action{idle}
	}
	t := s.Teams[team]
	var out []Action
	if s.SubstitutionsThisSet(team) < s.MaxSubstitutions {
		used := make(map[[2]int]bool)
		for _, r := range t.Substitutions {
			if r.Set == s.SetNumber {
				used[[2]int{r.Out, r.In}] = true
			}
		}
		bench := t.BenchDorsals()
		for _, pos := range t.LineUp.Slots {
			for _, in := range bench {
				if t.Roster[in].Role != pos.Role || used[[2]int{pos.Dorsal, in}] {
					continue
				}
				out = append(out, NewSubstitution(team, pos.Dorsal, in))
			}
		}
	}
	if t.Timeouts > 0 {
		out = append(out, &Timeout{Side: team})
	}
	if s.Rally.Possession == team {
		out = append(out, &Celebrate{Side: team})
	}
	return append(out, idle)
}

// teamCells returns the cells of team's on-court players in slot order.
func teamCells(s *State, team Team) []Cell {
	out := make([]Cell, 0, 6)
	for _, pos := range s.Teams[team].LineUp.Slots {
		if c, ok := s.Field.FindPlayer(team, pos.Dorsal); ok {
			out = append(out, c)
		}
	}
	return out
}

func teammateCells(s *State, team Team, self int) []Cell {
	out := make([]Cell, 0, 5)
	for _, pos := range s.Teams[team].LineUp.Slots {
		if pos.Dorsal == self {
			continue
		}
		if c, ok := s.Field.FindPlayer(team, pos.Dorsal); ok {
			out = append(out, c)
		}
	}
	return out
}
