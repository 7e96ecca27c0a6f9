package model

import "math"

// Stats summarises a player's games within some window.
type Stats struct {
	Games int `dynamodbav:"games" json:"games"`
	Wins  int `dynamodbav:"wins" json:"wins"`
	// Streak counts consecutive wins (positive) or losses (negative), most recent first.
	Streak        int     `dynamodbav:"streak" json:"streak"`
	WinPercentage float64 `dynamodbav:"winPercentage" json:"winPercentage"`
}

// WinPercentage rounds down to one decimal. Zero games yield 0.
func WinPercentage(wins, games int) float64 {
	return math.Floor(1000*float64(wins)/float64(max(games, 1))) / 10
}

// CalculatePlayerStats computes stats for every player on the series roster from
// games ordered most recent first. Resolved roster players get their Stats set;
// the result is keyed by player key either way.
func CalculatePlayerStats(series *Series, games []*Game) map[string]*Stats {
	out := make(map[string]*Stats, len(series.Players))
	for i := range series.Players {
		ref := &series.Players[i]
		st := playerStats(ref.Key(), games)
		out[ref.Key()] = st
		if p, ok := ref.Get(); ok {
			p.Stats = st
		}
	}
	return out
}

func playerStats(key string, games []*Game) *Stats {
	st := &Stats{}
	ended := false
	for _, g := range games {
		played, won := g.outcome(key)
		if !played {
			continue
		}
		st.Games++
		if won {
			st.Wins++
		}
		if ended {
			continue
		}
		switch {
		case won && st.Streak >= 0:
			st.Streak++
		case !won && st.Streak <= 0:
			st.Streak--
		default:
			ended = true
		}
	}
	st.WinPercentage = WinPercentage(st.Wins, st.Games)
	return st
}
