package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Game is a finished match between two rosters. Games of one series share the
// range table partition "game:<series>" and are ordered by creation time.
type Game struct {
	Base
	ID    string `dynamodbav:"id" json:"id"`
	Range int64  `dynamodbav:"range" json:"range"`

	Series      Ref[*Series]   `dynamodbav:"series" json:"series"`
	TeamAway    string         `dynamodbav:"teamAway" json:"teamAway"`
	TeamHome    string         `dynamodbav:"teamHome" json:"teamHome"`
	GoalsAway   int            `dynamodbav:"goalsAway" json:"goalsAway"`
	GoalsHome   int            `dynamodbav:"goalsHome" json:"goalsHome"`
	PlayersAway []Ref[*Player] `dynamodbav:"playersAway" json:"playersAway"`
	PlayersHome []Ref[*Player] `dynamodbav:"playersHome" json:"playersHome"`
}

// GameParams is the input for a new game. Nil goals or rosters count as missing;
// an empty roster does not.
type GameParams struct {
	Series      string   `json:"series"`
	TeamAway    string   `json:"teamAway"`
	TeamHome    string   `json:"teamHome"`
	GoalsAway   *int     `json:"goalsAway"`
	GoalsHome   *int     `json:"goalsHome"`
	PlayersAway []string `json:"playersAway"`
	PlayersHome []string `json:"playersHome"`
	// Range is the creation time in milliseconds. Models.NewGame fills in a zero
	// Range from its clock; NewGame requires it.
	Range int64 `json:"range,omitempty"`
}

func (p GameParams) has(field string) bool {
	switch field {
	case "series":
		return p.Series != ""
	case "teamAway":
		return p.TeamAway != ""
	case "teamHome":
		return p.TeamHome != ""
	case "goalsAway":
		return p.GoalsAway != nil
	case "goalsHome":
		return p.GoalsHome != nil
	case "playersAway":
		return p.PlayersAway != nil
	case "playersHome":
		return p.PlayersHome != nil
	default:
		return true
	}
}

// NewGame validates p and builds an unsaved game. Draws are rejected.
// p.Range must be set; use Models.NewGame to stamp it with the current time.
func NewGame(p GameParams) (*Game, error) {
	if err := gameSchema.checkRequired(p.has); err != nil {
		return nil, err
	}
	if *p.GoalsAway == *p.GoalsHome {
		return nil, NewError(InvalidParam, "game: goalsAway and goalsHome are both %d, draws are not allowed", *p.GoalsAway)
	}
	if p.Range <= 0 {
		return nil, NewError(InvalidParam, "game: range must be a positive creation time in ms, got %d", p.Range)
	}

	series := Unresolved[*Series](p.Series)
	g := &Game{
		ID:          gameSchema.Key(seriesSchema.ID(series.Key())),
		Range:       p.Range,
		Series:      series,
		TeamAway:    p.TeamAway,
		TeamHome:    p.TeamHome,
		GoalsAway:   *p.GoalsAway,
		GoalsHome:   *p.GoalsHome,
		PlayersAway: playerRefs(p.PlayersAway),
		PlayersHome: playerRefs(p.PlayersHome),
	}
	return g, nil
}

func playerRefs(names []string) []Ref[*Player] {
	refs := make([]Ref[*Player], len(names))
	for i, n := range names {
		refs[i] = Unresolved[*Player](n)
	}
	return refs
}

func (*Game) Schema() *Schema {
	return &gameSchema
}

// Key is "game:<series>:<range>".
func (g *Game) Key() string {
	return g.ID + keySeparator + strconv.FormatInt(g.Range, 10)
}

func (g *Game) references() []reference {
	refs := []reference{&g.Series}
	refs = append(refs, refList(g.PlayersAway)...)
	return append(refs, refList(g.PlayersHome)...)
}

// Winners is the roster that scored more goals.
func (g *Game) Winners() []Ref[*Player] {
	if g.GoalsAway > g.GoalsHome {
		return g.PlayersAway
	}
	return g.PlayersHome
}

func (g *Game) Losers() []Ref[*Player] {
	if g.GoalsAway > g.GoalsHome {
		return g.PlayersHome
	}
	return g.PlayersAway
}

// outcome reports whether the player with key took part and whether they won.
func (g *Game) outcome(key string) (played, won bool) {
	for _, r := range g.Winners() {
		if r.Key() == key {
			return true, true
		}
	}
	for _, r := range g.Losers() {
		if r.Key() == key {
			return true, false
		}
	}
	return false, false
}

// SplitGameKey parses "game:<series>:<range>", or "<series>:<range>", into the
// range table partition and sort key.
func SplitGameKey(key string) (partition string, rng int64, err error) {
	id := gameSchema.ID(key)
	i := strings.LastIndex(id, keySeparator)
	if i <= 0 {
		return "", 0, NewError(InvalidParam, "game key %q must look like <series>:<range>", key)
	}
	rng, err = strconv.ParseInt(id[i+1:], 10, 64)
	if err != nil {
		return "", 0, NewError(InvalidParam, "game key %q has an invalid range", key)
	}
	return gameSchema.Key(id[:i]), rng, nil
}

func (g *Game) MarshalJSON() ([]byte, error) {
	type game Game
	return json.Marshal(struct {
		Key string `json:"key"`
		*game
	}{g.Key(), (*game)(g)})
}

func (g *Game) String() string {
	return fmt.Sprintf("%s %s %d-%d %s", g.Key(), g.TeamAway, g.GoalsAway, g.GoalsHome, g.TeamHome)
}
