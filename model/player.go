package model

import (
	"encoding/json"
	"strings"
)

type Player struct {
	Base
	Name string `dynamodbav:"name" json:"name"`
	// Lifetime counters, maintained by atomic increments after each game.
	StatNumberOfGames int64 `dynamodbav:"statNumberOfGames" json:"statNumberOfGames"`
	StatNumberOfWins  int64 `dynamodbav:"statNumberOfWins" json:"statNumberOfWins"`
	// Stats is never persisted.
	Stats *Stats `dynamodbav:"stats,omitempty" json:"stats,omitempty"`
}

// NewPlayer accepts a bare name or a "player:" key.
func NewPlayer(name string) (*Player, error) {
	p := &Player{Name: playerSchema.ID(name)}
	if err := playerSchema.checkRequired(func(string) bool { return p.Name != "" }); err != nil {
		return nil, err
	}
	return p, nil
}

func (*Player) Schema() *Schema {
	return &playerSchema
}

// Username is the case-insensitive identity of the player.
func (p *Player) Username() string {
	return strings.ToLower(p.Name)
}

func (p *Player) Key() string {
	return playerSchema.Key(p.Username())
}

func (p *Player) references() []reference {
	return nil
}

// afterPopulate fills in lifetime stats from the persisted counters when
// nothing more specific has been computed.
func (p *Player) afterPopulate() {
	if p.Stats != nil {
		return
	}
	p.Stats = &Stats{
		Games:         int(p.StatNumberOfGames),
		Wins:          int(p.StatNumberOfWins),
		WinPercentage: WinPercentage(int(p.StatNumberOfWins), int(p.StatNumberOfGames)),
	}
}

func (p *Player) MarshalJSON() ([]byte, error) {
	type player Player
	return json.Marshal(struct {
		Key string `json:"key"`
		*player
	}{p.Key(), (*player)(p)})
}
