package model

import (
	"encoding/json"
)

// registryID is the record listing the key of every series ever saved.
const (
	registryID    = "serieslist"
	registryField = "series_keys"
)

type Series struct {
	Base
	Name string `dynamodbav:"name" json:"name"`
	// Players only ever grows, through Models.AddToSeries.
	Players []Ref[*Player] `dynamodbav:"players,omitempty" json:"players"`
}

// NewSeries accepts a bare name or a "series:" key.
func NewSeries(name string) (*Series, error) {
	s := &Series{Name: seriesSchema.ID(name), Players: []Ref[*Player]{}}
	if err := seriesSchema.checkRequired(func(string) bool { return s.Name != "" }); err != nil {
		return nil, err
	}
	return s, nil
}

func (*Series) Schema() *Schema {
	return &seriesSchema
}

func (s *Series) Key() string {
	return seriesSchema.Key(s.Name)
}

func (s *Series) references() []reference {
	return refList(s.Players)
}

// PlayerKeys returns the roster as keys, resolved or not.
func (s *Series) PlayerKeys() []string {
	return refKeys(s.Players)
}

// HasPlayer reports whether the player key or bare name is on the roster.
func (s *Series) HasPlayer(player string) bool {
	key := playerSchema.Key(player)
	for _, r := range s.Players {
		if r.Key() == key {
			return true
		}
	}
	return false
}

// GamesPartition is the range table partition holding the series' games.
func (s *Series) GamesPartition() string {
	return gameSchema.Key(s.Name)
}

func (s *Series) MarshalJSON() ([]byte, error) {
	type series Series
	return json.Marshal(struct {
		Key string `json:"key"`
		*series
	}{s.Key(), (*series)(s)})
}
