package model

import (
	"strings"
)

// Kind names an entity kind and doubles as its key prefix.
type Kind string

const (
	PlayerKind Kind = "player"
	SeriesKind Kind = "series"
	GameKind   Kind = "game"
)

const keySeparator = ":"

type FieldType int

const (
	StringField FieldType = iota
	NumberField
	ObjectField
	// RefField holds one reference to an entity of Field.Ref.
	RefField
	// RefListField holds an ordered list of references to entities of Field.Ref.
	RefListField
)

type Field struct {
	Name string
	Type FieldType
	// Ref is the referenced kind of RefField and RefListField fields.
	Ref      Kind
	Required bool
	// Shallow fields are computed in memory and never persisted.
	Shallow bool
}

// Schema is the static description of an entity kind.
type Schema struct {
	Kind   Kind
	Fields []Field
	// Range kinds live in the range table, keyed "<partition>:<sort>".
	Range bool

	// normalizeID canonicalizes the identifier part of a key. Nil keeps it as given.
	normalizeID func(id string) string
	newEntity   func() Entity
}

func (s *Schema) Prefix() string {
	return string(s.Kind) + keySeparator
}

// Key prefixes id with the kind prefix unless it already carries it, and
// normalizes the identifier part.
func (s *Schema) Key(id string) string {
	id = s.ID(id)
	if s.normalizeID != nil {
		id = s.normalizeID(id)
	}
	return s.Prefix() + id
}

// ID strips the kind prefix from key.
func (s *Schema) ID(key string) string {
	return strings.TrimPrefix(key, s.Prefix())
}

func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// checkRequired returns the first required field, in declaration order, that
// present reports as missing.
func (s *Schema) checkRequired(present func(field string) bool) error {
	for _, f := range s.Fields {
		if f.Required && !present(f.Name) {
			return requiredPropertyMissing(s.Kind, f.Name)
		}
	}
	return nil
}

var playerSchema = Schema{
	Kind: PlayerKind,
	Fields: []Field{
		{Name: "name", Type: StringField, Required: true},
		{Name: "statNumberOfGames", Type: NumberField},
		{Name: "statNumberOfWins", Type: NumberField},
		{Name: "stats", Type: ObjectField, Shallow: true},
	},
	// Player identity is the lowercased name.
	normalizeID: strings.ToLower,
	newEntity:   func() Entity { return &Player{} },
}

var seriesSchema = Schema{
	Kind: SeriesKind,
	Fields: []Field{
		{Name: "name", Type: StringField, Required: true},
		{Name: "players", Type: RefListField, Ref: PlayerKind},
	},
	newEntity: func() Entity { return &Series{Players: []Ref[*Player]{}} },
}

var gameSchema = Schema{
	Kind:  GameKind,
	Range: true,
	Fields: []Field{
		{Name: "id", Type: StringField},
		{Name: "range", Type: NumberField},
		{Name: "series", Type: RefField, Ref: SeriesKind, Required: true},
		{Name: "teamAway", Type: StringField, Required: true},
		{Name: "teamHome", Type: StringField, Required: true},
		{Name: "goalsAway", Type: NumberField, Required: true},
		{Name: "goalsHome", Type: NumberField, Required: true},
		{Name: "playersAway", Type: RefListField, Ref: PlayerKind, Required: true},
		{Name: "playersHome", Type: RefListField, Ref: PlayerKind, Required: true},
	},
	newEntity: func() Entity { return &Game{} },
}

// Schemas lists every entity kind.
func Schemas() []*Schema {
	return []*Schema{&playerSchema, &seriesSchema, &gameSchema}
}
