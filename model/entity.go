package model

// Entity is implemented by *Player, *Series and *Game only.
type Entity interface {
	Schema() *Schema
	// Key is the fully prefixed identity of the entity.
	Key() string
	IsSaved() bool
	IsPopulated() bool

	base() *Base
	// references returns every reference slot of the entity, list elements included.
	references() []reference
}

// Base tracks what the entity knows about its storage state.
type Base struct {
	saved     bool
	populated bool
}

// IsSaved reports whether the entity is known to exist in storage.
func (b *Base) IsSaved() bool {
	return b.saved
}

// IsPopulated reports whether every reference has been resolved by Populate.
func (b *Base) IsPopulated() bool {
	return b.populated
}

func (b *Base) base() *Base {
	return b
}

// populateHook lets a kind derive in-memory state once its references are resolved.
type populateHook interface {
	afterPopulate()
}

func refList[E Entity](refs []Ref[E]) []reference {
	out := make([]reference, len(refs))
	for i := range refs {
		out[i] = &refs[i]
	}
	return out
}

func refKeys[E Entity](refs []Ref[E]) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Key()
	}
	return out
}
