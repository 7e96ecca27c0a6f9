package model

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Ref is a reference field: either Unresolved, holding only the key of the
// referenced entity, or Resolved, holding the loaded entity itself.
type Ref[E Entity] struct {
	key      string
	obj      E
	resolved bool
}

var (
	_ attributevalue.Marshaler   = Ref[*Player]{}
	_ attributevalue.Unmarshaler = &Ref[*Player]{}
	_ json.Marshaler             = Ref[*Player]{}
)

func schemaOf[E Entity]() *Schema {
	var zero E
	return zero.Schema()
}

// Unresolved references the entity with the given key or bare identifier.
func Unresolved[E Entity](key string) Ref[E] {
	return Ref[E]{key: schemaOf[E]().Key(key)}
}

// Resolved references e directly.
func Resolved[E Entity](e E) Ref[E] {
	return Ref[E]{obj: e, resolved: true}
}

func (r Ref[E]) Key() string {
	if r.resolved {
		return r.obj.Key()
	}
	return r.key
}

func (r Ref[E]) IsResolved() bool {
	return r.resolved
}

// Get returns the referenced entity if the reference is resolved.
func (r Ref[E]) Get() (E, bool) {
	return r.obj, r.resolved
}

func (r Ref[E]) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: r.Key()}, nil
}

func (r *Ref[E]) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("%s reference must be a string, got %T", schemaOf[E]().Kind, av)
	}
	*r = Unresolved[E](s.Value)
	return nil
}

// MarshalJSON renders a resolved reference as the nested entity and an
// unresolved one as its key.
func (r Ref[E]) MarshalJSON() ([]byte, error) {
	if r.resolved {
		return json.Marshal(r.obj)
	}
	return json.Marshal(r.key)
}

// reference is the kind-agnostic view of a *Ref used by Populate and Unpopulate.
type reference interface {
	Key() string
	IsResolved() bool
	target() Entity
	// entity returns the referenced entity of a resolved reference.
	entity() Entity
	resolve(Entity)
	collapse()
}

func (r *Ref[E]) target() Entity {
	return schemaOf[E]().newEntity()
}

func (r *Ref[E]) entity() Entity {
	return r.obj
}

func (r *Ref[E]) resolve(e Entity) {
	*r = Resolved(e.(E))
}

func (r *Ref[E]) collapse() {
	if r.resolved {
		*r = Ref[E]{key: r.obj.Key()}
	}
}
