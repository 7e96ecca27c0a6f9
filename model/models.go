// Package model is the entity layer of the league: players, series and games
// stored as records that reference each other by key.
//
// References start out unresolved. Populate loads every referenced entity
// concurrently and recursively; Unpopulate collapses them back to keys. Saving
// always persists the collapsed form.
package model

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Models binds the entity kinds to a store.
type Models struct {
	store  kv.Store
	tables table.Tables
	clock  clockwork.Clock
	log    zerolog.Logger
}

type Option func(*Models)

func WithClock(c clockwork.Clock) Option {
	return func(m *Models) {
		m.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Models) {
		m.log = l
	}
}

func New(store kv.Store, tables table.Tables, opts ...Option) *Models {
	m := &Models{
		store:  store,
		tables: tables,
		clock:  clockwork.NewRealClock(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Models) tableFor(s *Schema) table.TableDefinition {
	if s.Range {
		return m.tables.RangeModels
	}
	return m.tables.Models
}

func (m *Models) primaryKey(s *Schema, key string) (table.PrimaryKey, error) {
	if !s.Range {
		return m.tables.Models.Key(key, nil), nil
	}
	partition, rng, err := SplitGameKey(key)
	if err != nil {
		return table.PrimaryKey{}, err
	}
	return m.tables.RangeModels.Key(partition, rng), nil
}

// Load fills e from the record stored under key, which may be a bare identifier.
func (m *Models) Load(ctx context.Context, e Entity, key string) error {
	s := e.Schema()
	key = s.Key(key)
	pk, err := m.primaryKey(s, key)
	if err != nil {
		return err
	}
	m.log.Debug().Str("key", key).Msg("loading")
	rec, err := m.store.GetItem(ctx, m.tableFor(s), pk)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if rec == nil {
		return notFound(key)
	}
	return decode(rec, e)
}

// decode copies the declared fields of rec onto e and marks it saved.
func decode(rec kv.Record, e Entity) error {
	s := e.Schema()
	fields := make(kv.Record, len(s.Fields))
	for _, f := range s.Fields {
		if v, ok := rec[f.Name]; ok {
			fields[f.Name] = v
		}
	}
	if err := attributevalue.UnmarshalMap(fields, e); err != nil {
		return fmt.Errorf("decode %s record: %w", s.Kind, err)
	}
	e.base().saved = true
	return nil
}

// Populate resolves every unresolved reference of e, loading and populating the
// referenced entities in parallel. References sharing a key share one instance.
// Entities that are referenced already but not yet populated are populated in
// place. On failure the references of e are left as they were.
func (m *Models) Populate(ctx context.Context, e Entity) error {
	pending := map[string][]reference{}
	var order []string
	nested := map[Entity]bool{}
	var nestedOrder []Entity
	for _, ref := range e.references() {
		if ref.IsResolved() {
			if obj := ref.entity(); !obj.IsPopulated() && !nested[obj] {
				nested[obj] = true
				nestedOrder = append(nestedOrder, obj)
			}
			continue
		}
		if _, ok := pending[ref.Key()]; !ok {
			order = append(order, ref.Key())
		}
		pending[ref.Key()] = append(pending[ref.Key()], ref)
	}

	loaded := make([]Entity, len(order))
	var g errgroup.Group
	for i, key := range order {
		target := pending[key][0].target()
		g.Go(func() error {
			if err := m.Load(ctx, target, key); err != nil {
				return err
			}
			if err := m.Populate(ctx, target); err != nil {
				return err
			}
			loaded[i] = target
			return nil
		})
	}
	for _, obj := range nestedOrder {
		g.Go(func() error {
			return m.Populate(ctx, obj)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("populate %s: %w", e.Key(), err)
	}

	for i, key := range order {
		for _, ref := range pending[key] {
			ref.resolve(loaded[i])
		}
	}
	e.base().populated = true
	if h, ok := e.(populateHook); ok {
		h.afterPopulate()
	}
	return nil
}

// Unpopulate collapses every resolved reference of e back to its key.
func Unpopulate(e Entity) {
	for _, ref := range e.references() {
		ref.collapse()
	}
	e.base().populated = false
}

// Serialize unpopulates e and returns its key and declared fields as a record.
func Serialize(e Entity) (kv.Record, error) {
	Unpopulate(e)
	rec, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", e.Key(), err)
	}
	out := make(kv.Record, len(rec)+1)
	for _, f := range e.Schema().Fields {
		if v, ok := rec[f.Name]; ok {
			out[f.Name] = v
		}
	}
	out["key"] = &types.AttributeValueMemberS{Value: e.Key()}
	return out, nil
}

type saveOptions struct {
	mode kv.PutMode
}

type SaveOption func(*saveOptions)

// WithPutMode replaces the default overwrite semantics of Save.
func WithPutMode(mode kv.PutMode) SaveOption {
	return func(o *saveOptions) {
		o.mode = mode
	}
}

// Save persists the collapsed form of e without its shallow fields, stamped with
// the modification time. e stays unpopulated afterwards.
func (m *Models) Save(ctx context.Context, e Entity, opts ...SaveOption) error {
	o := saveOptions{mode: kv.PutOverwrite}
	for _, opt := range opts {
		opt(&o)
	}

	rec, err := Serialize(e)
	if err != nil {
		return err
	}
	delete(rec, "key")
	for _, f := range e.Schema().Fields {
		if f.Shallow {
			delete(rec, f.Name)
		}
	}
	rec["modified"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(m.clock.Now().UnixMilli(), 10)}
	if _, ok := rec["id"]; !ok {
		rec["id"] = &types.AttributeValueMemberS{Value: e.Key()}
	}

	m.log.Debug().Str("key", e.Key()).Stringer("mode", o.mode).Msg("saving")
	if err := m.store.PutItem(ctx, m.tableFor(e.Schema()), rec, o.mode); err != nil {
		return fmt.Errorf("save %s: %w", e.Key(), err)
	}
	e.base().saved = true

	if s, ok := e.(*Series); ok {
		if err := m.register(ctx, s); err != nil {
			return fmt.Errorf("register %s: %w", s.Key(), err)
		}
	}
	return nil
}

// register adds the series to the registry, creating the registry record the
// first time. A concurrent creator winning that race gets one more append.
func (m *Models) register(ctx context.Context, s *Series) error {
	key := m.tables.Models.Key(registryID, nil)
	err := m.store.AppendToList(ctx, m.tables.Models, key, registryField, s.Key())
	if !errors.Is(err, kv.ErrItemMissing) {
		return err
	}

	m.log.Info().Str("series", s.Key()).Msg("creating series registry")
	err = m.store.PutItem(ctx, m.tables.Models, kv.Record{
		"id":          &types.AttributeValueMemberS{Value: registryID},
		registryField: &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: s.Key()}}},
		"modified":    &types.AttributeValueMemberN{Value: strconv.FormatInt(m.clock.Now().UnixMilli(), 10)},
	}, kv.PutCreate)
	if errors.Is(err, kv.ErrConditionFailed) {
		return m.store.AppendToList(ctx, m.tables.Models, key, registryField, s.Key())
	}
	return err
}
