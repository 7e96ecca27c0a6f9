package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"golang.org/x/sync/errgroup"
)

// Player counter attributes bumped after every game.
const (
	gamesCounter = "statNumberOfGames"
	winsCounter  = "statNumberOfWins"
)

func (m *Models) LoadPlayer(ctx context.Context, key string) (*Player, error) {
	p := &Player{}
	if err := m.Load(ctx, p, key); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Models) LoadSeries(ctx context.Context, key string) (*Series, error) {
	s := &Series{Players: []Ref[*Player]{}}
	if err := m.Load(ctx, s, key); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Models) LoadGame(ctx context.Context, key string) (*Game, error) {
	g := &Game{}
	if err := m.Load(ctx, g, key); err != nil {
		return nil, err
	}
	return g, nil
}

// NewGame is NewGame with a zero creation time taken from the Models clock.
func (m *Models) NewGame(p GameParams) (*Game, error) {
	if p.Range == 0 {
		p.Range = m.clock.Now().UnixMilli()
	}
	return NewGame(p)
}

// AddToSeries appends p to the roster of the named series. Adding a player
// twice leaves one entry.
func (m *Models) AddToSeries(ctx context.Context, p *Player, series string) error {
	if !p.IsSaved() {
		return NewError(NotSaved, "%s must be saved before joining a series", p.Key())
	}
	key := seriesSchema.Key(series)
	err := m.store.AppendToList(ctx, m.tables.Models, m.tables.Models.Key(key, nil), "players", p.Key())
	if errors.Is(err, kv.ErrItemMissing) {
		return notFound(key)
	}
	if err != nil {
		return fmt.Errorf("add %s to %s: %w", p.Key(), key, err)
	}
	return nil
}

// ListSeries returns the name of every registered series.
func (m *Models) ListSeries(ctx context.Context) ([]string, error) {
	rec, err := m.store.GetItem(ctx, m.tables.Models, m.tables.Models.Key(registryID, nil))
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	names := []string{}
	if rec == nil {
		return names, nil
	}
	var registry struct {
		Keys []string `dynamodbav:"series_keys"`
	}
	if err := attributevalue.UnmarshalMap(rec, &registry); err != nil {
		return nil, fmt.Errorf("decode series registry: %w", err)
	}
	for _, k := range registry.Keys {
		names = append(names, seriesSchema.ID(k))
	}
	return names, nil
}

// Games returns the games of s, most recent first unless q says otherwise, with
// every game fully populated.
func (m *Models) Games(ctx context.Context, s *Series, q kv.Query) ([]*Game, error) {
	m.log.Debug().Str("partition", s.GamesPartition()).Int("limit", q.Limit).Msg("querying games")
	recs, err := m.store.Query(ctx, m.tables.RangeModels, s.GamesPartition(), q)
	if err != nil {
		return nil, fmt.Errorf("games of %s: %w", s.Key(), err)
	}

	games := make([]*Game, len(recs))
	for i, rec := range recs {
		games[i] = &Game{}
		if err := decode(rec, games[i]); err != nil {
			return nil, err
		}
	}
	var g errgroup.Group
	for _, game := range games {
		g.Go(func() error {
			return m.Populate(ctx, game)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return games, nil
}

// UpdatePlayerCounters adds one game to every player of g and one win to every
// winner. Increments run in parallel and are not retried.
func (m *Models) UpdatePlayerCounters(ctx context.Context, g *Game) error {
	steps := map[string]map[string]int64{}
	for _, r := range g.Losers() {
		steps[r.Key()] = map[string]int64{gamesCounter: 1}
	}
	for _, r := range g.Winners() {
		steps[r.Key()] = map[string]int64{gamesCounter: 1, winsCounter: 1}
	}

	var eg errgroup.Group
	for key, step := range steps {
		eg.Go(func() error {
			_, err := m.store.IncrementFields(ctx, m.tables.Models, m.tables.Models.Key(key, nil), step)
			if err != nil {
				return fmt.Errorf("update counters of %s: %w", key, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// RecordGame checks that every referenced series and player exists, saves g
// and updates the player counters.
func (m *Models) RecordGame(ctx context.Context, g *Game) error {
	if err := m.Populate(ctx, g); err != nil {
		return err
	}
	if err := m.Save(ctx, g); err != nil {
		return err
	}
	m.log.Info().Str("game", g.String()).Msg("game recorded")
	return m.UpdatePlayerCounters(ctx, g)
}
