package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/acksell/foosball/dynamodb/ddbstore"
	"github.com/acksell/foosball/dynamodb/table"
	"github.com/acksell/foosball/kv"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTables = table.ForDeployment("test")
	epoch      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *ddbstore.Store {
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, testTables.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func newTestModels(t *testing.T) (*Models, *ddbstore.Store, *clockwork.FakeClock) {
	store := newTestStore(t)
	clock := clockwork.NewFakeClockAt(epoch)
	return New(store, testTables, WithClock(clock)), store, clock
}

func goals(n int) *int {
	return &n
}

func mustSavePlayer(t *testing.T, m *Models, name string) *Player {
	t.Helper()
	p, err := NewPlayer(name)
	require.NoError(t, err)
	require.NoError(t, m.Save(context.Background(), p))
	return p
}

func mustSaveSeries(t *testing.T, m *Models, name string, players ...*Player) *Series {
	t.Helper()
	ctx := context.Background()
	s, err := NewSeries(name)
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, s))
	for _, p := range players {
		require.NoError(t, m.AddToSeries(ctx, p, name))
	}
	return s
}

// mustRecordGame records a game one millisecond after the previous one.
func mustRecordGame(t *testing.T, m *Models, clock *clockwork.FakeClock, p GameParams) *Game {
	t.Helper()
	clock.Advance(time.Millisecond)
	g, err := m.NewGame(p)
	require.NoError(t, err)
	require.NoError(t, m.RecordGame(context.Background(), g))
	return g
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestModels(t)
	mustSavePlayer(t, m, "Foobar")

	t.Run("missing key is NotFound", func(t *testing.T) {
		err := m.Load(ctx, &Player{}, "nobody")
		require.ErrorIs(t, err, ErrNotFound)
		var merr *Error
		require.ErrorAs(t, err, &merr)
		require.Equal(t, 404, merr.StatusCode())
	})

	t.Run("bare and prefixed keys", func(t *testing.T) {
		for _, key := range []string{"foobar", "player:foobar", "Foobar", "FOOBAR", "player:FooBar"} {
			p := &Player{}
			require.NoError(t, m.Load(ctx, p, key))
			require.Equal(t, "Foobar", p.Name)
			require.True(t, p.IsSaved())
		}
	})

	t.Run("undeclared fields are ignored", func(t *testing.T) {
		require.NoError(t, store.PutItem(ctx, testTables.Models, kv.Record{
			"id":   &types.AttributeValueMemberS{Value: "player:extra"},
			"name": &types.AttributeValueMemberS{Value: "Extra"},
			"junk": &types.AttributeValueMemberS{Value: "x"},
		}, kv.PutOverwrite))
		p := &Player{}
		require.NoError(t, m.Load(ctx, p, "extra"))
		require.Equal(t, "Extra", p.Name)
	})

	t.Run("malformed game key", func(t *testing.T) {
		err := m.Load(ctx, &Game{}, "bar")
		require.ErrorIs(t, err, ErrInvalidParam)
	})
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestModels(t)

	t.Run("persists collapsed record without shallow fields", func(t *testing.T) {
		p, err := NewPlayer("Foobar")
		require.NoError(t, err)
		p.Stats = &Stats{Games: 3}
		require.NoError(t, m.Save(ctx, p))
		require.True(t, p.IsSaved())

		rec, err := store.GetItem(ctx, testTables.Models, testTables.Models.Key("player:foobar", nil))
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "player:foobar"}, rec["id"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "Foobar"}, rec["name"])
		assert.Equal(t, &types.AttributeValueMemberN{Value: "1772366400000"}, rec["modified"])
		assert.NotContains(t, rec, "stats")
		assert.NotContains(t, rec, "key")
	})

	t.Run("create mode conflicts", func(t *testing.T) {
		p, err := NewPlayer("foobar")
		require.NoError(t, err)
		err = m.Save(ctx, p, WithPutMode(kv.PutCreate))
		require.ErrorIs(t, err, kv.ErrConditionFailed)
		require.False(t, p.IsSaved())
	})

	t.Run("ignore existing keeps counters", func(t *testing.T) {
		_, err := store.IncrementFields(ctx, testTables.Models, testTables.Models.Key("player:foobar", nil), map[string]int64{"statNumberOfGames": 4})
		require.NoError(t, err)
		p, err := NewPlayer("foobar")
		require.NoError(t, err)
		require.NoError(t, m.Save(ctx, p, WithPutMode(kv.PutCreateIgnoreExisting)))

		loaded, err := m.LoadPlayer(ctx, "foobar")
		require.NoError(t, err)
		require.Equal(t, int64(4), loaded.StatNumberOfGames)
		require.Equal(t, "Foobar", loaded.Name)
	})

	t.Run("save leaves the entity unpopulated", func(t *testing.T) {
		p := mustSavePlayer(t, m, "Other")
		s := mustSaveSeries(t, m, "bar", p)
		s, err := m.LoadSeries(ctx, s.Key())
		require.NoError(t, err)
		require.NoError(t, m.Populate(ctx, s))
		require.True(t, s.IsPopulated())

		require.NoError(t, m.Save(ctx, s))
		require.False(t, s.IsPopulated())
		require.False(t, s.Players[0].IsResolved())
		require.Equal(t, "player:other", s.Players[0].Key())
	})
}

func TestSerialize(t *testing.T) {
	g, err := NewGame(GameParams{
		Series: "bar", TeamAway: "MTL", TeamHome: "CBJ",
		GoalsAway: goals(0), GoalsHome: goals(2),
		PlayersAway: []string{"A"}, PlayersHome: []string{"player:b"},
		Range: 42,
	})
	require.NoError(t, err)
	a, err := NewPlayer("A")
	require.NoError(t, err)
	g.PlayersAway[0] = Resolved(a)

	rec, err := Serialize(g)
	require.NoError(t, err)
	require.False(t, g.PlayersAway[0].IsResolved())
	assert.Equal(t, &types.AttributeValueMemberS{Value: "game:bar:42"}, rec["key"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "game:bar"}, rec["id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "series:bar"}, rec["series"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, rec["goalsAway"])
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{
		&types.AttributeValueMemberS{Value: "player:a"},
	}}, rec["playersAway"])
	assert.Equal(t, &types.AttributeValueMemberL{Value: []types.AttributeValue{
		&types.AttributeValueMemberS{Value: "player:b"},
	}}, rec["playersHome"])
	for name := range rec {
		if name == "key" {
			continue
		}
		_, ok := gameSchema.Field(name)
		assert.True(t, ok, "serialized undeclared field %q", name)
	}
}

// gateStore holds the first n GetItem calls until all n are in flight.
type gateStore struct {
	kv.Store
	mu      sync.Mutex
	n       int
	arrived int
	release chan struct{}
}

func newGateStore(s kv.Store, n int) *gateStore {
	return &gateStore{Store: s, n: n, release: make(chan struct{})}
}

func (g *gateStore) GetItem(ctx context.Context, t table.TableDefinition, key table.PrimaryKey) (kv.Record, error) {
	g.mu.Lock()
	gated := g.arrived < g.n
	if gated {
		g.arrived++
		if g.arrived == g.n {
			close(g.release)
		}
	}
	g.mu.Unlock()
	if gated {
		select {
		case <-g.release:
		case <-time.After(2 * time.Second):
			return nil, errors.New("loads were not issued in parallel")
		}
	}
	return g.Store.GetItem(ctx, t, key)
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newTestModels(t)
	foobar := mustSavePlayer(t, m, "Foobar")
	oolia := mustSavePlayer(t, m, "Ööliä")
	mustSaveSeries(t, m, "bar", foobar, oolia)
	recorded := mustRecordGame(t, m, clock, GameParams{
		Series: "bar", TeamAway: "MTL", TeamHome: "CBJ",
		GoalsAway: goals(1), GoalsHome: goals(2),
		PlayersAway: []string{"Ööliä"}, PlayersHome: []string{"Foobar"},
	})

	t.Run("resolves references recursively", func(t *testing.T) {
		g, err := m.LoadGame(ctx, recorded.Key())
		require.NoError(t, err)
		require.NoError(t, m.Populate(ctx, g))
		require.True(t, g.IsPopulated())

		series, ok := g.Series.Get()
		require.True(t, ok)
		require.True(t, series.IsPopulated())
		require.Len(t, series.Players, 2)
		for _, r := range series.Players {
			p, ok := r.Get()
			require.True(t, ok)
			require.True(t, p.IsSaved())
		}
		away, ok := g.PlayersAway[0].Get()
		require.True(t, ok)
		require.Equal(t, "Ööliä", away.Name)
		home, ok := g.PlayersHome[0].Get()
		require.True(t, ok)
		require.Equal(t, "Foobar", home.Name)
	})

	t.Run("one level loads in parallel", func(t *testing.T) {
		g, err := m.LoadGame(ctx, recorded.Key())
		require.NoError(t, err)
		gated := New(newGateStore(store, 3), testTables)
		require.NoError(t, gated.Populate(ctx, g))
	})

	t.Run("round trip restores keys", func(t *testing.T) {
		g, err := m.LoadGame(ctx, recorded.Key())
		require.NoError(t, err)
		before, err := Serialize(g)
		require.NoError(t, err)

		require.NoError(t, m.Populate(ctx, g))
		Unpopulate(g)
		require.False(t, g.IsPopulated())
		after, err := Serialize(g)
		require.NoError(t, err)
		require.Equal(t, before, after)
	})

	t.Run("unpopulate is idempotent", func(t *testing.T) {
		g, err := m.LoadGame(ctx, recorded.Key())
		require.NoError(t, err)
		Unpopulate(g)
		Unpopulate(g)
		require.Equal(t, "series:bar", g.Series.Key())
		require.Equal(t, "player:ööliä", g.PlayersAway[0].Key())
	})

	t.Run("populate is a no-op on resolved references", func(t *testing.T) {
		g, err := m.LoadGame(ctx, recorded.Key())
		require.NoError(t, err)
		require.NoError(t, m.Populate(ctx, g))
		series, _ := g.Series.Get()
		require.NoError(t, m.Populate(ctx, g))
		again, _ := g.Series.Get()
		require.Same(t, series, again)
	})

	t.Run("recurses into resolved but unpopulated references", func(t *testing.T) {
		g, err := m.LoadGame(ctx, recorded.Key())
		require.NoError(t, err)
		series, err := m.LoadSeries(ctx, "bar")
		require.NoError(t, err)
		require.False(t, series.IsPopulated())
		g.Series = Resolved(series)

		require.NoError(t, m.Populate(ctx, g))
		got, ok := g.Series.Get()
		require.True(t, ok)
		require.Same(t, series, got)
		require.True(t, series.IsPopulated())
		require.Len(t, series.Players, 2)
		for _, r := range series.Players {
			require.True(t, r.IsResolved(), r.Key())
		}
	})

	t.Run("missing reference fails and leaves entity untouched", func(t *testing.T) {
		g, err := m.NewGame(GameParams{
			Series: "bar", TeamAway: "MTL", TeamHome: "CBJ",
			GoalsAway: goals(3), GoalsHome: goals(2),
			PlayersAway: []string{"Foobar"}, PlayersHome: []string{"ghost"},
		})
		require.NoError(t, err)
		err = m.Populate(ctx, g)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorContains(t, err, "player:ghost")
		require.False(t, g.IsPopulated())
		require.False(t, g.Series.IsResolved())
		require.False(t, g.PlayersAway[0].IsResolved())
	})
}

func TestModelsNewGame(t *testing.T) {
	m, _, clock := newTestModels(t)
	params := GameParams{
		Series: "bar", TeamAway: "MTL", TeamHome: "CBJ",
		GoalsAway: goals(1), GoalsHome: goals(2),
		PlayersAway: []string{"a"}, PlayersHome: []string{"b"},
	}

	t.Run("zero range comes from the clock", func(t *testing.T) {
		clock.Advance(time.Second)
		g, err := m.NewGame(params)
		require.NoError(t, err)
		require.Equal(t, clock.Now().UnixMilli(), g.Range)
	})

	t.Run("explicit range is kept", func(t *testing.T) {
		p := params
		p.Range = 42
		g, err := m.NewGame(p)
		require.NoError(t, err)
		require.Equal(t, int64(42), g.Range)
	})
}

func TestAddToSeries(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestModels(t)
	mustSaveSeries(t, m, "bar")

	t.Run("requires a saved player", func(t *testing.T) {
		p, err := NewPlayer("unsaved")
		require.NoError(t, err)
		err = m.AddToSeries(ctx, p, "bar")
		require.ErrorIs(t, err, ErrNotSaved)
		require.Equal(t, 500, err.(*Error).StatusCode())
	})

	t.Run("adding twice keeps one entry", func(t *testing.T) {
		p := mustSavePlayer(t, m, "Foobar")
		require.NoError(t, m.AddToSeries(ctx, p, "bar"))
		require.NoError(t, m.AddToSeries(ctx, p, "series:bar"))

		s, err := m.LoadSeries(ctx, "bar")
		require.NoError(t, err)
		require.Equal(t, []string{"player:foobar"}, s.PlayerKeys())
		require.True(t, s.HasPlayer("Foobar"))
	})

	t.Run("mixed-case names resolve to one player", func(t *testing.T) {
		mustSavePlayer(t, m, "MiXed")
		mustSaveSeries(t, m, "league")

		p, err := m.LoadPlayer(ctx, "MIXED")
		require.NoError(t, err)
		require.Equal(t, "MiXed", p.Name)
		require.Equal(t, "player:mixed", p.Key())
		require.NoError(t, m.AddToSeries(ctx, p, "league"))

		again, err := m.LoadPlayer(ctx, "mixed")
		require.NoError(t, err)
		require.NoError(t, m.AddToSeries(ctx, again, "series:league"))

		s, err := m.LoadSeries(ctx, "league")
		require.NoError(t, err)
		require.Equal(t, []string{"player:mixed"}, s.PlayerKeys())
		for _, name := range []string{"MiXed", "mixed", "MIXED", "player:Mixed"} {
			require.True(t, s.HasPlayer(name), name)
		}
		require.False(t, s.HasPlayer("mixe"))
	})

	t.Run("unknown series", func(t *testing.T) {
		p := mustSavePlayer(t, m, "Lonely")
		err := m.AddToSeries(ctx, p, "nowhere")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSeriesRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("empty without registry", func(t *testing.T) {
		m, _, _ := newTestModels(t)
		names, err := m.ListSeries(ctx)
		require.NoError(t, err)
		require.NotNil(t, names)
		require.Empty(t, names)
	})

	t.Run("every saved series is listed once", func(t *testing.T) {
		m, _, _ := newTestModels(t)
		mustSaveSeries(t, m, "bar")
		mustSaveSeries(t, m, "baz")
		mustSaveSeries(t, m, "bar")

		names, err := m.ListSeries(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"bar", "baz"}, names)
	})

	t.Run("concurrent first saves all register", func(t *testing.T) {
		m, _, _ := newTestModels(t)
		var wg sync.WaitGroup
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s, err := NewSeries(name)
				assert.NoError(t, err)
				assert.NoError(t, m.Save(ctx, s))
			}()
		}
		wg.Wait()

		names, err := m.ListSeries(ctx)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, names)
	})
}

func TestGames(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestModels(t)
	a := mustSavePlayer(t, m, "a")
	b := mustSavePlayer(t, m, "b")
	series := mustSaveSeries(t, m, "bar", a, b)
	mustSaveSeries(t, m, "other", a, b)

	var recorded []*Game
	for i := range 4 {
		recorded = append(recorded, mustRecordGame(t, m, clock, GameParams{
			Series: "bar", TeamAway: "A", TeamHome: "B",
			GoalsAway: goals(i + 1), GoalsHome: goals(0),
			PlayersAway: []string{"a"}, PlayersHome: []string{"b"},
		}))
	}
	mustRecordGame(t, m, clock, GameParams{
		Series: "other", TeamAway: "A", TeamHome: "B",
		GoalsAway: goals(1), GoalsHome: goals(0),
		PlayersAway: []string{"a"}, PlayersHome: []string{"b"},
	})

	keys := func(games []*Game) []string {
		out := make([]string, len(games))
		for i, g := range games {
			out[i] = g.Key()
		}
		return out
	}

	t.Run("most recent first, populated", func(t *testing.T) {
		games, err := m.Games(ctx, series, kv.Query{})
		require.NoError(t, err)
		require.Equal(t, []string{recorded[3].Key(), recorded[2].Key(), recorded[1].Key(), recorded[0].Key()}, keys(games))
		for _, g := range games {
			require.True(t, g.IsPopulated())
			require.True(t, g.Series.IsResolved())
		}
	})

	t.Run("limit", func(t *testing.T) {
		games, err := m.Games(ctx, series, kv.Query{Limit: 2})
		require.NoError(t, err)
		require.Equal(t, []string{recorded[3].Key(), recorded[2].Key()}, keys(games))
	})

	t.Run("time window", func(t *testing.T) {
		games, err := m.Games(ctx, series, kv.Query{MoreThan: kv.Int64(recorded[0].Range), LessThan: kv.Int64(recorded[3].Range)})
		require.NoError(t, err)
		require.Equal(t, []string{recorded[2].Key(), recorded[1].Key()}, keys(games))
	})

	t.Run("no games", func(t *testing.T) {
		empty := mustSaveSeries(t, m, "empty")
		games, err := m.Games(ctx, empty, kv.Query{})
		require.NoError(t, err)
		require.NotNil(t, games)
		require.Empty(t, games)
	})
}

func TestPlayerCounters(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestModels(t)
	a := mustSavePlayer(t, m, "a")
	b := mustSavePlayer(t, m, "b")
	c := mustSavePlayer(t, m, "c")
	mustSaveSeries(t, m, "bar", a, b, c)

	mustRecordGame(t, m, clock, GameParams{
		Series: "bar", TeamAway: "A", TeamHome: "B",
		GoalsAway: goals(5), GoalsHome: goals(3),
		PlayersAway: []string{"a", "c"}, PlayersHome: []string{"b"},
	})
	mustRecordGame(t, m, clock, GameParams{
		Series: "bar", TeamAway: "A", TeamHome: "B",
		GoalsAway: goals(1), GoalsHome: goals(3),
		PlayersAway: []string{"a"}, PlayersHome: []string{"b"},
	})

	for _, tt := range []struct {
		name        string
		games, wins int64
	}{
		{"a", 2, 1},
		{"b", 2, 1},
		{"c", 1, 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.LoadPlayer(ctx, tt.name)
			require.NoError(t, err)
			require.Equal(t, tt.games, p.StatNumberOfGames)
			require.Equal(t, tt.wins, p.StatNumberOfWins)

			require.NoError(t, m.Populate(ctx, p))
			require.Equal(t, &Stats{
				Games:         int(tt.games),
				Wins:          int(tt.wins),
				WinPercentage: WinPercentage(int(tt.wins), int(tt.games)),
			}, p.Stats)
		})
	}
}

func TestRecordGameRejectsUnknownPlayers(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestModels(t)
	mustSavePlayer(t, m, "a")
	mustSaveSeries(t, m, "bar")

	g, err := m.NewGame(GameParams{
		Series: "bar", TeamAway: "A", TeamHome: "B",
		GoalsAway: goals(1), GoalsHome: goals(0),
		PlayersAway: []string{"a"}, PlayersHome: []string{"nobody"},
	})
	require.NoError(t, err)
	require.ErrorIs(t, m.RecordGame(ctx, g), ErrNotFound)

	recs, err := store.Query(ctx, testTables.RangeModels, "game:bar", kv.Query{})
	require.NoError(t, err)
	require.Empty(t, recs)
	p, err := m.LoadPlayer(ctx, "a")
	require.NoError(t, err)
	require.Zero(t, p.StatNumberOfGames)
}

func TestLeagueScenario(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestModels(t)

	foobar := mustSavePlayer(t, m, "Foobar")
	oolia := mustSavePlayer(t, m, "Ööliä")
	mustSaveSeries(t, m, "bar", foobar, oolia)

	recorded := mustRecordGame(t, m, clock, GameParams{
		Series: "bar", TeamAway: "MTL", TeamHome: "CBJ",
		GoalsAway: goals(1), GoalsHome: goals(2),
		PlayersAway: []string{"Ööliä"}, PlayersHome: []string{"Foobar"},
	})

	g, err := m.LoadGame(ctx, recorded.Key())
	require.NoError(t, err)
	require.NoError(t, m.Populate(ctx, g))
	away, _ := g.PlayersAway[0].Get()
	home, _ := g.PlayersHome[0].Get()
	require.Equal(t, "Ööliä", away.Name)
	require.Equal(t, "Foobar", home.Name)

	series, err := m.LoadSeries(ctx, "bar")
	require.NoError(t, err)
	require.NoError(t, m.Populate(ctx, series))
	games, err := m.Games(ctx, series, kv.Query{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, games)
	require.Equal(t, recorded.Key(), games[0].Key())

	stats := CalculatePlayerStats(series, games)
	require.Equal(t, 1, stats["player:foobar"].Wins)
	require.Equal(t, 1, stats["player:foobar"].Streak)
	require.Equal(t, 0, stats["player:ööliä"].Wins)
	require.Equal(t, -1, stats["player:ööliä"].Streak)

	p, _ := series.Players[0].Get()
	require.Same(t, stats[p.Key()], p.Stats)
}
