package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/acksell/foosball/auth"
	"github.com/acksell/foosball/kv"
	"github.com/acksell/foosball/model"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// recentGamesLimit bounds GET /series/{name}/games.
const recentGamesLimit = 30

// APIHandler implements the league routes on top of the model layer.
type APIHandler struct {
	models   *model.Models
	auth     *auth.Service
	clock    clockwork.Clock
	location *time.Location
}

func NewAPIHandler(models *model.Models, a *auth.Service, clock clockwork.Clock, loc *time.Location) *APIHandler {
	return &APIHandler{
		models:   models,
		auth:     a,
		clock:    clock,
		location: loc,
	}
}

// RegisterRoutes registers every route on r. POST routes other than /login
// need a bearer token.
func (h *APIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)

	r.HandleFunc("/series", h.listSeries).Methods(http.MethodGet)
	r.HandleFunc("/series/{name}", h.getSeries).Methods(http.MethodGet)
	r.HandleFunc("/series/{name}/games", h.seriesGames).Methods(http.MethodGet)
	r.Handle("/series/{name}", requireAuth(h.auth, h.createSeries)).Methods(http.MethodPost)

	r.HandleFunc("/player/{name}", h.getPlayer).Methods(http.MethodGet)
	r.Handle("/player/{name}", requireAuth(h.auth, h.createPlayer)).Methods(http.MethodPost)
	r.Handle("/player/{name}/series", requireAuth(h.auth, h.addPlayerToSeries)).Methods(http.MethodPost)

	r.HandleFunc("/game/{id}", h.getGame).Methods(http.MethodGet)
	r.Handle("/game", requireAuth(h.auth, h.createGame)).Methods(http.MethodPost)
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return model.NewError(model.InvalidParam, "invalid JSON body: %v", err)
	}
	return nil
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"status": "ok"})
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, r, model.NewError(model.InvalidParam, "required parameter(s) missing"))
		return
	}
	tok, err := h.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"token": tok})
}

func (h *APIHandler) listSeries(w http.ResponseWriter, r *http.Request) {
	names, err := h.models.ListSeries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, names)
}

// statsWindow turns ?stats_days=N into a query for games since local
// midnight N-1 days ago.
func (h *APIHandler) statsWindow(r *http.Request) (kv.Query, error) {
	raw := r.URL.Query().Get("stats_days")
	if raw == "" {
		return kv.Query{}, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return kv.Query{}, model.NewError(model.InvalidParam, "stats_days must be a positive integer, got %q", raw)
	}
	now := h.clock.Now().In(h.location)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location).AddDate(0, 0, -(days - 1))
	// MoreThan is exclusive; games at midnight sharp count.
	return kv.Query{MoreThan: kv.Int64(since.UnixMilli() - 1)}, nil
}

func (h *APIHandler) getSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := h.statsWindow(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.models.LoadSeries(ctx, mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.models.Populate(ctx, s); err != nil {
		writeError(w, r, err)
		return
	}
	games, err := h.models.Games(ctx, s, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	model.CalculatePlayerStats(s, games)
	writeData(w, s)
}

func (h *APIHandler) seriesGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.models.LoadSeries(ctx, mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	games, err := h.models.Games(ctx, s, kv.Query{Limit: recentGamesLimit})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, games)
}

func (h *APIHandler) createSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := model.NewSeries(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.models.Save(ctx, s, model.WithPutMode(kv.PutCreateIgnoreExisting)); err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := h.models.LoadSeries(ctx, s.Key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, stored)
}

func (h *APIHandler) getPlayer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.models.LoadPlayer(ctx, mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.models.Populate(ctx, p); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, p)
}

func (h *APIHandler) createPlayer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := model.NewPlayer(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.models.Save(ctx, p, model.WithPutMode(kv.PutCreateIgnoreExisting)); err != nil {
		writeError(w, r, err)
		return
	}
	stored, err := h.models.LoadPlayer(ctx, p.Key())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, stored)
}

func (h *APIHandler) addPlayerToSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body struct {
		Series string `json:"series"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Series == "" {
		writeError(w, r, model.NewError(model.RequiredPropertyMissing, "missing property: series"))
		return
	}

	var (
		p *model.Player
		g errgroup.Group
	)
	g.Go(func() error {
		var err error
		p, err = h.models.LoadPlayer(ctx, mux.Vars(r)["name"])
		return err
	})
	g.Go(func() error {
		_, err := h.models.LoadSeries(ctx, body.Series)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.models.AddToSeries(ctx, p, body.Series); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, struct{}{})
}

func (h *APIHandler) getGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.models.LoadGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, g)
}

func (h *APIHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var params model.GameParams
	if err := decodeBody(r, &params); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.models.NewGame(params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.models.RecordGame(r.Context(), g); err != nil {
		writeError(w, r, err)
		return
	}
	if id := IdentityFrom(r.Context()); id != nil {
		zerolog.Ctx(r.Context()).Info().Str("game", g.Key()).Str("by", id.Username).Msg("game created")
	}
	writeData(w, g)
}
