package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/setfolk/set-table-go/internal/bot"
	"github.com/setfolk/set-table-go/internal/config"
)

// Engine builds a game from its configuration and supervises its
// goroutines: one dealer, one per player, and one generator per non-human
// player, all joined on shutdown.
type Engine struct {
	id  string
	cfg config.Config
	log *zap.Logger

	table      *Table
	deck       *Deck
	players    []*Player
	dealer     *Dealer
	generators []*bot.Generator
}

// NewEngine wires up a game. A nil display discards all output. When the
// configured seed is zero the shuffles are seeded from the clock.
func NewEngine(cfg config.Config, display Display, log *zap.Logger) *Engine {
	if display == nil {
		display = NopDisplay{}
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	table := NewTable(cfg.Game.TableSize(), len(cfg.Players), display)
	deck := NewDeck(rng)

	players := make([]*Player, len(cfg.Players))
	for i, pc := range cfg.Players {
		players[i] = NewPlayer(i, pc.Name, pc.Human, table, display,
			cfg.Game.PointFreeze, cfg.Game.PenaltyFreeze, log)
	}

	dealer := NewDealer(table, deck, players, display, rng,
		cfg.Game.TurnTimeout, cfg.Game.WarnThreshold, cfg.Game.Tick, log)

	var generators []*bot.Generator
	for _, p := range players {
		if p.Human() {
			continue
		}
		generators = append(generators, bot.New(p, table.Size(),
			cfg.Game.BotPressDelay, rng.Int63(),
			log.With(zap.Int("player", p.ID()))))
	}

	id := uuid.New().String()
	log.Info("game created",
		zap.String("game_id", id),
		zap.Int64("seed", seed),
		zap.Int("players", len(players)),
		zap.Int("slots", table.Size()),
	)

	return &Engine{
		id:         id,
		cfg:        cfg,
		log:        log,
		table:      table,
		deck:       deck,
		players:    players,
		dealer:     dealer,
		generators: generators,
	}
}

// ID returns the game's id.
func (e *Engine) ID() string { return e.id }

// Player returns the player with the given id.
func (e *Engine) Player(id int) *Player { return e.players[id] }

// Players returns all players.
func (e *Engine) Players() []*Player { return e.players }

// Run plays the game to completion and returns the winner ids: every
// player tied at the maximum score. Cancelling ctx aborts the game; the
// error then reports the cause and no winners are returned.
func (e *Engine) Run(ctx context.Context) ([]int, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.dealer.setCancel(cancel)

	var wg sync.WaitGroup
	for _, p := range e.players {
		wg.Add(1)
		go func(p *Player) {
			defer wg.Done()
			p.Run(runCtx)
		}(p)
	}
	for _, g := range e.generators {
		wg.Add(1)
		go func(g *bot.Generator) {
			defer wg.Done()
			g.Run(runCtx)
		}(g)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.dealer.Run(runCtx)
	}()

	wg.Wait()

	if !e.dealer.Finished() {
		return nil, ctx.Err()
	}
	return e.dealer.Winners(), nil
}
