// Package state owns the in-memory snapshot of the currently loaded
// game: the game record, players, companies, shares and the action
// log, plus the derived views the UI reads (share holdings, net
// worth). All mutation goes through this package so readers never see
// a half-applied action.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"railbank/internal/model"
	"railbank/internal/report"
)

// ErrGameMismatch signals a caller bug: an attempt to install a game
// record whose uuid differs from the loaded game's.
var ErrGameMismatch = errors.New("game uuid does not match loaded game")

var ErrNotLoaded = errors.New("no game loaded")

// Backend is the slice of the API the state holder drives. Satisfied
// by *api.Client.
type Backend interface {
	GetGame(ctx context.Context, uuid string) (model.Game, error)
	ListPlayers(ctx context.Context, gameUUID string) ([]model.Player, error)
	ListCompanies(ctx context.Context, gameUUID string) ([]model.Company, error)
	ListPlayerShares(ctx context.Context, uuid, filter string) ([]model.Share, error)
	ListCompanyShares(ctx context.Context, uuid, filter string) ([]model.Share, error)
	ListLog(ctx context.Context, gameUUID string) ([]model.LogEntry, error)
	Undo(ctx context.Context, game *model.Game) (model.ActionResult, error)
	Redo(ctx context.Context, game *model.Game) (model.ActionResult, error)
}

type loadFlags struct {
	game      bool
	players   bool
	companies bool
	shares    bool
	log       bool
}

func (f loadFlags) all() bool {
	return f.game && f.players && f.companies && f.shares && f.log
}

type State struct {
	backend  Backend
	reporter *report.Reporter

	mu         sync.Mutex
	generation uint64
	done       chan struct{}
	loaded     loadFlags
	game       *model.Game
	players    map[string]*model.Player
	companies  map[string]*model.Company
	shares     map[string]*model.Share
	log        []model.LogEntry
	observers  []func()
}

func New(backend Backend, reporter *report.Reporter) *State {
	return &State{
		backend:  backend,
		reporter: reporter,
	}
}

// OnChange registers fn to run after every mutation of the snapshot.
// Callbacks run outside the state lock.
func (s *State) OnChange(fn func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *State) notify() {
	s.mu.Lock()
	obs := make([]func(), len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
}

// LoadGame drops the current snapshot and starts the five fetches for
// the named game: the game record, player list, company list, share
// records (player-held and treasury queries, merged) and the log. It
// returns immediately; IsLoaded flips once every fetch has landed, and
// Wait blocks for that point. Calling LoadGame again supersedes the
// previous call: its late completions are discarded by generation
// check rather than written over fresher state.
func (s *State) LoadGame(ctx context.Context, uuid string) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.loaded = loadFlags{}
	s.game = nil
	s.players = nil
	s.companies = nil
	s.shares = nil
	s.log = nil
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()
	s.notify()

	go func() {
		defer close(done)
		var wg sync.WaitGroup
		wg.Add(5)

		go func() {
			defer wg.Done()
			game, err := s.backend.GetGame(ctx, uuid)
			if err != nil {
				s.ifCurrent(gen, func() {
					s.reporter.Add(fmt.Sprintf("Game %s not found", uuid))
				})
				return
			}
			s.ifCurrent(gen, func() {
				s.game = &game
				s.loaded.game = true
			})
		}()

		go func() {
			defer wg.Done()
			players, err := s.backend.ListPlayers(ctx, uuid)
			if err != nil {
				s.reportFetch(gen, "players", err)
				return
			}
			s.ifCurrent(gen, func() {
				s.players = make(map[string]*model.Player, len(players))
				for i := range players {
					s.players[players[i].UUID] = &players[i]
				}
				s.loaded.players = true
			})
		}()

		go func() {
			defer wg.Done()
			companies, err := s.backend.ListCompanies(ctx, uuid)
			if err != nil {
				s.reportFetch(gen, "companies", err)
				return
			}
			s.ifCurrent(gen, func() {
				s.companies = make(map[string]*model.Company, len(companies))
				for i := range companies {
					s.companies[companies[i].UUID] = &companies[i]
				}
				s.loaded.companies = true
			})
		}()

		go func() {
			defer wg.Done()
			// Player-held and treasury-held records are two independent
			// fetches merged under the one shares sub-flag.
			var (
				playerShares, companyShares []model.Share
				playerErr, companyErr       error
				inner                       sync.WaitGroup
			)
			inner.Add(2)
			go func() {
				defer inner.Done()
				playerShares, playerErr = s.backend.ListPlayerShares(ctx, uuid, "game")
			}()
			go func() {
				defer inner.Done()
				companyShares, companyErr = s.backend.ListCompanyShares(ctx, uuid, "game")
			}()
			inner.Wait()
			if playerErr != nil {
				s.reportFetch(gen, "shares", playerErr)
				return
			}
			if companyErr != nil {
				s.reportFetch(gen, "shares", companyErr)
				return
			}
			s.ifCurrent(gen, func() {
				s.shares = make(map[string]*model.Share, len(playerShares)+len(companyShares))
				for i := range playerShares {
					s.shares[playerShares[i].UUID] = &playerShares[i]
				}
				for i := range companyShares {
					s.shares[companyShares[i].UUID] = &companyShares[i]
				}
				s.loaded.shares = true
			})
		}()

		go func() {
			defer wg.Done()
			log, err := s.backend.ListLog(ctx, uuid)
			if err != nil {
				s.reportFetch(gen, "log", err)
				return
			}
			s.ifCurrent(gen, func() {
				s.log = log
				s.loaded.log = true
			})
		}()

		wg.Wait()
		s.notify()
	}()
}

// ifCurrent runs fn under the lock only when gen is still the active
// load; completions of superseded loads fall through.
func (s *State) ifCurrent(gen uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	fn()
}

// Secondary fetch failures leave their sub-flag false; the holder
// stays partially loaded and the failure is surfaced through the
// reporter rather than retried.
func (s *State) reportFetch(gen uint64, what string, err error) {
	s.ifCurrent(gen, func() {
		s.reporter.Add(fmt.Sprintf("Loading %s failed: %v", what, err))
	})
}

// IsLoaded reports whether every fetch of the most recent LoadGame has
// landed.
func (s *State) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded.all()
}

// Wait blocks until the fetches of the most recent LoadGame have all
// completed, successfully or not, or until ctx is done.
func (s *State) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return ErrNotLoaded
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateGame replaces the held game record. Installing a record for a
// different game is rejected; a reload must go through LoadGame.
func (s *State) UpdateGame(game model.Game) error {
	s.mu.Lock()
	if s.game != nil && s.game.UUID != game.UUID {
		s.mu.Unlock()
		return fmt.Errorf("%w: have %s, got %s", ErrGameMismatch, s.game.UUID, game.UUID)
	}
	s.game = &game
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *State) UpdatePlayer(player model.Player) {
	s.mu.Lock()
	if s.players == nil {
		s.players = make(map[string]*model.Player)
	}
	s.players[player.UUID] = &player
	s.mu.Unlock()
	s.notify()
}

// UpdateCompany installs a company record, carrying the locally
// tracked share price forward: the server never sends value, and a
// replacement must not reset it.
func (s *State) UpdateCompany(company model.Company) {
	s.mu.Lock()
	if s.companies == nil {
		s.companies = make(map[string]*model.Company)
	}
	if prev, ok := s.companies[company.UUID]; ok {
		company.Value = prev.Value
	}
	s.companies[company.UUID] = &company
	s.mu.Unlock()
	s.notify()
}

func (s *State) UpdateShare(share model.Share) {
	s.mu.Lock()
	if s.shares == nil {
		s.shares = make(map[string]*model.Share)
	}
	s.shares[share.UUID] = &share
	s.mu.Unlock()
	s.notify()
}

func (s *State) AppendLog(entry model.LogEntry) {
	s.mu.Lock()
	s.log = append(s.log, entry)
	s.mu.Unlock()
	s.notify()
}

// SetCompanyValue records the local share price used by net worth.
func (s *State) SetCompanyValue(uuid string, value int) error {
	s.mu.Lock()
	company, ok := s.companies[uuid]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown company %s", uuid)
	}
	company.Value = value
	s.mu.Unlock()
	s.notify()
	return nil
}

// Undo asks the server to revert the newest action, pops the newest
// log entry unconditionally, then merges whatever deltas the server
// returned.
func (s *State) Undo(ctx context.Context) error {
	game, err := s.loadedGame()
	if err != nil {
		return err
	}
	result, err := s.backend.Undo(ctx, game)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if n := len(s.log); n > 0 {
		s.log = s.log[:n-1]
	}
	s.mu.Unlock()
	s.notify()
	return s.applyResult(result, false)
}

// Redo mirrors Undo: the server re-applies the action and returns the
// re-appended log entry along with the affected entities.
func (s *State) Redo(ctx context.Context) error {
	game, err := s.loadedGame()
	if err != nil {
		return err
	}
	result, err := s.backend.Redo(ctx, game)
	if err != nil {
		return err
	}
	if result.Log != nil {
		s.AppendLog(*result.Log)
	}
	return s.applyResult(result, false)
}

// ApplyResult merges the entity deltas of an action response into the
// snapshot, log entry included.
func (s *State) ApplyResult(result model.ActionResult) error {
	return s.applyResult(result, true)
}

func (s *State) applyResult(result model.ActionResult, withLog bool) error {
	if result.Game != nil {
		if err := s.UpdateGame(*result.Game); err != nil {
			return err
		}
	}
	for _, player := range result.Players {
		s.UpdatePlayer(player)
	}
	for _, company := range result.Companies {
		s.UpdateCompany(company)
	}
	for _, share := range result.Shares {
		s.UpdateShare(share)
	}
	if withLog && result.Log != nil {
		s.AppendLog(*result.Log)
	}
	return nil
}

func (s *State) loadedGame() (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil, ErrNotLoaded
	}
	game := *s.game
	return &game, nil
}
