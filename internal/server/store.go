package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"railbank/internal/model"
)

// ErrNotFound maps to a 404 reply.
var ErrNotFound = errors.New("not found")

// ValidationError maps to a 400 reply with a non_field_errors array,
// the shape the original server used for domain conflicts.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Messages: []string{fmt.Sprintf(format, args...)}}
}

const (
	errSourceOrDestRequired = "You cannot transfer money from the bank to the bank."
	errSameEntity           = "Cannot transfer money from an entity to itself."
	errDifferentGame        = "Sender and receiver must be part of the same game."
	errNoAvailableShares    = "Source doesn't have enough shares to sell"
	errDuplicateName        = "The fields game, name must make a unique set."
	errNothingToUndo        = "There is nothing to undo."
	errNothingToRedo        = "There is nothing to redo."
)

// snapshot holds deep copies of the entities one action touched, taken
// either before (for undo) or after (for redo) the action ran.
type snapshot struct {
	game          *model.Game
	players       []model.Player
	companies     []model.Company
	playerShares  []model.Share
	companyShares []model.Share
	// Share records the action brought into existence; restoring the
	// snapshot deletes them again.
	createdPlayerShares  []string
	createdCompanyShares []string
}

// logRecord pairs a visible log entry with the state needed to walk
// the action backward and forward again.
type logRecord struct {
	entry  model.LogEntry
	before snapshot
	after  snapshot
}

type gameRecord struct {
	game          model.Game
	players       map[string]*model.Player
	companies     map[string]*model.Company
	playerShares  map[string]*model.Share
	companyShares map[string]*model.Share
	log           []logRecord
	// cursor is the number of applied log entries; entries past it are
	// the redo tail, discarded on the next fresh action.
	cursor int
}

// Store is the in-memory backing for the development server. All
// access goes through its lock.
type Store struct {
	mu       sync.Mutex
	bankCash int
	games    map[string]*gameRecord
	now      func() time.Time
	newUUID  func() string
}

func NewStore(bankCash int) *Store {
	return &Store{
		bankCash: bankCash,
		games:    make(map[string]*gameRecord),
		now:      time.Now,
		newUUID:  uuid.NewString,
	}
}

func (st *Store) game(uuid string) (*gameRecord, error) {
	g, ok := st.games[uuid]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", uuid, ErrNotFound)
	}
	return g, nil
}

func (st *Store) CreateGame(cash *int) model.Game {
	st.mu.Lock()
	defer st.mu.Unlock()
	bank := st.bankCash
	if cash != nil {
		bank = *cash
	}
	g := &gameRecord{
		game: model.Game{
			UUID:      st.newUUID(),
			Cash:      bank,
			Players:   []string{},
			Companies: []string{},
		},
		players:       make(map[string]*model.Player),
		companies:     make(map[string]*model.Company),
		playerShares:  make(map[string]*model.Share),
		companyShares: make(map[string]*model.Share),
	}
	st.games[g.game.UUID] = g
	st.appendEntry(g, model.LogEntry{
		UUID: st.newUUID(),
		Game: g.game.UUID,
		Time: st.now(),
		Text: fmt.Sprintf("New game started with %d in the bank", bank),
	}, nil)
	return g.game
}

func (st *Store) ListGames() []model.Game {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]model.Game, 0, len(st.games))
	for _, g := range st.games {
		out = append(out, g.game)
	}
	return out
}

func (st *Store) GetGame(uuid string) (model.Game, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, err := st.game(uuid)
	if err != nil {
		return model.Game{}, err
	}
	return g.game, nil
}

func (st *Store) CreatePlayer(gameUUID, name string, cash int) (model.Player, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, err := st.game(gameUUID)
	if err != nil {
		return model.Player{}, err
	}
	for _, p := range g.players {
		if p.Name == name {
			return model.Player{}, validationErrorf(errDuplicateName)
		}
	}
	player := &model.Player{
		UUID:     st.newUUID(),
		Game:     gameUUID,
		Name:     name,
		Cash:     cash,
		ShareSet: []string{},
	}
	g.players[player.UUID] = player
	g.game.Players = append(g.game.Players, player.UUID)
	st.appendEntry(g, model.LogEntry{
		UUID: st.newUUID(),
		Game: gameUUID,
		Time: st.now(),
		Text: fmt.Sprintf("Added player %s with %d starting cash", name, cash),
	}, nil)
	return *player, nil
}

func (st *Store) GetPlayer(uuid string) (model.Player, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, g := range st.games {
		if p, ok := g.players[uuid]; ok {
			return *p, nil
		}
	}
	return model.Player{}, fmt.Errorf("player %s: %w", uuid, ErrNotFound)
}

func (st *Store) ListPlayers(gameUUID string) ([]model.Player, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, err := st.game(gameUUID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Player, 0, len(g.players))
	for _, uuid := range g.game.Players {
		out = append(out, *g.players[uuid])
	}
	return out, nil
}

func (st *Store) CreateCompany(in model.Company) (model.Company, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, err := st.game(in.Game)
	if err != nil {
		return model.Company{}, err
	}
	for _, c := range g.companies {
		if c.Name == in.Name {
			return model.Company{}, validationErrorf(errDuplicateName)
		}
	}
	if in.TextColor == "" {
		in.TextColor = "black"
	}
	if in.BackgroundColor == "" {
		in.BackgroundColor = "white"
	}
	if !model.ValidColor(in.TextColor) || !model.ValidColor(in.BackgroundColor) {
		return model.Company{}, validationErrorf("%q is not a valid color choice", in.TextColor+"/"+in.BackgroundColor)
	}
	if in.ShareCount == 0 {
		in.ShareCount = 10
	}
	company := &model.Company{
		UUID:            st.newUUID(),
		Game:            in.Game,
		Name:            in.Name,
		Cash:            in.Cash,
		ShareCount:      in.ShareCount,
		IPOShares:       in.ShareCount,
		BankShares:      0,
		TextColor:       in.TextColor,
		BackgroundColor: in.BackgroundColor,
		ShareSet:        []string{},
	}
	g.companies[company.UUID] = company
	g.game.Companies = append(g.game.Companies, company.UUID)
	st.appendEntry(g, model.LogEntry{
		UUID:          st.newUUID(),
		Game:          in.Game,
		Time:          st.now(),
		Text:          fmt.Sprintf("Added %d-share company %s with %d starting cash", company.ShareCount, company.Name, company.Cash),
		ActingCompany: company.UUID,
	}, nil)
	return *company, nil
}

func (st *Store) GetCompany(uuid string) (model.Company, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, _, err := st.findCompany(uuid)
	if err != nil {
		return model.Company{}, err
	}
	return *c, nil
}

func (st *Store) findCompany(uuid string) (*model.Company, *gameRecord, error) {
	for _, g := range st.games {
		if c, ok := g.companies[uuid]; ok {
			return c, g, nil
		}
	}
	return nil, nil, fmt.Errorf("company %s: %w", uuid, ErrNotFound)
}

func (st *Store) ListCompanies(gameUUID string) ([]model.Company, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, err := st.game(gameUUID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Company, 0, len(g.companies))
	for _, uuid := range g.game.Companies {
		out = append(out, *g.companies[uuid])
	}
	return out, nil
}

// UpdateCompany applies a client edit: display fields and cash. Share
// structure only moves through transfer_share.
func (st *Store) UpdateCompany(in model.Company) (model.Company, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, g, err := st.findCompany(in.UUID)
	if err != nil {
		return model.Company{}, err
	}
	if in.Name != c.Name {
		for _, other := range g.companies {
			if other.UUID != c.UUID && other.Name == in.Name {
				return model.Company{}, validationErrorf(errDuplicateName)
			}
		}
	}
	if !model.ValidColor(in.TextColor) || !model.ValidColor(in.BackgroundColor) {
		return model.Company{}, validationErrorf("%q is not a valid color choice", in.TextColor+"/"+in.BackgroundColor)
	}
	c.Name = in.Name
	c.Cash = in.Cash
	c.TextColor = in.TextColor
	c.BackgroundColor = in.BackgroundColor
	return *c, nil
}

// ListPlayerShares filters player-held share records by game or owner.
func (st *Store) ListPlayerShares(filter, uuid string) ([]model.Share, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.listShares(filter, uuid, func(g *gameRecord) map[string]*model.Share { return g.playerShares })
}

// ListCompanyShares filters treasury-held share records by game or
// owner.
func (st *Store) ListCompanyShares(filter, uuid string) ([]model.Share, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.listShares(filter, uuid, func(g *gameRecord) map[string]*model.Share { return g.companyShares })
}

func (st *Store) listShares(filter, uuid string, pick func(*gameRecord) map[string]*model.Share) ([]model.Share, error) {
	if filter == "game" {
		g, err := st.game(uuid)
		if err != nil {
			return nil, err
		}
		out := []model.Share{}
		for _, share := range pick(g) {
			out = append(out, *share)
		}
		return out, nil
	}
	// owner filter
	out := []model.Share{}
	for _, g := range st.games {
		for _, share := range pick(g) {
			if share.Owner == uuid {
				out = append(out, *share)
			}
		}
	}
	return out, nil
}

// ListLog returns the applied prefix of a game's log; undone entries
// past the cursor stay hidden until redone.
func (st *Store) ListLog(gameUUID string) ([]model.LogEntry, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	g, err := st.game(gameUUID)
	if err != nil {
		return nil, err
	}
	out := make([]model.LogEntry, 0, g.cursor)
	for _, rec := range g.log[:g.cursor] {
		out = append(out, rec.entry)
	}
	return out, nil
}

// appendEntry records a log entry. A nil rec marks the entry as not
// undoable (creations); otherwise rec carries the undo snapshots. Any
// redo tail is discarded.
func (st *Store) appendEntry(g *gameRecord, entry model.LogEntry, rec *logRecord) {
	g.log = g.log[:g.cursor]
	entry.IsUndoable = rec != nil
	if rec == nil {
		g.log = append(g.log, logRecord{entry: entry})
	} else {
		rec.entry = entry
		g.log = append(g.log, *rec)
	}
	g.cursor = len(g.log)
}
