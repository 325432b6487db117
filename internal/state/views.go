package state

import (
	"sort"

	"railbank/internal/model"
)

// ShareInfo is one row of a holder's portfolio view.
type ShareInfo struct {
	Fraction        float64
	Shares          int
	ShareCount      int
	Name            string
	TextColor       string
	BackgroundColor string
}

// NetWorth is a player's cash plus the market value of every held
// share, with a per-company breakdown keyed by company uuid. A
// zero-share record still appears in the breakdown, contributing 0.
type NetWorth struct {
	Total     int
	Companies map[string]int
}

// ShareInfo resolves the owner's share_set against the loaded
// snapshot. Records with a zero share count are skipped; the result is
// sorted ascending by company name.
func (s *State) ShareInfo(owner model.Shareholder) []ShareInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ShareInfo
	for _, uuid := range owner.HeldShares() {
		share, ok := s.shares[uuid]
		if !ok || share.Shares == 0 {
			continue
		}
		company, ok := s.companies[share.Company]
		if !ok {
			continue
		}
		out = append(out, ShareInfo{
			Fraction:        float64(share.Shares) / float64(company.ShareCount),
			Shares:          share.Shares,
			ShareCount:      company.ShareCount,
			Name:            company.Name,
			TextColor:       company.TextColor,
			BackgroundColor: company.BackgroundColor,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *State) NetWorth(player *model.Player) NetWorth {
	s.mu.Lock()
	defer s.mu.Unlock()
	worth := NetWorth{
		Total:     player.Cash,
		Companies: make(map[string]int),
	}
	for _, uuid := range player.ShareSet {
		share, ok := s.shares[uuid]
		if !ok {
			continue
		}
		company, ok := s.companies[share.Company]
		if !ok {
			continue
		}
		holding := share.Shares * company.Value
		worth.Companies[company.UUID] += holding
		worth.Total += holding
	}
	return worth
}

// OwnsShare reports whether owner currently holds any stock of
// company. A nil company is simply not owned, never an error.
func (s *State) OwnsShare(owner model.Shareholder, company *model.Company) bool {
	if company == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uuid := range owner.HeldShares() {
		share, ok := s.shares[uuid]
		if ok && share.Company == company.UUID && share.Shares != 0 {
			return true
		}
	}
	return false
}

// Game returns a copy of the held game record.
func (s *State) Game() (model.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return model.Game{}, false
	}
	return *s.game, true
}

func (s *State) Player(uuid string) (model.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[uuid]
	if !ok {
		return model.Player{}, false
	}
	return *player, true
}

func (s *State) Company(uuid string) (model.Company, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	company, ok := s.companies[uuid]
	if !ok {
		return model.Company{}, false
	}
	return *company, true
}

func (s *State) Share(uuid string) (model.Share, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	share, ok := s.shares[uuid]
	if !ok {
		return model.Share{}, false
	}
	return *share, true
}

// Players lists the loaded players sorted by name.
func (s *State) Players() []model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Player, 0, len(s.players))
	for _, player := range s.players {
		out = append(out, *player)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Companies lists the loaded companies sorted by name.
func (s *State) Companies() []model.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Company, 0, len(s.companies))
	for _, company := range s.companies {
		out = append(out, *company)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PlayerByName resolves a player by display name.
func (s *State) PlayerByName(name string) (model.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, player := range s.players {
		if player.Name == name {
			return *player, true
		}
	}
	return model.Player{}, false
}

// CompanyByName resolves a company by display name.
func (s *State) CompanyByName(name string) (model.Company, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, company := range s.companies {
		if company.Name == name {
			return *company, true
		}
	}
	return model.Company{}, false
}

// Log returns a copy of the action log in append order.
func (s *State) Log() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LogEntry, len(s.log))
	copy(out, s.log)
	return out
}
