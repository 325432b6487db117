// Package server is an in-memory implementation of the accountant API
// for local play and integration tests. It speaks the same contract
// the production service does, including the non_field_errors reply
// shape on validation conflicts.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"railbank/internal/config"
	"railbank/internal/model"
)

type Server struct {
	cfg   config.ServerConfig
	log   *slog.Logger
	store *Store
	mux   *chi.Mux
}

func New(cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:   cfg,
		log:   logger,
		store: NewStore(cfg.BankCash),
		mux:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/game/", s.handleGameList)
		r.Post("/game/", s.handleGameCreate)
		r.Get("/game/{uuid}/", s.handleGameGet)

		r.Get("/player/", s.handlePlayerList)
		r.Post("/player/", s.handlePlayerCreate)
		r.Get("/player/{uuid}/", s.handlePlayerGet)

		r.Get("/company/", s.handleCompanyList)
		r.Post("/company/", s.handleCompanyCreate)
		r.Get("/company/{uuid}/", s.handleCompanyGet)
		r.Put("/company/{uuid}/", s.handleCompanyUpdate)

		r.Get("/playershare/", s.handlePlayerShareList)
		r.Get("/companyshare/", s.handleCompanyShareList)
		r.Get("/logentry/", s.handleLogList)

		r.Post("/operate/", s.handleOperate)
		r.Post("/transfer_money/", s.handleTransferMoney)
		r.Post("/transfer_share/", s.handleTransferShare)
		r.Post("/undo/", s.handleUndo)
	})
}

func (s *Server) handleGameList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListGames())
}

func (s *Server) handleGameCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Cash *int `json:"cash"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game := s.store.CreateGame(in.Cash)
	s.log.Info("game created", "game", game.UUID, "cash", game.Cash)
	writeJSON(w, http.StatusCreated, game)
}

func (s *Server) handleGameGet(w http.ResponseWriter, r *http.Request) {
	game, err := s.store.GetGame(chi.URLParam(r, "uuid"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *Server) handlePlayerList(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.URL.Query().Get("game"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handlePlayerCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Game string `json:"game"`
		Name string `json:"name"`
		Cash int    `json:"cash"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	player, err := s.store.CreatePlayer(in.Game, in.Name, in.Cash)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("player created", "game", in.Game, "player", player.Name)
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handlePlayerGet(w http.ResponseWriter, r *http.Request) {
	player, err := s.store.GetPlayer(chi.URLParam(r, "uuid"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleCompanyList(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.URL.Query().Get("game"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) handleCompanyCreate(w http.ResponseWriter, r *http.Request) {
	var in model.Company
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	company, err := s.store.CreateCompany(in)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("company created", "game", in.Game, "company", company.Name)
	writeJSON(w, http.StatusCreated, company)
}

func (s *Server) handleCompanyGet(w http.ResponseWriter, r *http.Request) {
	company, err := s.store.GetCompany(chi.URLParam(r, "uuid"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (s *Server) handleCompanyUpdate(w http.ResponseWriter, r *http.Request) {
	var in model.Company
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.UUID = chi.URLParam(r, "uuid")
	company, err := s.store.UpdateCompany(in)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (s *Server) handlePlayerShareList(w http.ResponseWriter, r *http.Request) {
	filter, uuid := shareFilter(r, "player")
	shares, err := s.store.ListPlayerShares(filter, uuid)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func (s *Server) handleCompanyShareList(w http.ResponseWriter, r *http.Request) {
	filter, uuid := shareFilter(r, "company")
	shares, err := s.store.ListCompanyShares(filter, uuid)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

func shareFilter(r *http.Request, ownerKey string) (filter, uuid string) {
	if v := r.URL.Query().Get("game"); v != "" {
		return "game", v
	}
	return "owner", r.URL.Query().Get(ownerKey)
}

func (s *Server) handleLogList(w http.ResponseWriter, r *http.Request) {
	log, err := s.store.ListLog(r.URL.Query().Get("game"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (s *Server) handleOperate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Company string `json:"company"`
		Amount  int    `json:"amount"`
		Method  string `json:"method"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.store.Operate(in.Company, in.Amount, in.Method)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("company operated", "company", in.Company, "amount", in.Amount, "method", in.Method)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransferMoney(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount      int     `json:"amount"`
		FromPlayer  *string `json:"from_player"`
		FromCompany *string `json:"from_company"`
		ToPlayer    *string `json:"to_player"`
		ToCompany   *string `json:"to_company"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.store.TransferMoney(in.Amount, in.FromPlayer, in.FromCompany, in.ToPlayer, in.ToCompany)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransferShare(w http.ResponseWriter, r *http.Request) {
	var in TransferShareRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.store.TransferShare(in)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Action string `json:"action"`
		Game   string `json:"game"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var result model.ActionResult
	var err error
	switch in.Action {
	case "undo":
		result, err = s.store.UndoAction(in.Game)
	case "redo":
		result, err = s.store.RedoAction(in.Game)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%q is not a valid action", in.Action))
		return
	}
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("history walked", "game", in.Game, "action", in.Action)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": vErr.Messages})
		return
	}
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	s.log.Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"detail": msg})
}
