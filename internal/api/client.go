package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"railbank/internal/model"
)

// Client wraps every endpoint of the accountant API. One instance is
// safe for concurrent use.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: slog.Default(),
	}
}

// Error is a non-2xx reply. Validation failures carry the server's
// non_field_errors strings, which are shown to the user verbatim.
type Error struct {
	Status         int
	NonFieldErrors []string
	Body           string
}

func (e *Error) Error() string {
	if len(e.NonFieldErrors) > 0 {
		return fmt.Sprintf("api status %d: %s", e.Status, strings.Join(e.NonFieldErrors, "; "))
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is an API reply with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.Status == http.StatusNotFound
}

func (c *Client) ListGames(ctx context.Context) ([]model.Game, error) {
	var out []model.Game
	err := c.jsonRequest(ctx, http.MethodGet, "/game/", nil, &out)
	return out, err
}

func (c *Client) GetGame(ctx context.Context, uuid string) (model.Game, error) {
	var out model.Game
	err := c.jsonRequest(ctx, http.MethodGet, "/game/"+url.PathEscape(uuid)+"/", nil, &out)
	return out, err
}

func (c *Client) CreateGame(ctx context.Context, cash int) (model.Game, error) {
	var out model.Game
	err := c.jsonRequest(ctx, http.MethodPost, "/game/", map[string]any{
		"cash": cash,
	}, &out)
	return out, err
}

func (c *Client) GetPlayer(ctx context.Context, uuid string) (model.Player, error) {
	var out model.Player
	err := c.jsonRequest(ctx, http.MethodGet, "/player/"+url.PathEscape(uuid)+"/", nil, &out)
	return out, err
}

func (c *Client) ListPlayers(ctx context.Context, gameUUID string) ([]model.Player, error) {
	var out []model.Player
	err := c.jsonRequest(ctx, http.MethodGet, "/player/?game="+url.QueryEscape(gameUUID), nil, &out)
	return out, err
}

func (c *Client) CreatePlayer(ctx context.Context, gameUUID, name string, cash int) (model.Player, error) {
	var out model.Player
	err := c.jsonRequest(ctx, http.MethodPost, "/player/", map[string]any{
		"game": gameUUID,
		"name": name,
		"cash": cash,
	}, &out)
	return out, err
}

func (c *Client) GetCompany(ctx context.Context, uuid string) (model.Company, error) {
	var out model.Company
	err := c.jsonRequest(ctx, http.MethodGet, "/company/"+url.PathEscape(uuid)+"/", nil, &out)
	return out, err
}

func (c *Client) ListCompanies(ctx context.Context, gameUUID string) ([]model.Company, error) {
	var out []model.Company
	err := c.jsonRequest(ctx, http.MethodGet, "/company/?game="+url.QueryEscape(gameUUID), nil, &out)
	return out, err
}

func (c *Client) CreateCompany(ctx context.Context, company model.Company) (model.Company, error) {
	var out model.Company
	err := c.jsonRequest(ctx, http.MethodPost, "/company/", map[string]any{
		"game":             company.Game,
		"name":             company.Name,
		"cash":             company.Cash,
		"share_count":      company.ShareCount,
		"text_color":       company.TextColor,
		"background_color": company.BackgroundColor,
	}, &out)
	return out, err
}

func (c *Client) UpdateCompany(ctx context.Context, company model.Company) (model.Company, error) {
	var out model.Company
	err := c.jsonRequest(ctx, http.MethodPut, "/company/"+url.PathEscape(company.UUID)+"/", company, &out)
	return out, err
}

// ListPlayerShares fetches player-held share records. filter selects
// the query parameter: "game" for a whole game, "player" for one
// owner.
func (c *Client) ListPlayerShares(ctx context.Context, uuid, filter string) ([]model.Share, error) {
	if filter == "" {
		filter = "game"
	}
	var out []model.Share
	err := c.jsonRequest(ctx, http.MethodGet, "/playershare/?"+filter+"="+url.QueryEscape(uuid), nil, &out)
	return out, err
}

// ListCompanyShares fetches treasury-held share records, filtered by
// "game" or "company".
func (c *Client) ListCompanyShares(ctx context.Context, uuid, filter string) ([]model.Share, error) {
	if filter == "" {
		filter = "game"
	}
	var out []model.Share
	err := c.jsonRequest(ctx, http.MethodGet, "/companyshare/?"+filter+"="+url.QueryEscape(uuid), nil, &out)
	return out, err
}

func (c *Client) ListLog(ctx context.Context, gameUUID string) ([]model.LogEntry, error) {
	var out []model.LogEntry
	err := c.jsonRequest(ctx, http.MethodGet, "/logentry/?game="+url.QueryEscape(gameUUID), nil, &out)
	return out, err
}

func (c *Client) Operate(ctx context.Context, company *model.Company, amount int, method string) (model.ActionResult, error) {
	var out model.ActionResult
	err := c.jsonRequest(ctx, http.MethodPost, "/operate/", map[string]any{
		"company": company.UUID,
		"amount":  amount,
		"method":  method,
	}, &out)
	return out, err
}

// TransferMoney moves cash between two parties. A bank party is
// omitted from the body entirely: the server treats a missing side as
// the bank.
func (c *Client) TransferMoney(ctx context.Context, amount int, from, to model.Party) (model.ActionResult, error) {
	body := map[string]any{"amount": amount}
	if uuid, ok := from.UUID(); ok {
		body["from_"+from.Kind()] = uuid
	}
	if uuid, ok := to.UUID(); ok {
		body["to_"+to.Kind()] = uuid
	}
	var out model.ActionResult
	err := c.jsonRequest(ctx, http.MethodPost, "/transfer_money/", body, &out)
	return out, err
}

// TransferShare moves amount shares of company stock from source to
// buyer at the given per-share price.
func (c *Client) TransferShare(ctx context.Context, buyer model.Party, company *model.Company, source model.Party, price, amount int) (model.ActionResult, error) {
	body := map[string]any{
		"price":       price,
		"amount":      amount,
		"share":       company.UUID,
		"source_type": source.Kind(),
		"buyer_type":  buyer.Kind(),
	}
	if uuid, ok := source.UUID(); ok {
		body[source.Kind()+"_source"] = uuid
	}
	if uuid, ok := buyer.UUID(); ok {
		body[buyer.Kind()+"_buyer"] = uuid
	}
	var out model.ActionResult
	err := c.jsonRequest(ctx, http.MethodPost, "/transfer_share/", body, &out)
	return out, err
}

func (c *Client) Undo(ctx context.Context, game *model.Game) (model.ActionResult, error) {
	return c.undoAction(ctx, "undo", game)
}

func (c *Client) Redo(ctx context.Context, game *model.Game) (model.ActionResult, error) {
	return c.undoAction(ctx, "redo", game)
}

func (c *Client) undoAction(ctx context.Context, action string, game *model.Game) (model.ActionResult, error) {
	var out model.ActionResult
	err := c.jsonRequest(ctx, http.MethodPost, "/undo/", map[string]any{
		"action": action,
		"game":   game.UUID,
	}, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Warn("api request failed", "method", method, "path", path, "err", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		var payload struct {
			NonFieldErrors []string `json:"non_field_errors"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.NonFieldErrors = payload.NonFieldErrors
		}
		c.log.Warn("api request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
