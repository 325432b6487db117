package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"railbank/internal/api"
	"railbank/internal/config"
	"railbank/internal/model"
	"railbank/internal/report"
	"railbank/internal/state"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "rbk",
		Short:        "Railbank 18xx accounting client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newGamesCmd(&apiBase),
		newStartCmd(&apiBase),
		newShowCmd(&apiBase),
		newPlayerCmd(&apiBase),
		newCompanyCmd(&apiBase),
		newTransferCmd(&apiBase),
		newShareCmd(&apiBase),
		newOperateCmd(&apiBase),
		newValueCmd(&apiBase),
		newNetWorthCmd(&apiBase),
		newLogCmd(&apiBase),
		newUndoCmd(&apiBase),
		newRedoCmd(&apiBase),
		newWatchCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *api.Client {
	return api.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func gameFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return validGameUUID(args[0])
	}
	if env := strings.TrimSpace(os.Getenv("RBK_GAME")); env != "" {
		return validGameUUID(env)
	}
	text, err := promptRequired("Game uuid")
	if err != nil {
		return "", err
	}
	return validGameUUID(text)
}

func validGameUUID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if err := uuid.Validate(s); err != nil {
		return "", fmt.Errorf("invalid game uuid %q", s)
	}
	return s, nil
}

// loadSession fetches the full game snapshot and blocks until every
// piece has landed. Load failures surface through the reporter, not as
// a returned error.
func loadSession(ctx context.Context, client *api.Client, gameUUID string) (*state.State, *report.Reporter, error) {
	rep := report.New()
	st := state.New(client, rep)
	st.LoadGame(ctx, gameUUID)
	if err := st.Wait(ctx); err != nil {
		return nil, nil, err
	}
	reportErrors(rep)
	if !st.IsLoaded() {
		return nil, nil, fmt.Errorf("game %s did not load completely", gameUUID)
	}
	return st, rep, nil
}

// resolveMoneyParty resolves a side of a money transfer. The IPO is a
// share-transfer party only; it cannot hold cash, so it is rejected
// here instead of being silently sent as the bank.
func resolveMoneyParty(st *state.State, text string) (model.Party, error) {
	party, err := resolveParty(st, text)
	if err != nil {
		return model.Party{}, err
	}
	if party.IsIPO() {
		return model.Party{}, fmt.Errorf("the IPO cannot hold money; use bank, a player or a company")
	}
	return party, nil
}

// resolveParty maps user input onto a transfer party: the words bank
// and ipo, or a player or company name from the loaded game.
func resolveParty(st *state.State, text string) (model.Party, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "bank", "":
		return model.Bank(), nil
	case "ipo":
		return model.IPO(), nil
	}
	if player, ok := st.PlayerByName(text); ok {
		return model.PlayerParty(&player), nil
	}
	if company, ok := st.CompanyByName(text); ok {
		return model.CompanyParty(&company), nil
	}
	return model.Party{}, fmt.Errorf("no player or company named %q", text)
}

func newGamesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List games on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			games, err := newClient(apiBase).ListGames(ctx)
			if err != nil {
				return err
			}
			renderGames(games)
			return nil
		},
	}
}

func newStartCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new game",
		RunE: func(cmd *cobra.Command, args []string) error {
			cash, err := promptIntDefault("Bank cash", 0, 12000)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			game, err := newClient(apiBase).CreateGame(ctx, cash)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Game started: %s (bank %s)", game.UUID, formatCash(game.Cash)))
			printInfo("export RBK_GAME=" + game.UUID)
			return nil
		},
	}
}

func newShowCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [game]",
		Short: "Show the full game snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, _, err := loadSession(ctx, newClient(apiBase), gameUUID)
			if err != nil {
				return err
			}
			renderOverview(st)
			return nil
		},
	}
}

func newPlayerCmd(apiBase *string) *cobra.Command {
	player := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}
	player.AddCommand(&cobra.Command{
		Use:   "add [game]",
		Short: "Add a player to a game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			name, err := promptRequired("Player name")
			if err != nil {
				return err
			}
			cash, err := promptIntDefault("Starting cash", 0, 0)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CreatePlayer(ctx, gameUUID, name, cash)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Added player %s with %s cash.", out.Name, formatCash(out.Cash)))
			return nil
		},
	})
	return player
}

func newCompanyCmd(apiBase *string) *cobra.Command {
	company := &cobra.Command{
		Use:   "company",
		Short: "Company commands",
	}
	company.AddCommand(&cobra.Command{
		Use:   "add [game]",
		Short: "Float a company in a game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			name, err := promptRequired("Company name")
			if err != nil {
				return err
			}
			cash, err := promptIntDefault("Starting treasury", 0, 0)
			if err != nil {
				return err
			}
			shareCount, err := promptIntDefault("Share count", 1, 10)
			if err != nil {
				return err
			}
			textColor, err := promptOptional("Text color (blank for black)")
			if err != nil {
				return err
			}
			backgroundColor, err := promptOptional("Background color (blank for white)")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CreateCompany(ctx, model.Company{
				Game:            gameUUID,
				Name:            name,
				Cash:            cash,
				ShareCount:      shareCount,
				TextColor:       textColor,
				BackgroundColor: backgroundColor,
			})
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Floated %s with %d shares and %s treasury.", out.Name, out.ShareCount, formatCash(out.Cash)))
			return nil
		},
	})
	return company
}

func newTransferCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer [game]",
		Short: "Transfer money between players, companies and the bank",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			st, _, err := loadSession(ctx, client, gameUUID)
			if err != nil {
				return err
			}
			fromText, err := promptOptional("From (name, or blank for bank)")
			if err != nil {
				return err
			}
			toText, err := promptOptional("To (name, or blank for bank)")
			if err != nil {
				return err
			}
			from, err := resolveMoneyParty(st, fromText)
			if err != nil {
				return err
			}
			to, err := resolveMoneyParty(st, toText)
			if err != nil {
				return err
			}
			amount, err := promptInt("Amount", 1)
			if err != nil {
				return err
			}
			result, err := client.TransferMoney(ctx, amount, from, to)
			if err != nil {
				return err
			}
			if result.Log != nil {
				printSuccess(result.Log.Text)
			}
			return nil
		},
	}
}

func newShareCmd(apiBase *string) *cobra.Command {
	share := &cobra.Command{
		Use:   "share",
		Short: "Share trading commands",
	}
	share.AddCommand(&cobra.Command{
		Use:   "buy [game]",
		Short: "Buy shares from the IPO, the pool or another holder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return shareTrade(cmd, apiBase, args, false)
		},
	})
	share.AddCommand(&cobra.Command{
		Use:   "sell [game]",
		Short: "Sell shares to the pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return shareTrade(cmd, apiBase, args, true)
		},
	})
	return share
}

func shareTrade(cmd *cobra.Command, apiBase *string, args []string, sell bool) error {
	gameUUID, err := gameFromArgsOrPrompt(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	client := newClient(apiBase)
	st, _, err := loadSession(ctx, client, gameUUID)
	if err != nil {
		return err
	}
	companyName, err := promptRequired("Company")
	if err != nil {
		return err
	}
	company, ok := st.CompanyByName(companyName)
	if !ok {
		return fmt.Errorf("no company named %q", companyName)
	}

	var buyer, source model.Party
	if sell {
		sellerText, err := promptRequired("Seller (name)")
		if err != nil {
			return err
		}
		source, err = resolveParty(st, sellerText)
		if err != nil {
			return err
		}
		buyer = model.Bank()
	} else {
		buyerText, err := promptRequired("Buyer (name)")
		if err != nil {
			return err
		}
		buyer, err = resolveParty(st, buyerText)
		if err != nil {
			return err
		}
		sourceText, err := promptChoice("Source", []string{"ipo", "bank", "player", "company"}, "ipo")
		if err != nil {
			return err
		}
		switch sourceText {
		case "ipo":
			source = model.IPO()
		case "bank":
			source = model.Bank()
		default:
			holderText, err := promptRequired("Source " + sourceText + " name")
			if err != nil {
				return err
			}
			source, err = resolveParty(st, holderText)
			if err != nil {
				return err
			}
		}
	}

	price, err := promptInt("Price per share", 0)
	if err != nil {
		return err
	}
	amount, err := promptIntDefault("Shares", 1, 1)
	if err != nil {
		return err
	}

	result, err := client.TransferShare(ctx, buyer, &company, source, price, amount)
	if err != nil {
		return err
	}
	if result.Log != nil {
		printSuccess(result.Log.Text)
	}
	return nil
}

func newOperateCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "operate [game]",
		Short: "Run a company operation and pay dividends",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			st, _, err := loadSession(ctx, client, gameUUID)
			if err != nil {
				return err
			}
			companyName, err := promptRequired("Company")
			if err != nil {
				return err
			}
			company, ok := st.CompanyByName(companyName)
			if !ok {
				return fmt.Errorf("no company named %q", companyName)
			}
			amount, err := promptInt("Revenue", 0)
			if err != nil {
				return err
			}
			method, err := promptChoice("Payout", []string{model.PayoutFull, model.PayoutHalf, model.PayoutWithhold}, model.PayoutFull)
			if err != nil {
				return err
			}
			result, err := client.Operate(ctx, &company, amount, method)
			if err != nil {
				return err
			}
			if result.Log != nil {
				printSuccess(result.Log.Text)
			}
			return nil
		},
	}
}

func newValueCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "value [game] [company] [price]",
		Short: "Set a company share value and show resulting net worth",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, _, err := loadSession(ctx, newClient(apiBase), gameUUID)
			if err != nil {
				return err
			}
			companyName := ""
			if len(args) > 1 {
				companyName = args[1]
			} else {
				companyName, err = promptRequired("Company")
				if err != nil {
					return err
				}
			}
			company, ok := st.CompanyByName(companyName)
			if !ok {
				return fmt.Errorf("no company named %q", companyName)
			}
			var price int
			if len(args) > 2 {
				price, err = strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid price %q", args[2])
				}
			} else {
				price, err = promptInt("Share value", 0)
				if err != nil {
					return err
				}
			}
			if err := st.SetCompanyValue(company.UUID, price); err != nil {
				return err
			}
			renderNetWorth(st)
			return nil
		},
	}
}

func newNetWorthCmd(apiBase *string) *cobra.Command {
	var values []string
	cmd := &cobra.Command{
		Use:   "networth [game]",
		Short: "Show player net worth at given share values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, _, err := loadSession(ctx, newClient(apiBase), gameUUID)
			if err != nil {
				return err
			}
			for _, pair := range values {
				name, priceText, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid --value %q, want Name=Price", pair)
				}
				company, found := st.CompanyByName(strings.TrimSpace(name))
				if !found {
					return fmt.Errorf("no company named %q", name)
				}
				price, err := strconv.Atoi(strings.TrimSpace(priceText))
				if err != nil {
					return fmt.Errorf("invalid price in --value %q", pair)
				}
				if err := st.SetCompanyValue(company.UUID, price); err != nil {
					return err
				}
			}
			renderNetWorth(st)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&values, "value", nil, "share value as Name=Price, repeatable")
	return cmd
}

func newLogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "log [game]",
		Short: "Show the game log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			entries, err := newClient(apiBase).ListLog(ctx, gameUUID)
			if err != nil {
				return err
			}
			renderLog(entries)
			return nil
		},
	}
}

func newUndoCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "undo [game]",
		Short: "Undo the most recent action",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return historyWalk(cmd, apiBase, args, "undo")
		},
	}
}

func newRedoCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "redo [game]",
		Short: "Redo the most recently undone action",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return historyWalk(cmd, apiBase, args, "redo")
		},
	}
}

func historyWalk(cmd *cobra.Command, apiBase *string, args []string, action string) error {
	gameUUID, err := gameFromArgsOrPrompt(args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	client := newClient(apiBase)
	game := &model.Game{UUID: gameUUID}
	var result model.ActionResult
	if action == "undo" {
		result, err = client.Undo(ctx, game)
	} else {
		result, err = client.Redo(ctx, game)
	}
	if err != nil {
		return err
	}
	if result.Log != nil {
		printSuccess("Redone: " + result.Log.Text)
	} else {
		printSuccess("Undone.")
	}
	return nil
}
