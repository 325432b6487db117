package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"railbank/internal/model"
	"railbank/internal/report"
	"railbank/internal/state"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptInt(label string, min int) (int, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptIntDefault(label string, min, fallback int) (int, error) {
	for {
		fmt.Printf("%s [%d]: ", label, fallback)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return fallback, nil
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func renderGames(games []model.Game) {
	accent.Println("\n== GAMES ==")
	if len(games) == 0 {
		printInfo("No games on the server yet.")
		return
	}
	fmt.Printf("%-38s %12s %8s %10s\n", "UUID", "BANK", "PLAYERS", "COMPANIES")
	for _, g := range games {
		fmt.Printf("%-38s %12s %8d %10d\n",
			g.UUID,
			formatCash(g.Cash),
			len(g.Players),
			len(g.Companies),
		)
	}
	fmt.Println()
}

func renderOverview(st *state.State) {
	game, ok := st.Game()
	if !ok {
		printWarn("No game loaded.")
		return
	}
	accent.Printf("\n== GAME %s ==\n", game.UUID)
	fmt.Printf("Bank: %s\n", formatCash(game.Cash))

	players := st.Players()
	fmt.Println()
	accent.Println("Players")
	if len(players) == 0 {
		printInfo("No players yet.")
	} else {
		fmt.Printf("%-18s %12s %-40s\n", "NAME", "CASH", "SHARES")
		for _, p := range players {
			fmt.Printf("%-18s %12s %-40s\n",
				truncate(p.Name, 18),
				formatCash(p.Cash),
				truncate(holdingsSummary(st.ShareInfo(&p)), 40),
			)
		}
	}

	companies := st.Companies()
	fmt.Println()
	accent.Println("Companies")
	if len(companies) == 0 {
		printInfo("No companies yet.")
	} else {
		fmt.Printf("%-18s %12s %7s %6s %6s %8s\n", "NAME", "TREASURY", "SHARES", "IPO", "POOL", "VALUE")
		for _, c := range companies {
			fmt.Printf("%-18s %12s %7d %6d %6d %8s\n",
				truncate(c.Name, 18),
				formatCash(c.Cash),
				c.ShareCount,
				c.IPOShares,
				c.BankShares,
				formatCash(c.Value),
			)
		}
	}
	fmt.Println()
}

func holdingsSummary(infos []state.ShareInfo) string {
	if len(infos) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(infos))
	for _, info := range infos {
		parts = append(parts, fmt.Sprintf("%s %d/%d", info.Name, info.Shares, info.ShareCount))
	}
	return strings.Join(parts, ", ")
}

func renderNetWorth(st *state.State) {
	accent.Println("\n== NET WORTH ==")
	players := st.Players()
	if len(players) == 0 {
		printInfo("No players yet.")
		return
	}
	fmt.Printf("%-18s %12s %12s\n", "NAME", "CASH", "NET WORTH")
	for _, p := range players {
		worth := st.NetWorth(&p)
		fmt.Printf("%-18s %12s %12s\n",
			truncate(p.Name, 18),
			formatCash(p.Cash),
			formatCash(worth.Total),
		)
	}
	fmt.Println()
}

func renderLog(entries []model.LogEntry) {
	accent.Println("\n== LOG ==")
	if len(entries) == 0 {
		printInfo("Nothing has happened yet.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%-17s %s\n", e.Time.Local().Format("2006-01-02 15:04"), e.Text)
	}
	fmt.Println()
}

func reportErrors(rep *report.Reporter) {
	for _, msg := range rep.Errors() {
		printError(msg)
	}
	rep.Clear()
}

func formatCash(v int) string {
	if v < 0 {
		return "-" + comma(-v)
	}
	return comma(v)
}

func comma(v int) string {
	s := strconv.Itoa(v)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
