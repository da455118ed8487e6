package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"pizzawars/internal/game"

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

func renderStatus(s game.StatusView) {
	title := s.FranchiseName
	if s.Title != "" {
		title = fmt.Sprintf("%s (%s)", title, s.Title)
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	fmt.Printf("Owner:        %s\n", s.DisplayName)
	fmt.Printf("Cash:         %s\n", colorizeMicros(s.CashMicros))
	fmt.Printf("Pizza Coins:  %d\n", s.PizzaCoins)
	fmt.Printf("Uncollected:  %s\n", colorizeMicros(s.UncollectedMicros))
	fmt.Printf("Income rate:  %s/hr\n", formatMicros(int64(s.IncomeRatePerSecMicros*3600)))
	fmt.Printf("Lifetime:     %s\n", formatMicros(s.TotalIncomeMicros))
	fmt.Printf("Achievements: %d\n", s.AchievementCount)
	if !s.SabotageReadyAt.IsZero() && s.SabotageReadyAt.After(time.Now()) {
		fmt.Printf("Sabotage:     ready in %s\n", time.Until(s.SabotageReadyAt).Round(time.Minute))
	}

	fmt.Printf("\n%-16s %-22s %5s %12s %8s %14s\n", "LOCATION", "NAME", "LVL", "PER HOUR", "PERF", "UPGRADE")
	for _, shop := range s.Shops {
		rate := formatMicros(int64(shop.RatePerSecondMicros * 3600))
		if !shop.ShutdownUntil.IsZero() {
			rate = danger.Sprint("CLOSED")
		}
		fmt.Printf("%-16s %-22s %5d %12s %8s %14s\n",
			truncate(shop.Location, 16),
			truncate(shop.Name, 22),
			shop.Level,
			rate,
			colorizeMultiplier(shop.PerformanceMultiplier),
			formatMicros(shop.UpgradeCostMicros),
		)
	}
	if s.PendingShakedown != nil {
		fmt.Println()
		printWarn(fmt.Sprintf("The mob is waiting: they want %s of your %s. Run `pw pay` or `pw refuse`.",
			formatMicros(s.PendingShakedown.DemandMicros), formatMicros(s.PendingShakedown.AmountMicros)))
	}
	fmt.Println()
}

func renderProgress(challengeMessages []string, unlocked []game.UnlockedAchievement) {
	for _, msg := range challengeMessages {
		printSuccess(msg)
	}
	for _, a := range unlocked {
		line := fmt.Sprintf("Achievement unlocked: %s. %s", a.Name, a.Description)
		if a.Title != "" {
			line += " New title: " + a.Title
		}
		accent.Println(line)
	}
}

func renderExpansions(options []game.ExpansionView) {
	accent.Println("\n== EXPANSION OPTIONS ==")
	if len(options) == 0 {
		printInfo("You already own every location.")
		return
	}
	fmt.Printf("%-16s %14s %6s  %s\n", "LOCATION", "COST", "GDP", "REQUIREMENT")
	for _, opt := range options {
		req := "-"
		if opt.Requirement.Kind != "" {
			req = fmt.Sprintf("%s %s %g", opt.Requirement.Kind, opt.Requirement.Location, opt.Requirement.Value)
		}
		fmt.Printf("%-16s %14s %6.2f  %s\n", truncate(opt.Location, 16), formatMicros(opt.CostMicros), opt.GDPFactor, strings.TrimSpace(req))
	}
	fmt.Println()
}

func renderChallenges(views []game.ChallengeView) {
	accent.Println("\n== CHALLENGES ==")
	if len(views) == 0 {
		printInfo("No active challenges.")
		return
	}
	for _, c := range views {
		pct := int64(100)
		if c.Goal > 0 {
			pct = c.Progress * 100 / c.Goal
		}
		state := neutral.Sprintf("%d%%", pct)
		if c.Completed {
			state = success.Sprint("done")
		}
		reward := fmt.Sprintf("%d Pizza Coins", c.Reward)
		if c.RewardKind == game.RewardCash {
			reward = formatMicros(c.Reward * game.MicrosPerDollar)
		}
		fmt.Printf("%-7s %-48s %12s  reward %s\n", strings.ToUpper(string(c.Timescale)), truncate(c.Description, 48), state, reward)
	}
	fmt.Println()
}

func renderTargets(targets []game.TargetCandidate) {
	accent.Println("\n== RIVALS ==")
	if len(targets) == 0 {
		printInfo("Nobody worth sabotaging yet.")
		return
	}
	fmt.Printf("%-20s %-24s %6s %16s\n", "PLAYER", "FRANCHISE", "SHOPS", "LIFETIME")
	for _, t := range targets {
		fmt.Printf("%-20s %-24s %6d %16s\n", truncate(t.PlayerID, 20), truncate(t.FranchiseName, 24), t.ShopCount, formatMicros(t.TotalIncomeMicros))
	}
	fmt.Println()
}

func renderTargetShops(targetID string, shops []game.ShopCandidate) {
	accent.Printf("\n== %s SHOPS ==\n", strings.ToUpper(targetID))
	fmt.Printf("%-16s %-22s %5s %12s\n", "LOCATION", "NAME", "LVL", "PER HOUR")
	for _, shop := range shops {
		rate := formatMicros(int64(shop.RatePerSecondMicros * 3600))
		if !shop.ShutdownUntil.IsZero() {
			rate = danger.Sprint("CLOSED")
		}
		fmt.Printf("%-16s %-22s %5d %12s\n", truncate(shop.Location, 16), truncate(shop.Name, 22), shop.Level, rate)
	}
	fmt.Println()
}

func renderLeaderboard(rows []game.LeaderboardRow) {
	accent.Println("\n== LEADERBOARD ==")
	if len(rows) == 0 {
		printInfo("No leaderboard rows yet.")
		return
	}
	fmt.Printf("%-6s %-18s %-24s %6s %16s\n", "RANK", "PLAYER", "FRANCHISE", "SHOPS", "LIFETIME")
	for _, row := range rows {
		fmt.Printf("%-6d %-18s %-24s %6d %16s\n",
			row.Rank,
			truncate(row.DisplayName, 18),
			truncate(row.FranchiseName, 24),
			row.ShopCount,
			formatMicros(row.TotalIncomeMicros),
		)
	}
	fmt.Println()
}

func renderPerformance(multipliers map[string]float64) {
	accent.Println("\n== LOCATION PERFORMANCE ==")
	names := make([]string, 0, len(multipliers))
	for name := range multipliers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-16s %s\n", name, colorizeMultiplier(multipliers[name]))
	}
	fmt.Println()
}

func colorizeMicros(v int64) string {
	text := formatMicros(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeMultiplier(v float64) string {
	text := fmt.Sprintf("x%.2f", v)
	switch {
	case v > 1:
		return success.Sprint(text)
	case v < 1:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatMicros(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / game.MicrosPerDollar
	frac := (v % game.MicrosPerDollar) / game.MicrosPerCent
	return fmt.Sprintf("%s$%s.%02d", sign, comma(whole), frac)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
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
