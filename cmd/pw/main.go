package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "pizzawars/internal/cli"
	"pizzawars/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type options struct {
	apiBase    string
	serviceKey string
	playerID   string
}

func main() {
	cfg := config.LoadCLIFromEnv()
	opts := &options{
		apiBase:    cfg.APIBaseURL,
		serviceKey: cfg.ServiceKey,
		playerID:   cfg.PlayerID,
	}

	root := &cobra.Command{
		Use:          "pw",
		Short:        "Pizza Wars command line client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.apiBase, "api", opts.apiBase, "game API base URL")
	root.PersistentFlags().StringVar(&opts.playerID, "player", opts.playerID, "act as this player id")

	root.AddCommand(
		newStartCmd(opts),
		newForgetCmd(),
		newStatusCmd(opts),
		newCollectCmd(opts),
		newShakedownCmd(opts, "pay"),
		newShakedownCmd(opts, "refuse"),
		newUpgradeCmd(opts),
		newExpandCmd(opts),
		newRenameCmd(opts),
		newChallengesCmd(opts),
		newAchievementsCmd(opts),
		newSabotageCmd(opts),
		newLeaderboardCmd(opts),
		newAdminCmd(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(opts *options) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(opts.apiBase), "/"), opts.serviceKey)
}

func currentPlayer(opts *options) (string, error) {
	if id := strings.TrimSpace(opts.playerID); id != "" {
		return id, nil
	}
	profile, err := cl.LoadProfile()
	if err != nil {
		return "", err
	}
	return profile.PlayerID, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start <player-id> [display name]",
		Short: "Open a franchise and remember the player locally",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID := strings.TrimSpace(args[0])
			displayName := strings.TrimSpace(strings.Join(args[1:], " "))
			if displayName == "" {
				var err error
				displayName, err = promptOptional("Display name (optional)")
				if err != nil {
					return err
				}
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			status, err := newClient(opts).Start(ctx, playerID, displayName)
			if err != nil {
				return err
			}
			if err := cl.SaveProfile(cl.Profile{PlayerID: status.PlayerID, DisplayName: status.DisplayName}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Welcome to Pizza Wars, %s!", status.DisplayName))
			renderStatus(status)
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Clear the locally remembered player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearProfile(); err != nil {
				return err
			}
			printSuccess("Profile cleared.")
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your franchise",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			status, err := newClient(opts).Status(ctx, playerID)
			if err != nil {
				return err
			}
			renderStatus(status)
			return nil
		},
	}
}

func newCollectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect income from every shop",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).Collect(ctx, playerID)
			if err != nil {
				return err
			}
			if out.Result.Shakedown != nil {
				printWarn(out.Message)
				printInfo("Answer with `pw pay` or `pw refuse`.")
				return nil
			}
			printSuccess(out.Message)
			renderProgress(out.Result.ChallengeMessages, out.Result.Achievements)
			return nil
		},
	}
}

func newShakedownCmd(opts *options, choice string) *cobra.Command {
	return &cobra.Command{
		Use:   choice,
		Short: fmt.Sprintf("Answer a pending shakedown with %q", choice),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).ResolveShakedown(ctx, playerID, choice)
			if err != nil {
				return err
			}
			if out.LostMicros > 0 {
				printWarn(out.Message)
			} else {
				printSuccess(out.Message)
			}
			renderProgress(out.ChallengeMessages, out.Achievements)
			return nil
		},
	}
}

func newUpgradeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade [location]",
		Short: "Upgrade a shop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			location, err := argOrPrompt(args, 0, "Location")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).Upgrade(ctx, playerID, location)
			if err != nil {
				return err
			}
			if out.Success {
				printSuccess(out.Message)
			} else {
				printError(out.Message)
			}
			renderProgress(out.ChallengeMessages, out.Achievements)
			return nil
		},
	}
}

func newExpandCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "expand [location]",
		Short: "List expansion options or open a new shop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			client := newClient(opts)
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if len(args) == 0 {
				choices, err := client.Expansions(ctx, playerID)
				if err != nil {
					return err
				}
				renderExpansions(choices)
				return nil
			}
			out, err := client.Expand(ctx, playerID, args[0])
			if err != nil {
				return err
			}
			printSuccess(out.Message)
			renderProgress(out.ChallengeMessages, out.Achievements)
			return nil
		},
	}
}

func newRenameCmd(opts *options) *cobra.Command {
	rename := &cobra.Command{
		Use:   "rename",
		Short: "Rename your franchise or a shop",
	}
	rename.AddCommand(&cobra.Command{
		Use:   "franchise <name>",
		Short: "Rename the franchise",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := newClient(opts).SetFranchiseName(ctx, playerID, name); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Franchise renamed to %s.", name))
			return nil
		},
	})
	rename.AddCommand(&cobra.Command{
		Use:   "shop <location> <name>",
		Short: "Rename one shop",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := newClient(opts).RenameShop(ctx, playerID, args[0], name); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Your %s shop is now %s.", args[0], name))
			return nil
		},
	})
	return rename
}

func newChallengesCmd(opts *options) *cobra.Command {
	challenges := &cobra.Command{
		Use:   "challenges",
		Short: "Show your daily and weekly challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).Challenges(ctx, playerID)
			if err != nil {
				return err
			}
			renderChallenges(out)
			return nil
		},
	}
	challenges.AddCommand(&cobra.Command{
		Use:   "new <daily|weekly>",
		Short: "Replace a challenge slot with a fresh one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).NewChallenge(ctx, playerID, args[0])
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("New %s challenge: %s", out.Timescale, out.Description))
			return nil
		},
	})
	return challenges
}

func newAchievementsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "Check for newly earned achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).CheckAchievements(ctx, playerID)
			if err != nil {
				return err
			}
			if len(out) == 0 {
				printInfo("No new achievements.")
				return nil
			}
			renderProgress(nil, out)
			return nil
		},
	}
}

func newSabotageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sabotage [target-id] [location]",
		Short: "Sabotage a rival shop",
		Long:  "Without arguments lists rivals. With a target lists their shops. With both, attempts the sabotage.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := currentPlayer(opts)
			if err != nil {
				return err
			}
			client := newClient(opts)
			ctx, cancel := commandContext(cmd)
			defer cancel()
			switch len(args) {
			case 0:
				targets, err := client.SabotageTargets(ctx, playerID)
				if err != nil {
					return err
				}
				renderTargets(targets)
			case 1:
				shops, err := client.SabotageShops(ctx, playerID, args[0])
				if err != nil {
					return err
				}
				renderTargetShops(args[0], shops)
			default:
				out, err := client.Sabotage(ctx, playerID, args[0], args[1])
				if err != nil {
					return err
				}
				if out.Success {
					printSuccess(out.Message)
				} else {
					printError(out.Message)
				}
			}
			return nil
		},
	}
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	var limit int
	lb := &cobra.Command{
		Use:   "leaderboard",
		Short: "Top franchises by lifetime income",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			rows, err := newClient(opts).Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			renderLeaderboard(rows)
			return nil
		},
	}
	lb.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return lb
}

func newAdminCmd(opts *options) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands",
	}
	admin.AddCommand(&cobra.Command{
		Use:   "refresh-performance",
		Short: "Roll new location performance multipliers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			out, err := newClient(opts).RefreshPerformance(ctx)
			if err != nil {
				return err
			}
			renderPerformance(out)
			return nil
		},
	})
	admin.AddCommand(&cobra.Command{
		Use:   "regenerate <daily|weekly>",
		Short: "Regenerate a challenge slot for every player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			out, err := newClient(opts).RegenerateChallenges(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Regenerated %s challenges: %d processed, %d failed.", args[0], out.Processed, out.Failed))
			return nil
		},
	})
	admin.AddCommand(&cobra.Command{
		Use:   "grant <player-id> <coins> [charge-id]",
		Short: "Credit Pizza Coins after a purchase",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("invalid coin amount %q", args[1])
			}
			chargeID := uuid.NewString()
			if len(args) == 3 {
				chargeID = args[2]
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			balance, err := newClient(opts).CreditPremium(ctx, args[0], amount, chargeID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Credited %d Pizza Coins to %s (balance %d, charge %s).", amount, args[0], balance, chargeID))
			return nil
		},
	})
	return admin
}

func argOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx && strings.TrimSpace(args[idx]) != "" {
		return strings.TrimSpace(args[idx]), nil
	}
	return promptRequired(label)
}
