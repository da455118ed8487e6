package game

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// GenerateChallenge replaces the active challenge of a timescale. Goals and
// rewards grow with the number of unlocked achievements. Generating either
// timescale resets the shared session counters.
func GenerateChallenge(p *Player, b Balance, ts Timescale, now time.Time, rng Rand) *Challenge {
	tpl := b.Challenges[rng.Intn(len(b.Challenges))]
	level := float64(p.unlockedCount())
	scale := b.ChallengeScale[ts]
	if scale <= 0 {
		scale = 1
	}

	goal := int64(math.Round(tpl.BaseGoal * math.Pow(tpl.GoalGrowth, level) * scale))
	if floor := b.ChallengeMinGoal[tpl.Metric]; goal < floor {
		goal = floor
	}
	if goal < 1 {
		goal = 1
	}
	reward := int64(math.Round(tpl.BaseReward * math.Pow(tpl.RewardGrowth, level) * scale))
	if floor := b.ChallengeMinReward[tpl.RewardKind]; reward < floor {
		reward = floor
	}
	if reward < 1 {
		reward = 1
	}

	c := &Challenge{
		ID:          fmt.Sprintf("%s-%s-%d", tpl.ID, ts, now.UnixNano()),
		TemplateID:  tpl.ID,
		Description: describeGoal(tpl, goal),
		Metric:      tpl.Metric,
		Goal:        goal,
		RewardKind:  tpl.RewardKind,
		Reward:      reward,
		GeneratedAt: now,
	}
	p.Challenges[ts] = c
	p.ChallengeProgress[ts] = make(map[string]bool)
	p.resetStats()
	return c
}

func describeGoal(tpl ChallengeTemplate, goal int64) string {
	v := strconv.FormatInt(goal, 10)
	if tpl.Metric == StatIncome {
		v = FormatMoney(goal * MicrosPerDollar)
	}
	if !strings.Contains(tpl.Description, "%s") {
		return tpl.Description
	}
	return fmt.Sprintf(tpl.Description, v)
}

func rewardText(kind RewardKind, amount int64) string {
	if kind == RewardPremium {
		return fmt.Sprintf("%d Pizza Coins", amount)
	}
	return FormatMoney(amount * MicrosPerDollar)
}

// EvaluateChallenges grants every active challenge whose tracked counter is
// among changed and has reached its goal. An instance pays out at most once.
// With no changed counters every timescale is checked.
func EvaluateChallenges(p *Player, changed ...StatKind) []string {
	var messages []string
	for _, ts := range Timescales {
		c := p.Challenges[ts]
		if c == nil {
			continue
		}
		if len(changed) > 0 && !slices.Contains(changed, c.Metric) {
			continue
		}
		if p.ChallengeProgress[ts][c.ID] {
			continue
		}
		if p.Stats.value(c.Metric) < c.Goal {
			continue
		}
		p.grant(c.RewardKind, c.Reward)
		p.ChallengeProgress[ts][c.ID] = true
		messages = append(messages, fmt.Sprintf("%s challenge complete: %s. You earned %s!",
			strings.ToUpper(string(ts[:1]))+string(ts[1:]), c.Description, rewardText(c.RewardKind, c.Reward)))
	}
	return messages
}

// ensureChallenges fills absent or expired slots and reports whether it did.
func (s *Service) ensureChallenges(p *Player, now time.Time) bool {
	changed := false
	for _, ts := range Timescales {
		c := p.Challenges[ts]
		if c != nil && now.Sub(c.GeneratedAt) < ts.Period() {
			continue
		}
		GenerateChallenge(p, s.balance, ts, now, s.rand)
		changed = true
	}
	return changed
}

func (s *Service) challengeViews(p *Player) []ChallengeView {
	out := make([]ChallengeView, 0, len(Timescales))
	for _, ts := range Timescales {
		c := p.Challenges[ts]
		if c == nil {
			continue
		}
		out = append(out, challengeView(p, ts, c))
	}
	return out
}

func challengeView(p *Player, ts Timescale, c *Challenge) ChallengeView {
	return ChallengeView{
		Timescale:   ts,
		ID:          c.ID,
		Description: c.Description,
		Metric:      c.Metric,
		Goal:        c.Goal,
		Progress:    min(p.Stats.value(c.Metric), c.Goal),
		RewardKind:  c.RewardKind,
		Reward:      c.Reward,
		Completed:   p.ChallengeProgress[ts][c.ID],
		GeneratedAt: c.GeneratedAt,
	}
}

func (s *Service) GetChallenges(ctx context.Context, id string) ([]ChallengeView, error) {
	var out []ChallengeView
	err := s.update(ctx, id, func(p *Player, _ time.Time) error {
		out = s.challengeViews(p)
		return errNoChange
	})
	return out, err
}

func (s *Service) GenerateChallenge(ctx context.Context, id string, ts Timescale) (ChallengeView, error) {
	if _, err := ParseTimescale(string(ts)); err != nil {
		return ChallengeView{}, err
	}
	var out ChallengeView
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		c := GenerateChallenge(p, s.balance, ts, now, s.rand)
		out = challengeView(p, ts, c)
		return nil
	})
	return out, err
}

// RegenerateChallenges is the scheduled batch job. One player's failure is
// logged and counted, never fatal to the batch.
func (s *Service) RegenerateChallenges(ctx context.Context, ts Timescale) (BatchReport, error) {
	if _, err := ParseTimescale(string(ts)); err != nil {
		return BatchReport{}, err
	}
	ids, err := s.listIDs(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	var report BatchReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := s.GenerateChallenge(ctx, id, ts)
		if err != nil {
			report.Failed++
			s.log.Error("regenerate challenge failed", "player_id", id, "timescale", ts, "err", err)
			continue
		}
		report.Processed++
	}
	s.log.Info("challenges regenerated", "timescale", ts, "processed", report.Processed, "failed", report.Failed)
	return report, nil
}
