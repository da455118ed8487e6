package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

func (s *Service) cooldownRemaining(p *Player, now time.Time) time.Duration {
	if p.LastSabotageAt.IsZero() {
		return 0
	}
	ready := p.LastSabotageAt.Add(s.balance.SabotageCooldown)
	if !now.Before(ready) {
		return 0
	}
	return ready.Sub(now)
}

func (s *Service) checkCooldown(ctx context.Context, attackerID string) error {
	return s.update(ctx, attackerID, func(p *Player, now time.Time) error {
		if r := s.cooldownRemaining(p, now); r > 0 {
			return &CooldownError{Remaining: r}
		}
		return errNoChange
	})
}

// InitiateSabotage lists the players the attacker may target, richest first.
func (s *Service) InitiateSabotage(ctx context.Context, attackerID string) ([]TargetCandidate, error) {
	attackerID = strings.TrimSpace(attackerID)
	if err := s.checkCooldown(ctx, attackerID); err != nil {
		return nil, err
	}
	players, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TargetCandidate, 0, len(players))
	for _, p := range players {
		if p.ID == attackerID || len(p.Shops) == 0 {
			continue
		}
		out = append(out, TargetCandidate{
			PlayerID:          p.ID,
			DisplayName:       p.DisplayName,
			FranchiseName:     p.FranchiseName,
			ShopCount:         len(p.Shops),
			TotalIncomeMicros: p.TotalIncomeMicros,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalIncomeMicros != out[j].TotalIncomeMicros {
			return out[i].TotalIncomeMicros > out[j].TotalIncomeMicros
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if limit := s.balance.SabotageTargetLimit; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ChooseTarget lists the target's shops ranked by current income rate.
func (s *Service) ChooseTarget(ctx context.Context, attackerID, targetID string) ([]ShopCandidate, error) {
	attackerID, targetID = strings.TrimSpace(attackerID), strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, ErrTargetNotFound
	}
	if attackerID == targetID {
		return nil, ErrSelfTarget
	}
	if err := s.checkCooldown(ctx, attackerID); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	target, _, err := s.load(ctx, targetID, now, false)
	if err != nil {
		if errors.Is(err, ErrPlayerNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	if len(target.Shops) == 0 {
		return nil, ErrTargetHasNoShops
	}
	out := make([]ShopCandidate, 0, len(target.Shops))
	for name, shop := range target.Shops {
		c := ShopCandidate{
			Location:            name,
			Name:                shop.Name,
			Level:               shop.Level,
			RatePerSecondMicros: s.shopRate(name, shop.Level),
		}
		if shop.ShutdownUntil.After(now) {
			c.ShutdownUntil = shop.ShutdownUntil
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RatePerSecondMicros != out[j].RatePerSecondMicros {
			return out[i].RatePerSecondMicros > out[j].RatePerSecondMicros
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

// topShop is the attacker's highest earning shop, the one a backfire hits.
func (s *Service) topShop(p *Player) string {
	best, bestRate := "", -1.0
	for _, name := range sortedShopNames(p) {
		if rate := s.shopRate(name, p.Shops[name].Level); rate > bestRate {
			best, bestRate = name, rate
		}
	}
	return best
}

func sabotageCost(b Balance, cash int64) int64 {
	return RoundCents(float64(DollarsToMicros(b.SabotageBaseCost)) + float64(cash)*b.SabotageCashPercent)
}

// ChooseShop resolves a sabotage attempt against one of the target's shops.
// The attacker's cooldown restarts whatever the outcome. A success shuts the
// target shop down for free; a failure costs the attacker, if they can pay,
// and may backfire onto the attacker's own best shop.
func (s *Service) ChooseShop(ctx context.Context, attackerID, targetID, location string) (SabotageOutcome, error) {
	def, ok := s.catalog.Location(location)
	if !ok {
		return SabotageOutcome{}, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	var (
		out       SabotageOutcome
		attacker  string
		targetMsg string
	)
	err := s.updatePair(ctx, attackerID, targetID, func(a, t *Player, now time.Time) error {
		if r := s.cooldownRemaining(a, now); r > 0 {
			return &CooldownError{Remaining: r}
		}
		if len(t.Shops) == 0 {
			return ErrTargetHasNoShops
		}
		shop, ok := t.shop(def.Name)
		if !ok {
			return fmt.Errorf("%w: target has no shop in %s", ErrShopNotOwned, def.Name)
		}

		a.LastSabotageAt = now
		attacker = a.DisplayName
		if attacker == "" {
			attacker = a.FranchiseName
		}
		until := now.Add(s.balance.SabotageShutdown)
		out = SabotageOutcome{TargetID: t.ID, Location: def.Name}

		if s.rand.Float64() < s.balance.SabotageSuccessChance {
			shop.ShutdownUntil = until
			out.Success = true
			out.ShutdownUntil = until
			out.Message = fmt.Sprintf("Success! %s in %s is shut down until %s.", shop.Name, def.Name, until.Format(time.Kitchen))
			targetMsg = fmt.Sprintf("%s sabotaged your shop in %s. It is shut down until %s.", attacker, def.Name, until.Format(time.Kitchen))
			return nil
		}

		cost := sabotageCost(s.balance, a.CashMicros)
		if a.CashMicros >= cost {
			a.CashMicros -= cost
			out.CostMicros = cost
		}
		out.Message = fmt.Sprintf("The sabotage in %s failed and cost you %s.", def.Name, FormatMoney(out.CostMicros))
		targetMsg = fmt.Sprintf("Someone tried to sabotage your shop in %s, but your staff stopped them.", def.Name)

		if s.rand.Float64() < s.balance.SabotageBackfireChance {
			if own := s.topShop(a); own != "" {
				a.Shops[own].ShutdownUntil = until
				out.Backfired = true
				out.BackfireLocation = own
				out.ShutdownUntil = until
				out.Message += fmt.Sprintf(" It backfired: your shop in %s is shut down until %s.", own, until.Format(time.Kitchen))
			}
		}
		return nil
	})
	if err != nil {
		return SabotageOutcome{}, err
	}
	s.log.Info("sabotage resolved",
		"player_id", attackerID, "target_id", out.TargetID, "location", out.Location,
		"success", out.Success, "backfired", out.Backfired, "cost_micros", out.CostMicros)
	s.notifyAll(ctx, attackerID, out.Message)
	s.notifyAll(ctx, out.TargetID, targetMsg)
	return out, nil
}
