package game

import (
	"context"
	"fmt"
	"math"
	"time"
)

// UpgradeCost is the price of taking a shop from level to level+1, in micros
// rounded to cents.
func UpgradeCost(b Balance, level int, location string) int64 {
	if level < 1 {
		level = 1
	}
	base := float64(DollarsToMicros(b.BaseUpgradeCost)) * b.costScale(location)
	return RoundCents(base * math.Pow(b.UpgradeGrowth, float64(level-1)))
}

// Upgrade charges the upgrade cost up front and then rolls for failure.
// A failed roll keeps the level and forfeits the money; that is a result,
// not an error.
func (s *Service) Upgrade(ctx context.Context, id, location string) (UpgradeResult, error) {
	def, ok := s.catalog.Location(location)
	if !ok {
		return UpgradeResult{}, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	var out UpgradeResult
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		shop, ok := p.shop(def.Name)
		if !ok {
			return fmt.Errorf("%w: you don't own a shop in %s", ErrShopNotOwned, def.Name)
		}
		cost := UpgradeCost(s.balance, shop.Level, def.Name)
		if p.CashMicros < cost {
			return insufficientFunds(cost, p.CashMicros)
		}
		p.CashMicros -= cost

		out = UpgradeResult{Location: def.Name, Level: shop.Level, CostMicros: cost}
		if s.rand.Float64() < s.balance.UpgradeFailChance {
			out.Message = fmt.Sprintf("The upgrade in %s fell through. You lost %s and %s stays at level %d.",
				def.Name, FormatMoney(cost), shop.Name, shop.Level)
			return nil
		}

		shop.Level++
		p.Stats.Upgrades++
		out.Success = true
		out.Level = shop.Level
		out.Message = fmt.Sprintf("%s in %s is now level %d.", shop.Name, def.Name, shop.Level)
		out.ChallengeMessages, out.Achievements = s.evaluate(p, now, StatUpgrades)
		return nil
	})
	if err != nil {
		return UpgradeResult{}, err
	}
	s.log.Info("shop upgrade", "player_id", id, "location", out.Location, "success", out.Success, "level", out.Level, "cost_micros", out.CostMicros)
	s.notifyAll(ctx, id, out.ChallengeMessages...)
	s.notifyUnlocks(ctx, id, out.Achievements)
	return out, nil
}
