package game

import (
	"context"
	"fmt"
	"time"
)

// ShopRate is the current income of a shop in micros per second.
func (s *Service) ShopRate(location string, level int) float64 {
	return s.shopRate(location, level)
}

func (s *Service) shopRate(location string, level int) float64 {
	if level < 1 {
		level = 1
	}
	perSecond := s.balance.BaseIncomePerSecond * float64(MicrosPerDollar)
	return perSecond * float64(level) * s.catalog.gdp(location) * s.perf.Multiplier(location)
}

// earningSeconds is the part of [LastCollectedAt, now] the shop was open.
// A shop that is still shut down earns nothing, and earning restarts at
// ShutdownUntil once the shutdown has passed.
func earningSeconds(shop *Shop, now time.Time) float64 {
	if now.Before(shop.ShutdownUntil) {
		return 0
	}
	start := shop.LastCollectedAt
	if shop.ShutdownUntil.After(start) {
		start = shop.ShutdownUntil
	}
	if !now.After(start) {
		return 0
	}
	return now.Sub(start).Seconds()
}

func (s *Service) uncollected(p *Player, now time.Time) int64 {
	var total float64
	for name, shop := range p.Shops {
		total += s.shopRate(name, shop.Level) * earningSeconds(shop, now)
	}
	if total <= 0 {
		return 0
	}
	return RoundCents(total)
}

func (s *Service) UncollectedIncome(ctx context.Context, id string) (int64, error) {
	var out int64
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		out = s.uncollected(p, now)
		return errNoChange
	})
	return out, err
}

// creditIncome books collected money as cash, lifetime and session income.
func creditIncome(p *Player, micros int64) {
	if micros <= 0 {
		return
	}
	p.addCash(micros)
	p.TotalIncomeMicros += micros
	p.Stats.IncomeMicros += micros
}

// Collect pays out everything the player's shops earned since the last
// collection. Every shakedown-th paying collection is held back as a pending
// shakedown instead, which ResolveShakedown settles.
func (s *Service) Collect(ctx context.Context, id string) (CollectResult, error) {
	var out CollectResult
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		out = CollectResult{}
		if p.PendingShakedown != nil {
			return ErrShakedownPending
		}
		amount := s.uncollected(p, now)
		if amount < DollarsToMicros(s.balance.CollectEpsilon) {
			return errNoChange
		}
		for _, shop := range p.Shops {
			shop.LastCollectedAt = now
		}
		p.CollectionCount++
		out.AmountMicros = amount

		if p.CollectionCount%s.balance.ShakedownEvery == 0 {
			sd := s.newShakedown(amount, now)
			p.PendingShakedown = sd
			out.Shakedown = shakedownView(sd)
			return nil
		}

		p.Stats.Collects++
		creditIncome(p, amount)
		if tip := s.rollTip(amount); tip > 0 {
			p.addCash(tip)
			out.TipMicros = tip
		}
		out.ChallengeMessages, out.Achievements = s.evaluate(p, now, StatIncome, StatCollects)
		return nil
	})
	if err != nil {
		return CollectResult{}, err
	}
	if out.Shakedown != nil {
		s.log.Info("shakedown triggered", "player_id", id, "amount_micros", out.AmountMicros, "demand_micros", out.Shakedown.DemandMicros)
	}
	s.notifyAll(ctx, id, out.ChallengeMessages...)
	s.notifyUnlocks(ctx, id, out.Achievements)
	return out, nil
}

// CollectMessage renders a collect result the way the chat layer shows it.
func CollectMessage(r CollectResult) string {
	switch {
	case r.Shakedown != nil:
		return fmt.Sprintf("The mob wants a cut of your %s collection. They demand %s. Pay or refuse?",
			FormatMoney(r.Shakedown.AmountMicros), FormatMoney(r.Shakedown.DemandMicros))
	case r.AmountMicros == 0:
		return "Nothing to collect yet."
	case r.TipMicros > 0:
		return fmt.Sprintf("You collected %s. A generous customer left a %s tip!", FormatMoney(r.AmountMicros), FormatMoney(r.TipMicros))
	default:
		return fmt.Sprintf("You collected %s.", FormatMoney(r.AmountMicros))
	}
}
