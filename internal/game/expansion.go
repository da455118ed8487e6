package game

import (
	"context"
	"fmt"
	"sort"
	"time"
)

func ExpansionCost(b Balance, location string) int64 {
	return RoundCents(float64(DollarsToMicros(b.BaseExpansionCost)) * b.costScale(location))
}

// availableExpansions lists unowned locations whose requirement the player
// meets, cheapest first.
func (s *Service) availableExpansions(p *Player) []ExpansionView {
	out := make([]ExpansionView, 0)
	for _, def := range s.catalog.Expandable() {
		if _, owned := p.Shops[def.Name]; owned {
			continue
		}
		if !s.catalog.RequirementMet(p, def) {
			continue
		}
		out = append(out, ExpansionView{
			Location:    def.Name,
			CostMicros:  ExpansionCost(s.balance, def.Name),
			GDPFactor:   def.GDPFactor,
			Requirement: def.Requirement,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CostMicros != out[j].CostMicros {
			return out[i].CostMicros < out[j].CostMicros
		}
		return out[i].Location < out[j].Location
	})
	return out
}

func (s *Service) AvailableExpansions(ctx context.Context, id string) ([]ExpansionView, error) {
	var out []ExpansionView
	err := s.update(ctx, id, func(p *Player, _ time.Time) error {
		out = s.availableExpansions(p)
		return errNoChange
	})
	return out, err
}

func (s *Service) Expand(ctx context.Context, id, location string) (ExpandResult, error) {
	def, ok := s.catalog.Location(location)
	if !ok {
		return ExpandResult{}, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	var out ExpandResult
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		if _, owned := p.Shops[def.Name]; owned {
			return fmt.Errorf("%w: you already have a shop in %s", ErrAlreadyOwned, def.Name)
		}
		if !s.catalog.RequirementMet(p, def) {
			return &RequirementError{Location: def.Name, Reason: s.catalog.RequirementReason(def)}
		}
		cost := ExpansionCost(s.balance, def.Name)
		if p.CashMicros < cost {
			return insufficientFunds(cost, p.CashMicros)
		}
		p.CashMicros -= cost
		p.Shops[def.Name] = &Shop{Level: 1, Name: def.Name, LastCollectedAt: now}
		p.Stats.Expansions++

		out = ExpandResult{
			Location:   def.Name,
			CostMicros: cost,
			Message:    fmt.Sprintf("You opened a new shop in %s for %s!", def.Name, FormatMoney(cost)),
		}
		out.ChallengeMessages, out.Achievements = s.evaluate(p, now, StatExpansions)
		return nil
	})
	if err != nil {
		return ExpandResult{}, err
	}
	s.log.Info("shop opened", "player_id", id, "location", out.Location, "cost_micros", out.CostMicros)
	s.notifyAll(ctx, id, out.ChallengeMessages...)
	s.notifyUnlocks(ctx, id, out.Achievements)
	return out, nil
}
