package game

import (
	"context"
	"strings"
	"time"
)

// CheckAndUnlock unlocks every achievement whose threshold the player now
// meets, paying its reward. Unlocked ids are never removed. A title is only
// equipped when it ranks at least as high as the one already worn, where rank
// is the order of defs.
func CheckAndUnlock(p *Player, defs []AchievementDefinition, now time.Time) []UnlockedAchievement {
	var out []UnlockedAchievement
	for i, def := range defs {
		if _, done := p.Achievements[def.ID]; done {
			continue
		}
		if !achievementMet(p, def) {
			continue
		}
		p.Achievements[def.ID] = now
		p.grant(def.Reward.Kind, def.Reward.Amount)
		if def.Title != "" && i >= titleRank(defs, p.Title) {
			p.Title = def.Title
		}
		out = append(out, UnlockedAchievement{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Title:       def.Title,
		})
	}
	return out
}

func achievementMet(p *Player, def AchievementDefinition) bool {
	switch def.Metric.Kind {
	case MetricTotalIncome:
		return p.TotalIncomeMicros >= DollarsToMicros(def.Threshold)
	case MetricShopCount:
		return float64(len(p.Shops)) >= def.Threshold
	case MetricShopLevel:
		shop, ok := ownedShop(p, def.Metric.Location)
		return ok && float64(shop.Level) >= def.Threshold
	case MetricOwnsShop:
		_, ok := ownedShop(p, def.Metric.Location)
		return ok
	}
	return false
}

func titleRank(defs []AchievementDefinition, title string) int {
	if title == "" {
		return -1
	}
	for i, def := range defs {
		if def.Title == title {
			return i
		}
	}
	return -1
}

func ownedShop(p *Player, location string) (*Shop, bool) {
	if shop, ok := p.Shops[location]; ok {
		return shop, true
	}
	for name, shop := range p.Shops {
		if strings.EqualFold(name, location) {
			return shop, true
		}
	}
	return nil, false
}

// evaluate runs challenge progress for the changed counters and then the
// achievement check, on the player's final state.
func (s *Service) evaluate(p *Player, now time.Time, changed ...StatKind) ([]string, []UnlockedAchievement) {
	messages := EvaluateChallenges(p, changed...)
	unlocked := CheckAndUnlock(p, s.balance.Achievements, now)
	return messages, unlocked
}

func (s *Service) CheckAchievements(ctx context.Context, id string) ([]UnlockedAchievement, error) {
	var out []UnlockedAchievement
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		out = CheckAndUnlock(p, s.balance.Achievements, now)
		if len(out) == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		s.log.Info("achievements unlocked", "player_id", id, "count", len(out))
	}
	s.notifyUnlocks(ctx, id, out)
	return out, nil
}
