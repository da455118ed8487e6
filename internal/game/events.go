package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func ParseShakedownChoice(v string) (ShakedownChoice, error) {
	switch ShakedownChoice(strings.ToLower(strings.TrimSpace(v))) {
	case ShakedownPay:
		return ShakedownPay, nil
	case ShakedownRefuse:
		return ShakedownRefuse, nil
	default:
		return "", ErrInvalidChoice
	}
}

// newShakedown demands a random share of the held-back collection. The demand
// is always strictly between zero and the amount.
func (s *Service) newShakedown(amount int64, now time.Time) *Shakedown {
	lo, hi := s.balance.ShakedownDemandMin, s.balance.ShakedownDemandMax
	frac := lo + s.rand.Float64()*(hi-lo)
	demand := RoundCents(float64(amount) * frac)
	if demand <= 0 || demand >= amount {
		demand = int64(float64(amount) * frac)
	}
	if demand <= 0 {
		demand = 1
	}
	if demand >= amount {
		demand = amount - 1
	}
	return &Shakedown{
		ID:           uuid.NewString(),
		AmountMicros: amount,
		DemandMicros: demand,
		CreatedAt:    now,
	}
}

func shakedownView(sd *Shakedown) *ShakedownView {
	return &ShakedownView{ID: sd.ID, AmountMicros: sd.AmountMicros, DemandMicros: sd.DemandMicros}
}

// rollTip returns the bonus for an ordinary collection, or zero.
func (s *Service) rollTip(amount int64) int64 {
	if s.rand.Float64() >= s.balance.TipChance {
		return 0
	}
	return RoundCents(float64(amount)*s.balance.TipRate + float64(DollarsToMicros(s.balance.TipFlat)))
}

// ResolveShakedown settles a pending shakedown. Paying keeps the collection
// minus the demand; refusing is a coin flip between keeping all and nothing.
func (s *Service) ResolveShakedown(ctx context.Context, id string, choice ShakedownChoice) (ShakedownResult, error) {
	choice, err := ParseShakedownChoice(string(choice))
	if err != nil {
		return ShakedownResult{}, err
	}

	var out ShakedownResult
	err = s.update(ctx, id, func(p *Player, now time.Time) error {
		sd := p.PendingShakedown
		if sd == nil {
			return ErrNoShakedown
		}
		out = ShakedownResult{Choice: choice}
		switch choice {
		case ShakedownPay:
			out.KeptMicros = max(sd.AmountMicros-sd.DemandMicros, 0)
			out.Message = fmt.Sprintf("You paid the mob %s and kept %s.", FormatMoney(sd.DemandMicros), FormatMoney(out.KeptMicros))
		case ShakedownRefuse:
			if s.rand.Float64() < 0.5 {
				out.KeptMicros = sd.AmountMicros
				out.Message = fmt.Sprintf("You stood your ground and kept all %s!", FormatMoney(sd.AmountMicros))
			} else {
				out.Message = fmt.Sprintf("The mob trashed the register. You lost all %s.", FormatMoney(sd.AmountMicros))
			}
		}
		out.LostMicros = sd.AmountMicros - out.KeptMicros
		p.PendingShakedown = nil

		changed := []StatKind{StatCollects}
		p.Stats.Collects++
		if out.KeptMicros > 0 {
			creditIncome(p, out.KeptMicros)
			changed = append(changed, StatIncome)
		}
		out.ChallengeMessages, out.Achievements = s.evaluate(p, now, changed...)
		return nil
	})
	if err != nil {
		return ShakedownResult{}, err
	}
	s.log.Info("shakedown resolved", "player_id", id, "choice", choice, "kept_micros", out.KeptMicros, "lost_micros", out.LostMicros)
	s.notifyAll(ctx, id, out.ChallengeMessages...)
	s.notifyUnlocks(ctx, id, out.Achievements)
	return out, nil
}
