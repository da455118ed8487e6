package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MicrosPerDollar = int64(1_000_000)
	MicrosPerCent   = MicrosPerDollar / 100

	CurrentSchemaVersion = 2

	maxEntityNameLen    = 48
	maxProcessedCharges = 50
)

var (
	ErrPlayerNotFound       = errors.New("player not found")
	ErrTargetNotFound       = errors.New("target player not found")
	ErrInvalidLocation      = errors.New("unknown location")
	ErrShopNotOwned         = errors.New("shop not owned")
	ErrAlreadyOwned         = errors.New("shop already owned")
	ErrRequirementNotMet    = errors.New("expansion requirement not met")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCooldownActive       = errors.New("sabotage cooldown active")
	ErrSelfTarget           = errors.New("cannot sabotage yourself")
	ErrTargetHasNoShops     = errors.New("target has no shops")
	ErrShakedownPending     = errors.New("a shakedown is waiting for your answer")
	ErrNoShakedown          = errors.New("no shakedown pending")
	ErrInvalidChoice        = errors.New("choice must be pay or refuse")
	ErrInvalidTimescale     = errors.New("timescale must be daily or weekly")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrInvalidName          = errors.New("invalid name")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrConcurrentUpdate     = errors.New("player record changed concurrently")
	ErrTxConflict           = errors.New("could not apply change, please retry")
	ErrStoreUnavailable     = errors.New("storage unavailable, please try again later")
)

var blockedNameFragments = []string{
	"admin",
	"moderator",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

// RequirementError reports why a location cannot be expanded to yet.
type RequirementError struct {
	Location string
	Reason   string
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("you can't expand to %s yet: %s", e.Location, e.Reason)
}

func (e *RequirementError) Unwrap() error { return ErrRequirementNotMet }

// CooldownError carries the wait left before the next sabotage attempt.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: try again in %s", ErrCooldownActive, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

func DollarsToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerDollar)))
}

func MicrosToDollars(v int64) float64 {
	return float64(v) / float64(MicrosPerDollar)
}

// RoundCents rounds a micros amount to whole cents.
func RoundCents(micros float64) int64 {
	return int64(math.Round(micros/float64(MicrosPerCent))) * MicrosPerCent
}

func FormatMoney(micros int64) string {
	return fmt.Sprintf("$%.2f", MicrosToDollars(micros))
}

func insufficientFunds(need, have int64) error {
	return fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, FormatMoney(need), FormatMoney(have))
}

// truncateName cuts name to at most n bytes without splitting a rune.
func truncateName(name string, n int) string {
	if len(name) <= n {
		return name
	}
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}

func validateEntityName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(clean) > maxEntityNameLen {
		return fmt.Errorf("%w: name too long (max %d chars)", ErrInvalidName, maxEntityNameLen)
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("%w: name contains blocked content", ErrInvalidName)
		}
	}
	return nil
}
