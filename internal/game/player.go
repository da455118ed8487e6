package game

import (
	"encoding/json"
	"strings"
	"time"
)

type Shop struct {
	Level           int       `json:"level"`
	Name            string    `json:"name"`
	LastCollectedAt time.Time `json:"last_collected_at"`
	ShutdownUntil   time.Time `json:"shutdown_until,omitzero"`
}

// SessionStats are the counters challenges measure progress against.
// They reset whenever a challenge is generated.
type SessionStats struct {
	IncomeMicros int64 `json:"income_micros"`
	Upgrades     int64 `json:"upgrades"`
	Collects     int64 `json:"collects"`
	Expansions   int64 `json:"expansions"`
}

func (s SessionStats) value(kind StatKind) int64 {
	switch kind {
	case StatIncome:
		return s.IncomeMicros / MicrosPerDollar
	case StatUpgrades:
		return s.Upgrades
	case StatCollects:
		return s.Collects
	case StatExpansions:
		return s.Expansions
	}
	return 0
}

type Challenge struct {
	ID          string     `json:"id"`
	TemplateID  string     `json:"template_id"`
	Description string     `json:"description"`
	Metric      StatKind   `json:"metric"`
	Goal        int64      `json:"goal"`
	RewardKind  RewardKind `json:"reward_kind"`
	Reward      int64      `json:"reward"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type Shakedown struct {
	ID           string    `json:"id"`
	AmountMicros int64     `json:"amount_micros"`
	DemandMicros int64     `json:"demand_micros"`
	CreatedAt    time.Time `json:"created_at"`
}

type Player struct {
	ID            string `json:"id"`
	SchemaVersion int    `json:"schema_version"`
	// Version is the optimistic concurrency token; stores bump it on every save.
	Version int64 `json:"-"`

	DisplayName   string `json:"display_name"`
	FranchiseName string `json:"franchise_name"`

	CashMicros        int64 `json:"cash_micros"`
	PizzaCoins        int64 `json:"pizza_coins"`
	TotalIncomeMicros int64 `json:"total_income_micros"`
	CollectionCount   int64 `json:"collection_count"`

	LastLoginAt    time.Time `json:"last_login_at"`
	LastSabotageAt time.Time `json:"last_sabotage_at,omitzero"`
	CreatedAt      time.Time `json:"created_at"`

	Achievements      map[string]time.Time          `json:"achievements"`
	Title             string                        `json:"title,omitempty"`
	Challenges        map[Timescale]*Challenge      `json:"challenges"`
	ChallengeProgress map[Timescale]map[string]bool `json:"challenge_progress"`
	Stats             SessionStats                  `json:"stats"`
	Shops             map[string]*Shop              `json:"shops"`
	PendingShakedown  *Shakedown                    `json:"pending_shakedown,omitempty"`
	ProcessedCharges  []string                      `json:"processed_charges,omitempty"`
}

// NewPlayer returns the default state for a first-time player.
func NewPlayer(id string, b Balance, now time.Time) Player {
	p := Player{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
		FranchiseName: "Pizza Wars Franchise",
		CashMicros:    DollarsToMicros(b.StartingCash),
		LastLoginAt:   now,
		CreatedAt:     now,
		Shops: map[string]*Shop{
			b.StarterLocation: {Level: 1, Name: b.StarterLocation, LastCollectedAt: now},
		},
	}
	MigratePlayer(&p, b, now)
	return p
}

// MigratePlayer brings a loaded record up to CurrentSchemaVersion. It is applied
// once at load time so read sites never have to backfill fields.
func MigratePlayer(p *Player, b Balance, now time.Time) {
	if p.Achievements == nil {
		p.Achievements = make(map[string]time.Time)
	}
	if p.Challenges == nil {
		p.Challenges = make(map[Timescale]*Challenge)
	}
	if p.ChallengeProgress == nil {
		p.ChallengeProgress = make(map[Timescale]map[string]bool)
	}
	for _, ts := range Timescales {
		if p.ChallengeProgress[ts] == nil {
			p.ChallengeProgress[ts] = make(map[string]bool)
		}
	}
	if p.Shops == nil {
		p.Shops = make(map[string]*Shop)
	}
	if len(p.Shops) == 0 && p.SchemaVersion < CurrentSchemaVersion {
		p.Shops[b.StarterLocation] = &Shop{Level: 1, Name: b.StarterLocation, LastCollectedAt: now}
	}
	for name, shop := range p.Shops {
		if shop == nil {
			shop = &Shop{LastCollectedAt: now}
			p.Shops[name] = shop
		}
		if shop.Level < 1 {
			shop.Level = 1
		}
		if strings.TrimSpace(shop.Name) == "" {
			shop.Name = name
		}
		if shop.LastCollectedAt.IsZero() || shop.LastCollectedAt.After(now) {
			shop.LastCollectedAt = now
		}
	}
	if p.CashMicros < 0 {
		p.CashMicros = 0
	}
	if p.PizzaCoins < 0 {
		p.PizzaCoins = 0
	}
	if p.TotalIncomeMicros < 0 {
		p.TotalIncomeMicros = 0
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.SchemaVersion = CurrentSchemaVersion
}

// Clone returns a deep copy, so a failed save never leaks half-applied state.
func (p Player) Clone() Player {
	raw, err := json.Marshal(p)
	if err != nil {
		panic("game: clone player: " + err.Error())
	}
	var out Player
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("game: clone player: " + err.Error())
	}
	out.Version = p.Version
	return out
}

func (p *Player) shop(location string) (*Shop, bool) {
	s, ok := p.Shops[location]
	return s, ok
}

func (p *Player) unlockedCount() int {
	return len(p.Achievements)
}

func (p *Player) addCash(micros int64) {
	p.CashMicros += micros
	if p.CashMicros < 0 {
		p.CashMicros = 0
	}
}

func (p *Player) grant(kind RewardKind, amount int64) {
	switch kind {
	case RewardCash:
		p.addCash(amount * MicrosPerDollar)
	case RewardPremium:
		p.PizzaCoins += amount
	}
}

func (p *Player) resetStats() {
	p.Stats = SessionStats{}
}
