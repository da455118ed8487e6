package game

import (
	"fmt"
	"strings"
	"time"
)

type Timescale string

const (
	Daily  Timescale = "daily"
	Weekly Timescale = "weekly"
)

var Timescales = []Timescale{Daily, Weekly}

func ParseTimescale(v string) (Timescale, error) {
	switch Timescale(strings.ToLower(strings.TrimSpace(v))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	default:
		return "", ErrInvalidTimescale
	}
}

// Period is how long a generated challenge stays fresh.
func (t Timescale) Period() time.Duration {
	if t == Weekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

type RequirementKind string

const (
	ReqInitialShopLevel RequirementKind = "initial_shop_level"
	ReqShopLevel        RequirementKind = "shop_level"
	ReqTotalIncome      RequirementKind = "total_income"
	ReqShopCount        RequirementKind = "shop_count"
	ReqOwnsShop         RequirementKind = "owns_shop"
)

type Requirement struct {
	Kind     RequirementKind `yaml:"kind" json:"kind"`
	Value    float64         `yaml:"value" json:"value"`
	Location string          `yaml:"location,omitempty" json:"location,omitempty"`
}

type LocationDefinition struct {
	Name        string      `yaml:"name" json:"name"`
	Requirement Requirement `yaml:"requirement" json:"requirement"`
	GDPFactor   float64     `yaml:"gdp_factor" json:"gdp_factor"`
	CostScale   float64     `yaml:"cost_scale" json:"cost_scale"`
}

type MetricKind string

const (
	MetricTotalIncome MetricKind = "total_income"
	MetricShopCount   MetricKind = "shop_count"
	MetricShopLevel   MetricKind = "shop_level"
	MetricOwnsShop    MetricKind = "owns_shop"
)

type Metric struct {
	Kind     MetricKind `yaml:"kind" json:"kind"`
	Location string     `yaml:"location,omitempty" json:"location,omitempty"`
}

type RewardKind string

const (
	RewardCash    RewardKind = "cash"
	RewardPremium RewardKind = "premium"
)

type Reward struct {
	Kind   RewardKind `yaml:"kind" json:"kind"`
	Amount int64      `yaml:"amount" json:"amount"`
}

type AchievementDefinition struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Metric      Metric  `yaml:"metric" json:"metric"`
	Threshold   float64 `yaml:"threshold" json:"threshold"`
	Reward      Reward  `yaml:"reward" json:"reward"`
	Title       string  `yaml:"title,omitempty" json:"title,omitempty"`
}

// StatKind names a session counter tracked for challenges.
type StatKind string

const (
	StatIncome     StatKind = "income"
	StatUpgrades   StatKind = "upgrades"
	StatCollects   StatKind = "collects"
	StatExpansions StatKind = "expansions"
)

type ChallengeTemplate struct {
	ID           string     `yaml:"id" json:"id"`
	Description  string     `yaml:"description" json:"description"`
	Metric       StatKind   `yaml:"metric" json:"metric"`
	BaseGoal     float64    `yaml:"base_goal" json:"base_goal"`
	GoalGrowth   float64    `yaml:"goal_growth" json:"goal_growth"`
	RewardKind   RewardKind `yaml:"reward_kind" json:"reward_kind"`
	BaseReward   float64    `yaml:"base_reward" json:"base_reward"`
	RewardGrowth float64    `yaml:"reward_growth" json:"reward_growth"`
}

// Balance is the full set of economy tunables and static rule tables.
// Amounts are in dollars unless the field name says otherwise.
type Balance struct {
	StartingCash        float64 `yaml:"starting_cash"`
	StarterLocation     string  `yaml:"starter_location"`
	BaseIncomePerSecond float64 `yaml:"base_income_per_second"`
	CollectEpsilon      float64 `yaml:"collect_epsilon"`

	BaseUpgradeCost   float64 `yaml:"base_upgrade_cost"`
	UpgradeGrowth     float64 `yaml:"upgrade_growth"`
	UpgradeFailChance float64 `yaml:"upgrade_fail_chance"`
	BaseExpansionCost float64 `yaml:"base_expansion_cost"`

	ShakedownEvery     int64   `yaml:"shakedown_every"`
	ShakedownDemandMin float64 `yaml:"shakedown_demand_min"`
	ShakedownDemandMax float64 `yaml:"shakedown_demand_max"`
	TipChance          float64 `yaml:"tip_chance"`
	TipRate            float64 `yaml:"tip_rate"`
	TipFlat            float64 `yaml:"tip_flat"`

	PerformanceMin float64 `yaml:"performance_min"`
	PerformanceMax float64 `yaml:"performance_max"`

	SabotageCooldown       time.Duration `yaml:"sabotage_cooldown"`
	SabotageSuccessChance  float64       `yaml:"sabotage_success_chance"`
	SabotageBaseCost       float64       `yaml:"sabotage_base_cost"`
	SabotageCashPercent    float64       `yaml:"sabotage_cash_percent"`
	SabotageShutdown       time.Duration `yaml:"sabotage_shutdown"`
	SabotageBackfireChance float64       `yaml:"sabotage_backfire_chance"`
	SabotageTargetLimit    int           `yaml:"sabotage_target_limit"`

	ChallengeScale     map[Timescale]float64 `yaml:"challenge_scale"`
	ChallengeMinGoal   map[StatKind]int64    `yaml:"challenge_min_goal"`
	ChallengeMinReward map[RewardKind]int64  `yaml:"challenge_min_reward"`

	Locations    []LocationDefinition    `yaml:"locations"`
	Achievements []AchievementDefinition `yaml:"achievements"`
	Challenges   []ChallengeTemplate     `yaml:"challenges"`
}

func DefaultBalance() Balance {
	return Balance{
		StartingCash:        10,
		StarterLocation:     "Brooklyn",
		BaseIncomePerSecond: 0.1,
		CollectEpsilon:      0.01,

		BaseUpgradeCost:   75,
		UpgradeGrowth:     1.75,
		UpgradeFailChance: 0.15,
		BaseExpansionCost: 1000,

		ShakedownEvery:     5,
		ShakedownDemandMin: 0.10,
		ShakedownDemandMax: 0.75,
		TipChance:          0.05,
		TipRate:            0.10,
		TipFlat:            5,

		PerformanceMin: 0.7,
		PerformanceMax: 1.5,

		SabotageCooldown:       6 * time.Hour,
		SabotageSuccessChance:  0.40,
		SabotageBaseCost:       100,
		SabotageCashPercent:    0.05,
		SabotageShutdown:       time.Hour,
		SabotageBackfireChance: 0.30,
		SabotageTargetLimit:    10,

		ChallengeScale: map[Timescale]float64{Daily: 1, Weekly: 1},
		ChallengeMinGoal: map[StatKind]int64{
			StatIncome:     100,
			StatUpgrades:   1,
			StatCollects:   3,
			StatExpansions: 1,
		},
		ChallengeMinReward: map[RewardKind]int64{RewardCash: 10, RewardPremium: 1},

		Locations: []LocationDefinition{
			{Name: "Brooklyn", GDPFactor: 1.0, CostScale: 1.0},
			{Name: "Manhattan", Requirement: Requirement{Kind: ReqInitialShopLevel, Value: 5}, GDPFactor: 2.0, CostScale: 1.5},
			{Name: "Queens", Requirement: Requirement{Kind: ReqInitialShopLevel, Value: 10}, GDPFactor: 3.0, CostScale: 2.0},
			{Name: "Jersey City", Requirement: Requirement{Kind: ReqShopCount, Value: 3}, GDPFactor: 2.5, CostScale: 1.8},
			{Name: "Albany", Requirement: Requirement{Kind: ReqTotalIncome, Value: 25_000}, GDPFactor: 5.0, CostScale: 3.0},
			{Name: "Boston", Requirement: Requirement{Kind: ReqShopLevel, Value: 10, Location: "Manhattan"}, GDPFactor: 6.0, CostScale: 3.5},
			{Name: "Philadelphia", Requirement: Requirement{Kind: ReqOwnsShop, Location: "Albany"}, GDPFactor: 7.0, CostScale: 4.0},
			{Name: "Chicago", Requirement: Requirement{Kind: ReqTotalIncome, Value: 250_000}, GDPFactor: 10.0, CostScale: 6.0},
		},

		Achievements: []AchievementDefinition{
			{ID: "first_dough", Name: "First Dough", Description: "Earn $100 in total income.", Metric: Metric{Kind: MetricTotalIncome}, Threshold: 100, Reward: Reward{Kind: RewardCash, Amount: 50}, Title: "Dough Tosser"},
			{ID: "second_oven", Name: "Second Oven", Description: "Own 2 shops.", Metric: Metric{Kind: MetricShopCount}, Threshold: 2, Reward: Reward{Kind: RewardCash, Amount: 250}},
			{ID: "brooklyn_5", Name: "Neighborhood Favorite", Description: "Upgrade Brooklyn to level 5.", Metric: Metric{Kind: MetricShopLevel, Location: "Brooklyn"}, Threshold: 5, Reward: Reward{Kind: RewardCash, Amount: 100}},
			{ID: "thousandaire", Name: "Thousandaire", Description: "Earn $1,000 in total income.", Metric: Metric{Kind: MetricTotalIncome}, Threshold: 1_000, Reward: Reward{Kind: RewardPremium, Amount: 2}, Title: "Slice Slinger"},
			{ID: "manhattan_owner", Name: "Big Apple", Description: "Open a shop in Manhattan.", Metric: Metric{Kind: MetricOwnsShop, Location: "Manhattan"}, Threshold: 1, Reward: Reward{Kind: RewardCash, Amount: 200}, Title: "Manhattan Mogul"},
			{ID: "brooklyn_10", Name: "Brooklyn Legend", Description: "Upgrade Brooklyn to level 10.", Metric: Metric{Kind: MetricShopLevel, Location: "Brooklyn"}, Threshold: 10, Reward: Reward{Kind: RewardPremium, Amount: 3}, Title: "Brooklyn Legend"},
			{ID: "franchise", Name: "Franchise", Description: "Own 4 shops.", Metric: Metric{Kind: MetricShopCount}, Threshold: 4, Reward: Reward{Kind: RewardPremium, Amount: 5}, Title: "Franchise Boss"},
			{ID: "big_cheese", Name: "Big Cheese", Description: "Earn $100,000 in total income.", Metric: Metric{Kind: MetricTotalIncome}, Threshold: 100_000, Reward: Reward{Kind: RewardPremium, Amount: 10}, Title: "Big Cheese"},
			{ID: "pizza_empire", Name: "Pizza Empire", Description: "Own 8 shops.", Metric: Metric{Kind: MetricShopCount}, Threshold: 8, Reward: Reward{Kind: RewardPremium, Amount: 25}, Title: "Pizza Emperor"},
		},

		Challenges: []ChallengeTemplate{
			{ID: "earn", Description: "Earn %s in income", Metric: StatIncome, BaseGoal: 500, GoalGrowth: 1.5, RewardKind: RewardCash, BaseReward: 100, RewardGrowth: 1.4},
			{ID: "upgrade", Description: "Upgrade shops %s times", Metric: StatUpgrades, BaseGoal: 3, GoalGrowth: 1.2, RewardKind: RewardPremium, BaseReward: 1, RewardGrowth: 1.15},
			{ID: "collect", Description: "Collect income %s times", Metric: StatCollects, BaseGoal: 10, GoalGrowth: 1.1, RewardKind: RewardCash, BaseReward: 50, RewardGrowth: 1.3},
			{ID: "expand", Description: "Open %s new shops", Metric: StatExpansions, BaseGoal: 1, GoalGrowth: 1.05, RewardKind: RewardPremium, BaseReward: 3, RewardGrowth: 1.2},
		},
	}
}

// costScale returns the upgrade cost scale of a location, 1 when unknown.
func (b Balance) costScale(location string) float64 {
	for _, loc := range b.Locations {
		if strings.EqualFold(loc.Name, strings.TrimSpace(location)) {
			return loc.CostScale
		}
	}
	return 1
}

func (b Balance) Validate() error {
	if b.BaseIncomePerSecond <= 0 || b.BaseUpgradeCost <= 0 || b.BaseExpansionCost <= 0 {
		return fmt.Errorf("base income and costs must be > 0")
	}
	if b.UpgradeGrowth <= 1 {
		return fmt.Errorf("upgrade_growth must be > 1")
	}
	if b.ShakedownEvery <= 0 {
		return fmt.Errorf("shakedown_every must be > 0")
	}
	if b.ShakedownDemandMin <= 0 || b.ShakedownDemandMax >= 1 || b.ShakedownDemandMin > b.ShakedownDemandMax {
		return fmt.Errorf("shakedown demand band must satisfy 0 < min <= max < 1")
	}
	if b.PerformanceMin <= 0 || b.PerformanceMin > b.PerformanceMax {
		return fmt.Errorf("performance band must satisfy 0 < min <= max")
	}
	for name, p := range map[string]float64{
		"upgrade_fail_chance":      b.UpgradeFailChance,
		"tip_chance":               b.TipChance,
		"sabotage_success_chance":  b.SabotageSuccessChance,
		"sabotage_backfire_chance": b.SabotageBackfireChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0, 1]", name)
		}
	}
	if b.SabotageCooldown <= 0 || b.SabotageShutdown <= 0 {
		return fmt.Errorf("sabotage durations must be > 0")
	}
	if len(b.Challenges) == 0 {
		return fmt.Errorf("at least one challenge template is required")
	}

	known := make(map[string]bool, len(b.Locations))
	for _, loc := range b.Locations {
		if strings.TrimSpace(loc.Name) == "" {
			return fmt.Errorf("location name is required")
		}
		if loc.GDPFactor <= 0 || loc.CostScale <= 0 {
			return fmt.Errorf("location %s: factors must be > 0", loc.Name)
		}
		known[strings.ToLower(loc.Name)] = true
	}
	if !known[strings.ToLower(b.StarterLocation)] {
		return fmt.Errorf("starter location %q is not in the catalog", b.StarterLocation)
	}
	for _, loc := range b.Locations {
		switch loc.Requirement.Kind {
		case ReqShopLevel, ReqOwnsShop:
			if !known[strings.ToLower(loc.Requirement.Location)] {
				return fmt.Errorf("location %s: requirement references unknown location %q", loc.Name, loc.Requirement.Location)
			}
		case "", ReqInitialShopLevel, ReqTotalIncome, ReqShopCount:
		default:
			return fmt.Errorf("location %s: unknown requirement kind %q", loc.Name, loc.Requirement.Kind)
		}
	}
	for _, a := range b.Achievements {
		if a.ID == "" {
			return fmt.Errorf("achievement id is required")
		}
		if a.Reward.Kind != RewardCash && a.Reward.Kind != RewardPremium {
			return fmt.Errorf("achievement %s: unknown reward kind %q", a.ID, a.Reward.Kind)
		}
	}
	for _, c := range b.Challenges {
		switch c.Metric {
		case StatIncome, StatUpgrades, StatCollects, StatExpansions:
		default:
			return fmt.Errorf("challenge %s: unknown metric %q", c.ID, c.Metric)
		}
		if c.RewardKind != RewardCash && c.RewardKind != RewardPremium {
			return fmt.Errorf("challenge %s: unknown reward kind %q", c.ID, c.RewardKind)
		}
	}
	return nil
}
