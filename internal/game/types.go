package game

import "time"

type UnlockedAchievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Title       string `json:"title,omitempty"`
}

type ShakedownView struct {
	ID           string `json:"id"`
	AmountMicros int64  `json:"amount_micros"`
	DemandMicros int64  `json:"demand_micros"`
}

type CollectResult struct {
	AmountMicros      int64                 `json:"amount_micros"`
	TipMicros         int64                 `json:"tip_micros,omitempty"`
	Shakedown         *ShakedownView        `json:"shakedown,omitempty"`
	ChallengeMessages []string              `json:"challenge_messages,omitempty"`
	Achievements      []UnlockedAchievement `json:"achievements,omitempty"`
}

type ShakedownChoice string

const (
	ShakedownPay    ShakedownChoice = "pay"
	ShakedownRefuse ShakedownChoice = "refuse"
)

type ShakedownResult struct {
	Choice            ShakedownChoice       `json:"choice"`
	KeptMicros        int64                 `json:"kept_micros"`
	LostMicros        int64                 `json:"lost_micros"`
	Message           string                `json:"message"`
	ChallengeMessages []string              `json:"challenge_messages,omitempty"`
	Achievements      []UnlockedAchievement `json:"achievements,omitempty"`
}

type UpgradeResult struct {
	Success           bool                  `json:"success"`
	Location          string                `json:"location"`
	Level             int                   `json:"level"`
	CostMicros        int64                 `json:"cost_micros"`
	Message           string                `json:"message"`
	ChallengeMessages []string              `json:"challenge_messages,omitempty"`
	Achievements      []UnlockedAchievement `json:"achievements,omitempty"`
}

type ExpansionView struct {
	Location    string      `json:"location"`
	CostMicros  int64       `json:"cost_micros"`
	GDPFactor   float64     `json:"gdp_factor"`
	Requirement Requirement `json:"requirement"`
}

type ExpandResult struct {
	Location          string                `json:"location"`
	CostMicros        int64                 `json:"cost_micros"`
	Message           string                `json:"message"`
	ChallengeMessages []string              `json:"challenge_messages,omitempty"`
	Achievements      []UnlockedAchievement `json:"achievements,omitempty"`
}

type ChallengeView struct {
	Timescale   Timescale  `json:"timescale"`
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Metric      StatKind   `json:"metric"`
	Goal        int64      `json:"goal"`
	Progress    int64      `json:"progress"`
	RewardKind  RewardKind `json:"reward_kind"`
	Reward      int64      `json:"reward"`
	Completed   bool       `json:"completed"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type TargetCandidate struct {
	PlayerID          string `json:"player_id"`
	DisplayName       string `json:"display_name"`
	FranchiseName     string `json:"franchise_name"`
	ShopCount         int    `json:"shop_count"`
	TotalIncomeMicros int64  `json:"total_income_micros"`
}

type ShopCandidate struct {
	Location            string    `json:"location"`
	Name                string    `json:"name"`
	Level               int       `json:"level"`
	RatePerSecondMicros float64   `json:"rate_per_second_micros"`
	ShutdownUntil       time.Time `json:"shutdown_until,omitzero"`
}

type SabotageOutcome struct {
	TargetID         string    `json:"target_id"`
	Location         string    `json:"location"`
	Success          bool      `json:"success"`
	CostMicros       int64     `json:"cost_micros"`
	Backfired        bool      `json:"backfired"`
	BackfireLocation string    `json:"backfire_location,omitempty"`
	ShutdownUntil    time.Time `json:"shutdown_until"`
	Message          string    `json:"message"`
}

type ShopView struct {
	Location              string    `json:"location"`
	Name                  string    `json:"name"`
	Level                 int       `json:"level"`
	UpgradeCostMicros     int64     `json:"upgrade_cost_micros"`
	RatePerSecondMicros   float64   `json:"rate_per_second_micros"`
	PerformanceMultiplier float64   `json:"performance_multiplier"`
	ShutdownUntil         time.Time `json:"shutdown_until,omitzero"`
}

type StatusView struct {
	PlayerID               string          `json:"player_id"`
	DisplayName            string          `json:"display_name"`
	FranchiseName          string          `json:"franchise_name"`
	Title                  string          `json:"title,omitempty"`
	CashMicros             int64           `json:"cash_micros"`
	PizzaCoins             int64           `json:"pizza_coins"`
	TotalIncomeMicros      int64           `json:"total_income_micros"`
	IncomeRatePerSecMicros float64         `json:"income_rate_per_sec_micros"`
	UncollectedMicros      int64           `json:"uncollected_micros"`
	Shops                  []ShopView      `json:"shops"`
	AvailableExpansions    []ExpansionView `json:"available_expansions"`
	PendingShakedown       *ShakedownView  `json:"pending_shakedown,omitempty"`
	AchievementCount       int             `json:"achievement_count"`
	SabotageReadyAt        time.Time       `json:"sabotage_ready_at,omitzero"`
}

type LeaderboardRow struct {
	Rank              int64  `json:"rank"`
	PlayerID          string `json:"player_id"`
	DisplayName       string `json:"display_name"`
	FranchiseName     string `json:"franchise_name"`
	Title             string `json:"title,omitempty"`
	TotalIncomeMicros int64  `json:"total_income_micros"`
	ShopCount         int    `json:"shop_count"`
}

// BatchReport summarises a job run over every known player.
type BatchReport struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
