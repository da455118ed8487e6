package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Store persists player records and the location performance snapshot.
// Save must apply every given player atomically and reject a player whose
// Version no longer matches the stored row with ErrConcurrentUpdate.
type Store interface {
	Load(ctx context.Context, id string) (Player, error)
	Save(ctx context.Context, players ...*Player) error
	ListIDs(ctx context.Context) ([]string, error)
	LoadPerformance(ctx context.Context) (map[string]float64, error)
	SavePerformance(ctx context.Context, multipliers map[string]float64) error
}

type Clock interface {
	Now() time.Time
}

type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Notifier delivers player-facing messages. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, playerID, message string)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type lockedRand struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) {}

type Service struct {
	store        Store
	log          *slog.Logger
	clock        Clock
	rand         Rand
	notify       Notifier
	balance      Balance
	catalog      *Catalog
	perf         *Performance
	locks        *lockSet
	storeTimeout time.Duration
}

type Option func(*Service)

func WithBalance(b Balance) Option { return func(s *Service) { s.balance = b } }

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

func WithRand(r Rand) Option { return func(s *Service) { s.rand = r } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notify = n } }

func WithStoreTimeout(d time.Duration) Option { return func(s *Service) { s.storeTimeout = d } }

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:        store,
		log:          logger,
		clock:        systemClock{},
		rand:         &lockedRand{rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano()))},
		notify:       nopNotifier{},
		balance:      DefaultBalance(),
		perf:         NewPerformance(),
		locks:        newLockSet(),
		storeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.catalog = NewCatalog(s.balance)
	return s
}

func (s *Service) Balance() Balance { return s.balance }

func (s *Service) Catalog() *Catalog { return s.catalog }

func (s *Service) Performance() *Performance { return s.perf }

// errNoChange lets a mutation skip the save when it left the record untouched.
var errNoChange = errors.New("no change")

// update runs one load -> mutate -> persist cycle for a player, serialized per
// player id in this process. A concurrent write from another process is
// retried once before surfacing ErrTxConflict.
func (s *Service) update(ctx context.Context, id string, fn func(p *Player, now time.Time) error) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(id)
	defer unlock()

	const maxAttempts = 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := s.clock.Now()
		p, fresh, err := s.load(ctx, id, now, true)
		if err != nil {
			return err
		}
		dirty := fresh
		if s.ensureChallenges(&p, now) {
			dirty = true
		}
		err = fn(&p, now)
		if errors.Is(err, errNoChange) {
			if !dirty {
				return nil
			}
			err = nil
		}
		if err != nil {
			return err
		}
		err = s.save(ctx, &p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrentUpdate) {
			return err
		}
		s.log.Warn("player save conflict, retrying", "player_id", id, "attempt", attempt+1)
	}
	return ErrTxConflict
}

// updatePair is update for operations spanning two players. Locks are taken in
// id order and both records are written in a single Save.
func (s *Service) updatePair(ctx context.Context, actorID, otherID string, fn func(actor, other *Player, now time.Time) error) error {
	actorID, err := normalizeID(actorID)
	if err != nil {
		return err
	}
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return ErrTargetNotFound
	}
	if actorID == otherID {
		return ErrSelfTarget
	}
	unlock := s.locks.lock(actorID, otherID)
	defer unlock()

	const maxAttempts = 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		now := s.clock.Now()
		actor, _, err := s.load(ctx, actorID, now, true)
		if err != nil {
			return err
		}
		other, _, err := s.load(ctx, otherID, now, false)
		if err != nil {
			if errors.Is(err, ErrPlayerNotFound) {
				return ErrTargetNotFound
			}
			return err
		}
		if err := fn(&actor, &other, now); err != nil {
			return err
		}
		err = s.save(ctx, &actor, &other)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrentUpdate) {
			return err
		}
		s.log.Warn("pair save conflict, retrying", "player_id", actorID, "other_id", otherID, "attempt", attempt+1)
	}
	return ErrTxConflict
}

func (s *Service) load(ctx context.Context, id string, now time.Time, create bool) (Player, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	p, err := s.store.Load(ctx, id)
	if errors.Is(err, ErrPlayerNotFound) {
		if !create {
			return Player{}, false, ErrPlayerNotFound
		}
		return NewPlayer(id, s.balance, now), true, nil
	}
	if err != nil {
		s.log.Error("load player failed", "player_id", id, "err", err)
		return Player{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	MigratePlayer(&p, s.balance, now)
	return p, false, nil
}

func (s *Service) save(ctx context.Context, players ...*Player) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.store.Save(ctx, players...)
	if err == nil || errors.Is(err, ErrConcurrentUpdate) {
		return err
	}
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	s.log.Error("save players failed", "player_ids", ids, "err", err)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (s *Service) listIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		s.log.Error("list players failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ids, nil
}

func (s *Service) notifyAll(ctx context.Context, playerID string, messages ...string) {
	for _, m := range messages {
		if strings.TrimSpace(m) == "" {
			continue
		}
		s.notify.Notify(ctx, playerID, m)
	}
}

func (s *Service) notifyUnlocks(ctx context.Context, playerID string, unlocked []UnlockedAchievement) {
	for _, a := range unlocked {
		msg := fmt.Sprintf("Achievement unlocked: %s. %s", a.Name, a.Description)
		if a.Title != "" {
			msg += fmt.Sprintf(" New title: %s", a.Title)
		}
		s.notify.Notify(ctx, playerID, msg)
	}
}

// EnsurePlayer creates the player on first contact and records the login.
func (s *Service) EnsurePlayer(ctx context.Context, id, displayName string) (StatusView, error) {
	var out StatusView
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		if name := strings.TrimSpace(displayName); name != "" {
			p.DisplayName = truncateName(name, maxEntityNameLen)
		}
		p.LastLoginAt = now
		out = s.status(p, now)
		return nil
	})
	return out, err
}

func (s *Service) Status(ctx context.Context, id string) (StatusView, error) {
	var out StatusView
	err := s.update(ctx, id, func(p *Player, now time.Time) error {
		out = s.status(p, now)
		return errNoChange
	})
	return out, err
}

func (s *Service) status(p *Player, now time.Time) StatusView {
	out := StatusView{
		PlayerID:          p.ID,
		DisplayName:       p.DisplayName,
		FranchiseName:     p.FranchiseName,
		Title:             p.Title,
		CashMicros:        p.CashMicros,
		PizzaCoins:        p.PizzaCoins,
		TotalIncomeMicros: p.TotalIncomeMicros,
		UncollectedMicros: s.uncollected(p, now),
		AchievementCount:  len(p.Achievements),
	}
	for _, name := range sortedShopNames(p) {
		shop := p.Shops[name]
		rate := s.shopRate(name, shop.Level)
		out.IncomeRatePerSecMicros += rate
		v := ShopView{
			Location:              name,
			Name:                  shop.Name,
			Level:                 shop.Level,
			UpgradeCostMicros:     UpgradeCost(s.balance, shop.Level, name),
			RatePerSecondMicros:   rate,
			PerformanceMultiplier: s.perf.Multiplier(name),
		}
		if shop.ShutdownUntil.After(now) {
			v.ShutdownUntil = shop.ShutdownUntil
		}
		out.Shops = append(out.Shops, v)
	}
	out.AvailableExpansions = s.availableExpansions(p)
	if p.PendingShakedown != nil {
		out.PendingShakedown = shakedownView(p.PendingShakedown)
	}
	if !p.LastSabotageAt.IsZero() {
		if ready := p.LastSabotageAt.Add(s.balance.SabotageCooldown); ready.After(now) {
			out.SabotageReadyAt = ready
		}
	}
	return out
}

func (s *Service) SetFranchiseName(ctx context.Context, id, name string) error {
	if err := validateEntityName(name); err != nil {
		return err
	}
	return s.update(ctx, id, func(p *Player, _ time.Time) error {
		p.FranchiseName = strings.TrimSpace(name)
		return nil
	})
}

func (s *Service) RenameShop(ctx context.Context, id, location, name string) error {
	if err := validateEntityName(name); err != nil {
		return err
	}
	def, ok := s.catalog.Location(location)
	if !ok {
		return ErrInvalidLocation
	}
	return s.update(ctx, id, func(p *Player, _ time.Time) error {
		shop, ok := p.shop(def.Name)
		if !ok {
			return fmt.Errorf("%w: you don't own a shop in %s", ErrShopNotOwned, def.Name)
		}
		shop.Name = strings.TrimSpace(name)
		return nil
	})
}

// CreditPremiumCurrency is called by the payment collaborator after a purchase
// settles. chargeID makes redelivered payment callbacks harmless.
func (s *Service) CreditPremiumCurrency(ctx context.Context, id string, amount int64, chargeID string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	chargeID = strings.TrimSpace(chargeID)
	var balance int64
	err := s.update(ctx, id, func(p *Player, _ time.Time) error {
		if chargeID != "" {
			for _, seen := range p.ProcessedCharges {
				if seen == chargeID {
					return ErrDuplicateIdempotency
				}
			}
			p.ProcessedCharges = append(p.ProcessedCharges, chargeID)
			if n := len(p.ProcessedCharges); n > maxProcessedCharges {
				p.ProcessedCharges = p.ProcessedCharges[n-maxProcessedCharges:]
			}
		}
		p.PizzaCoins += amount
		balance = p.PizzaCoins
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("premium currency credited", "player_id", id, "amount", amount, "charge_id", chargeID)
	s.notifyAll(ctx, id, fmt.Sprintf("Thank you for your purchase! %d Pizza Coins have been added to your account.", amount))
	return balance, nil
}

// RefreshLocationPerformance draws new location multipliers and persists them.
func (s *Service) RefreshLocationPerformance(ctx context.Context) (map[string]float64, error) {
	next := DrawPerformance(s.catalog.All(), s.balance.PerformanceMin, s.balance.PerformanceMax, s.rand)

	saveCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.SavePerformance(saveCtx, next); err != nil {
		s.log.Error("save location performance failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.perf.Load(next)
	s.log.Info("location performance refreshed", "locations", len(next))
	return next, nil
}

// ReloadPerformance pulls the persisted multipliers, e.g. after another
// process ran RefreshLocationPerformance.
func (s *Service) ReloadPerformance(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	snapshot, err := s.store.LoadPerformance(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.perf.Load(snapshot)
	return nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	players, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].TotalIncomeMicros != players[j].TotalIncomeMicros {
			return players[i].TotalIncomeMicros > players[j].TotalIncomeMicros
		}
		return players[i].ID < players[j].ID
	})
	if len(players) > limit {
		players = players[:limit]
	}
	out := make([]LeaderboardRow, 0, len(players))
	for i, p := range players {
		out = append(out, LeaderboardRow{
			Rank:              int64(i + 1),
			PlayerID:          p.ID,
			DisplayName:       p.DisplayName,
			FranchiseName:     p.FranchiseName,
			Title:             p.Title,
			TotalIncomeMicros: p.TotalIncomeMicros,
			ShopCount:         len(p.Shops),
		})
	}
	return out, nil
}

// loadAll reads every player, skipping records that fail to load.
func (s *Service) loadAll(ctx context.Context) ([]Player, error) {
	ids, err := s.listIDs(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]Player, 0, len(ids))
	for _, id := range ids {
		p, _, err := s.load(ctx, id, now, false)
		if err != nil {
			s.log.Warn("skip unreadable player", "player_id", id, "err", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: player id is required", ErrPlayerNotFound)
	}
	return id, nil
}

func sortedShopNames(p *Player) []string {
	names := make([]string, 0, len(p.Shops))
	for name := range p.Shops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockSet hands out one mutex per player id and forgets it once unused.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newLockSet() *lockSet {
	return &lockSet{locks: make(map[string]*lockEntry)}
}

// lock acquires the given ids in sorted order and returns the release func.
func (l *lockSet) lock(ids ...string) func() {
	keys := append([]string(nil), ids...)
	sort.Strings(keys)
	entries := make([]*lockEntry, 0, len(keys))
	l.mu.Lock()
	for i, id := range keys {
		if i > 0 && keys[i-1] == id {
			continue
		}
		e, ok := l.locks[id]
		if !ok {
			e = &lockEntry{}
			l.locks[id] = e
		}
		e.refs++
		entries = append(entries, e)
	}
	l.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
	}
	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, id := range keys {
			if i > 0 && keys[i-1] == id {
				continue
			}
			if e := l.locks[id]; e != nil {
				e.refs--
				if e.refs == 0 {
					delete(l.locks, id)
				}
			}
		}
		l.mu.Unlock()
	}
}
