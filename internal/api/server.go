package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pizzawars/internal/config"
	"pizzawars/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server is the HTTP boundary used by the chat bot, the payment webhook
// relay and operators. Callers authenticate with the shared service key and
// act on behalf of the player named in the path.
type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	game    *game.Service
	limiter *playerLimiter
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		game:    gameSvc,
		limiter: newPlayerLimiter(cfg.RateLimit, cfg.RateBurst),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.serviceKeyMiddleware)

		r.Get("/locations", s.handleLocations)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Post("/admin/performance/refresh", s.handleRefreshPerformance)
		r.Post("/admin/challenges/{timescale}/regenerate", s.handleRegenerateChallenges)

		r.Route("/players/{id}", func(r chi.Router) {
			r.Use(s.rateLimitMiddleware)

			r.Get("/", s.handleStatus)
			r.Post("/start", s.handleStart)
			r.Post("/franchise", s.handleFranchiseName)
			r.Post("/collect", s.handleCollect)
			r.Post("/shakedown", s.handleShakedown)
			r.Post("/upgrade", s.handleUpgrade)
			r.Post("/shops/rename", s.handleRenameShop)
			r.Get("/expansions", s.handleExpansions)
			r.Post("/expand", s.handleExpand)
			r.Get("/challenges", s.handleChallenges)
			r.Post("/challenges/{timescale}", s.handleGenerateChallenge)
			r.Post("/achievements/check", s.handleCheckAchievements)
			r.Get("/sabotage/targets", s.handleSabotageTargets)
			r.Get("/sabotage/targets/{target}/shops", s.handleSabotageShops)
			r.Post("/sabotage", s.handleSabotage)
			r.Post("/premium", s.handlePremium)
		})
	})
}

func (s *Server) serviceKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.ServiceKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid service key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func playerID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Status(r.Context(), playerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.EnsurePlayer(r.Context(), playerID(r), in.DisplayName)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFranchiseName(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SetFranchiseName(r.Context(), playerID(r), in.Name); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Collect(r.Context(), playerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  out,
		"message": game.CollectMessage(out),
	})
}

func (s *Server) handleShakedown(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Choice string `json:"choice"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	choice, err := game.ParseShakedownChoice(in.Choice)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out, err := s.game.ResolveShakedown(r.Context(), playerID(r), choice)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Location string `json:"location"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Upgrade(r.Context(), playerID(r), in.Location)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRenameShop(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Location string `json:"location"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.RenameShop(r.Context(), playerID(r), in.Location, in.Name); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleExpansions(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.AvailableExpansions(r.Context(), playerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expansions": out})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Location string `json:"location"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Expand(r.Context(), playerID(r), in.Location)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.GetChallenges(r.Context(), playerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": out})
}

func (s *Server) handleGenerateChallenge(w http.ResponseWriter, r *http.Request) {
	ts, err := game.ParseTimescale(chi.URLParam(r, "timescale"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out, err := s.game.GenerateChallenge(r.Context(), playerID(r), ts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.CheckAchievements(r.Context(), playerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlocked": out})
}

func (s *Server) handleSabotageTargets(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.InitiateSabotage(r.Context(), playerID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": out})
}

func (s *Server) handleSabotageShops(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ChooseTarget(r.Context(), playerID(r), chi.URLParam(r, "target"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shops": out})
}

func (s *Server) handleSabotage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TargetID string `json:"target_id"`
		Location string `json:"location"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.ChooseShop(r.Context(), playerID(r), in.TargetID, in.Location)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePremium(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount   int64  `json:"amount"`
		ChargeID string `json:"charge_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	chargeID := strings.TrimSpace(in.ChargeID)
	if chargeID == "" {
		chargeID = idempotencyKey(r)
	}
	balance, err := s.game.CreditPremiumCurrency(r.Context(), playerID(r), in.Amount, chargeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pizza_coins": balance, "charge_id": chargeID})
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	perf := s.game.Performance()
	b := s.game.Balance()
	type locationView struct {
		game.LocationDefinition
		ExpansionCostMicros   int64   `json:"expansion_cost_micros"`
		PerformanceMultiplier float64 `json:"performance_multiplier"`
	}
	locations := s.game.Catalog().All()
	out := make([]locationView, 0, len(locations))
	for _, loc := range locations {
		out = append(out, locationView{
			LocationDefinition:    loc,
			ExpansionCostMicros:   game.ExpansionCost(b, loc.Name),
			PerformanceMultiplier: perf.Multiplier(loc.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": out})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	out, err := s.game.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}

func (s *Server) handleRefreshPerformance(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.RefreshLocationPerformance(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"multipliers": out})
}

func (s *Server) handleRegenerateChallenges(w http.ResponseWriter, r *http.Request) {
	ts, err := game.ParseTimescale(chi.URLParam(r, "timescale"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out, err := s.game.RegenerateChallenges(r.Context(), ts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var cooldown *game.CooldownError
	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cooldown.Remaining.Seconds()))))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, game.ErrDuplicateIdempotency),
		errors.Is(err, game.ErrTxConflict),
		errors.Is(err, game.ErrShakedownPending),
		errors.Is(err, game.ErrNoShakedown):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInvalidLocation),
		errors.Is(err, game.ErrShopNotOwned),
		errors.Is(err, game.ErrAlreadyOwned),
		errors.Is(err, game.ErrRequirementNotMet),
		errors.Is(err, game.ErrSelfTarget),
		errors.Is(err, game.ErrTargetHasNoShops),
		errors.Is(err, game.ErrInvalidChoice),
		errors.Is(err, game.ErrInvalidTimescale),
		errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, game.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, game.ErrStoreUnavailable.Error())
	default:
		s.log.Error("unhandled api error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
