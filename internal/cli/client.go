package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pizzawars/internal/game"
)

// APIError is a non-2xx response from the game API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL    string
	ServiceKey string
	HTTP       *http.Client
}

func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type CollectResponse struct {
	Result  game.CollectResult `json:"result"`
	Message string             `json:"message"`
}

func playerPath(playerID, suffix string) string {
	return "/v1/players/" + url.PathEscape(playerID) + suffix
}

func (c *Client) Start(ctx context.Context, playerID, displayName string) (game.StatusView, error) {
	var out game.StatusView
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/start"), map[string]any{
		"display_name": displayName,
	}, &out, "")
	return out, err
}

func (c *Client) Status(ctx context.Context, playerID string) (game.StatusView, error) {
	var out game.StatusView
	err := c.jsonRequest(ctx, http.MethodGet, playerPath(playerID, "/"), nil, &out, "")
	return out, err
}

func (c *Client) SetFranchiseName(ctx context.Context, playerID, name string) error {
	return c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/franchise"), map[string]any{
		"name": name,
	}, nil, "")
}

func (c *Client) RenameShop(ctx context.Context, playerID, location, name string) error {
	return c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/shops/rename"), map[string]any{
		"location": location,
		"name":     name,
	}, nil, "")
}

func (c *Client) Collect(ctx context.Context, playerID string) (CollectResponse, error) {
	var out CollectResponse
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/collect"), nil, &out, "")
	return out, err
}

func (c *Client) ResolveShakedown(ctx context.Context, playerID, choice string) (game.ShakedownResult, error) {
	var out game.ShakedownResult
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/shakedown"), map[string]any{
		"choice": choice,
	}, &out, "")
	return out, err
}

func (c *Client) Upgrade(ctx context.Context, playerID, location string) (game.UpgradeResult, error) {
	var out game.UpgradeResult
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/upgrade"), map[string]any{
		"location": location,
	}, &out, "")
	return out, err
}

func (c *Client) Expansions(ctx context.Context, playerID string) ([]game.ExpansionView, error) {
	var out struct {
		Expansions []game.ExpansionView `json:"expansions"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, playerPath(playerID, "/expansions"), nil, &out, "")
	return out.Expansions, err
}

func (c *Client) Expand(ctx context.Context, playerID, location string) (game.ExpandResult, error) {
	var out game.ExpandResult
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/expand"), map[string]any{
		"location": location,
	}, &out, "")
	return out, err
}

func (c *Client) Challenges(ctx context.Context, playerID string) ([]game.ChallengeView, error) {
	var out struct {
		Challenges []game.ChallengeView `json:"challenges"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, playerPath(playerID, "/challenges"), nil, &out, "")
	return out.Challenges, err
}

func (c *Client) NewChallenge(ctx context.Context, playerID, timescale string) (game.ChallengeView, error) {
	var out game.ChallengeView
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/challenges/"+url.PathEscape(timescale)), nil, &out, "")
	return out, err
}

func (c *Client) CheckAchievements(ctx context.Context, playerID string) ([]game.UnlockedAchievement, error) {
	var out struct {
		Unlocked []game.UnlockedAchievement `json:"unlocked"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/achievements/check"), nil, &out, "")
	return out.Unlocked, err
}

func (c *Client) SabotageTargets(ctx context.Context, playerID string) ([]game.TargetCandidate, error) {
	var out struct {
		Targets []game.TargetCandidate `json:"targets"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, playerPath(playerID, "/sabotage/targets"), nil, &out, "")
	return out.Targets, err
}

func (c *Client) SabotageShops(ctx context.Context, playerID, targetID string) ([]game.ShopCandidate, error) {
	var out struct {
		Shops []game.ShopCandidate `json:"shops"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, playerPath(playerID, "/sabotage/targets/"+url.PathEscape(targetID)+"/shops"), nil, &out, "")
	return out.Shops, err
}

func (c *Client) Sabotage(ctx context.Context, playerID, targetID, location string) (game.SabotageOutcome, error) {
	var out game.SabotageOutcome
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/sabotage"), map[string]any{
		"target_id": targetID,
		"location":  location,
	}, &out, "")
	return out, err
}

func (c *Client) CreditPremium(ctx context.Context, playerID string, amount int64, chargeID string) (int64, error) {
	var out struct {
		PizzaCoins int64 `json:"pizza_coins"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, playerPath(playerID, "/premium"), map[string]any{
		"amount": amount,
	}, &out, chargeID)
	return out.PizzaCoins, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]game.LeaderboardRow, error) {
	var out struct {
		Leaderboard []game.LeaderboardRow `json:"leaderboard"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard?limit="+strconv.Itoa(limit), nil, &out, "")
	return out.Leaderboard, err
}

func (c *Client) RefreshPerformance(ctx context.Context) (map[string]float64, error) {
	var out struct {
		Multipliers map[string]float64 `json:"multipliers"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/performance/refresh", nil, &out, "")
	return out.Multipliers, err
}

func (c *Client) RegenerateChallenges(ctx context.Context, timescale string) (game.BatchReport, error) {
	var out game.BatchReport
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/challenges/"+url.PathEscape(timescale)+"/regenerate", nil, &out, "")
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ServiceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
