package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzawars/internal/config"
	"pizzawars/internal/game"
)

type fakeJobs struct {
	mu          sync.Mutex
	refreshes   int
	regenerated []game.Timescale
	refreshErr  error
}

func (f *fakeJobs) RefreshLocationPerformance(context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return map[string]float64{"Brooklyn": 1.2}, nil
}

func (f *fakeJobs) RegenerateChallenges(_ context.Context, ts game.Timescale) (game.BatchReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regenerated = append(f.regenerated, ts)
	return game.BatchReport{Processed: 3}, nil
}

func testConfig() config.WorkerConfig {
	return config.WorkerConfig{
		PerformanceSchedule:     "@daily",
		DailyChallengeSchedule:  "@daily",
		WeeklyChallengeSchedule: "@weekly",
	}
}

func TestNewSchedulesAllJobs(t *testing.T) {
	w, err := New(testConfig(), nil, &fakeJobs{})
	require.NoError(t, err)
	assert.Len(t, w.cron.Entries(), 3)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.WeeklyChallengeSchedule = "every tuesday"
	_, err := New(cfg, nil, &fakeJobs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekly challenges")
}

func TestRunOnceRunsEveryJob(t *testing.T) {
	jobs := &fakeJobs{}
	w, err := New(testConfig(), nil, jobs)
	require.NoError(t, err)

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, 1, jobs.refreshes)
	assert.Equal(t, []game.Timescale{game.Daily, game.Weekly}, jobs.regenerated)
}

func TestRunOnceKeepsGoingAfterFailure(t *testing.T) {
	boom := errors.New("db down")
	jobs := &fakeJobs{refreshErr: boom}
	w, err := New(testConfig(), nil, jobs)
	require.NoError(t, err)

	err = w.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Len(t, jobs.regenerated, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	w, err := New(testConfig(), nil, &fakeJobs{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}
