package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradelab/trading-dashboard/internal/models"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  int
	err   error
	panic bool
}

func (f *fakeRunner) RunCycle(ctx context.Context, sessionID int64, cfg Config) (*CycleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &CycleResult{DecisionType: models.DecisionTypeHold}, nil
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeSessionStore struct {
	mu     sync.Mutex
	status string
}

func (f *fakeSessionStore) GetSessionByID(id int64) (*models.TradingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.TradingSession{
		ID:             id,
		Status:         f.status,
		InitialCapital: decimal.RequireFromString("10000"),
	}, nil
}

func (f *fakeSessionStore) setStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func fastConfig() Config {
	return Config{
		Symbols:          []string{"BTCUSDT"},
		DecisionInterval: 20 * time.Millisecond,
		MaxLeverage:      5,
		MaxPositions:     3,
	}
}

func TestManager_StartAndStatus(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	status, err := m.Start(7, fastConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(7), status.SessionID)

	require.Eventually(t, func() bool {
		return runner.runCount() >= 2
	}, time.Second, 5*time.Millisecond)

	status = m.Status(7)
	require.NotNil(t, status)
	assert.Equal(t, StatusRunning, status.Status)
	assert.GreaterOrEqual(t, status.RunCount, 2)
	assert.NotNil(t, status.LastRunTime)
	assert.Empty(t, status.LastError)

	_, err = m.Stop(7)
	require.NoError(t, err)
}

func TestManager_DoubleStartRefused(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	_, err := m.Start(1, fastConfig())
	require.NoError(t, err)
	defer m.StopAll()

	_, err = m.Start(1, fastConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestManager_StopRemovesAgent(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	_, err := m.Start(2, fastConfig())
	require.NoError(t, err)

	status, err := m.Stop(2)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, status.Status)
	assert.Nil(t, m.Status(2))

	// A new agent can start once the old one is gone.
	_, err = m.Start(2, fastConfig())
	require.NoError(t, err)
	m.StopAll()
}

func TestManager_StopUnknownSession(t *testing.T) {
	m := NewManager(&fakeRunner{}, &fakeSessionStore{status: models.SessionStatusRunning})

	_, err := m.Stop(99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no agent running")
}

func TestManager_SelfStopsWhenSessionEnds(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	_, err := m.Start(3, fastConfig())
	require.NoError(t, err)

	store.setStatus(models.SessionStatusCompleted)

	require.Eventually(t, func() bool {
		return m.Status(3) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestManager_CycleErrorRecordedAndLoopContinues(t *testing.T) {
	runner := &fakeRunner{err: assert.AnError}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	_, err := m.Start(4, fastConfig())
	require.NoError(t, err)
	defer m.StopAll()

	require.Eventually(t, func() bool {
		return runner.runCount() >= 2
	}, time.Second, 5*time.Millisecond)

	status := m.Status(4)
	require.NotNil(t, status)
	assert.Equal(t, StatusRunning, status.Status)
	assert.Contains(t, status.LastError, assert.AnError.Error())
}

func TestManager_PanicMarksCrashed(t *testing.T) {
	runner := &fakeRunner{panic: true}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	_, err := m.Start(5, fastConfig())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := m.Status(5)
		return st != nil && st.Status == StatusCrashed
	}, time.Second, 5*time.Millisecond)

	st := m.Status(5)
	assert.Contains(t, st.LastError, "boom")

	// Crashed agents stay visible until explicitly stopped.
	_, err = m.Start(5, fastConfig())
	require.Error(t, err)

	_, err = m.Stop(5)
	require.NoError(t, err)
	assert.Nil(t, m.Status(5))
}

func TestManager_List(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeSessionStore{status: models.SessionStatusRunning}
	m := NewManager(runner, store)

	_, err := m.Start(10, fastConfig())
	require.NoError(t, err)
	_, err = m.Start(2, fastConfig())
	require.NoError(t, err)
	defer m.StopAll()

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].SessionID)
	assert.Equal(t, int64(10), list[1].SessionID)
}

func TestConfigFromSession(t *testing.T) {
	defaults := DefaultConfig([]string{"BTCUSDT", "ETHUSDT"}, 5*time.Minute)

	session := &models.TradingSession{
		Config: []byte(`{"symbols": ["DOGEUSDT"], "decision_interval_seconds": 60, "max_leverage": 8}`),
	}
	cfg := ConfigFromSession(session, defaults)
	assert.Equal(t, []string{"DOGEUSDT"}, cfg.Symbols)
	assert.Equal(t, time.Minute, cfg.DecisionInterval)
	assert.Equal(t, 8, cfg.MaxLeverage)
	assert.Equal(t, defaults.MaxPositions, cfg.MaxPositions)

	// Empty and malformed configs fall back to defaults.
	assert.Equal(t, defaults, ConfigFromSession(&models.TradingSession{}, defaults))
	assert.Equal(t, defaults, ConfigFromSession(&models.TradingSession{Config: []byte("{bad")}, defaults))
}
