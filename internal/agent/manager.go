package agent

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/tradelab/trading-dashboard/internal/metrics"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// Agent lifecycle states
const (
	StatusStarting = "starting"
	StatusRunning  = "running"
	StatusStopping = "stopping"
	StatusStopped  = "stopped"
	StatusCrashed  = "crashed"
)

const stopTimeout = 10 * time.Second

// CycleRunner executes one decision cycle for a session
type CycleRunner interface {
	RunCycle(ctx context.Context, sessionID int64, cfg Config) (*CycleResult, error)
}

// SessionStore lets the manager check whether a session is still live
type SessionStore interface {
	GetSessionByID(id int64) (*models.TradingSession, error)
}

// Status is the externally visible state of one background agent
type Status struct {
	SessionID   int64      `json:"session_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	LastRunTime *time.Time `json:"last_run_time,omitempty"`
	RunCount    int        `json:"run_count"`
	LastError   string     `json:"last_error,omitempty"`
	Config      Config     `json:"config"`
}

type agentState struct {
	sessionID   int64
	cfg         Config
	status      string
	startedAt   time.Time
	lastRunTime *time.Time
	runCount    int
	lastError   string
	cancel      context.CancelFunc
	done        chan struct{}
}

// Manager owns the background agent goroutines, one per session at most
type Manager struct {
	mu     sync.Mutex
	agents map[int64]*agentState
	runner CycleRunner
	store  SessionStore
}

// NewManager creates an empty agent manager
func NewManager(runner CycleRunner, store SessionStore) *Manager {
	return &Manager{
		agents: make(map[int64]*agentState),
		runner: runner,
		store:  store,
	}
}

// Start launches a background agent for a session. Refuses a second agent
// for the same session while one is alive.
func (m *Manager) Start(sessionID int64, cfg Config) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.agents[sessionID]; ok {
		return nil, fmt.Errorf("agent already running for session %d (status: %s)", sessionID, existing.status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &agentState{
		sessionID: sessionID,
		cfg:       cfg,
		status:    StatusStarting,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.agents[sessionID] = st

	metrics.ActiveAgents.Inc()
	go m.loop(ctx, st)

	log.Printf("Started background agent for session %d (interval: %s, symbols: %v)",
		sessionID, cfg.DecisionInterval, cfg.Symbols)
	return m.snapshotLocked(st), nil
}

// Stop signals an agent to exit and waits for it to finish
func (m *Manager) Stop(sessionID int64) (*Status, error) {
	m.mu.Lock()
	st, ok := m.agents[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("no agent running for session %d", sessionID)
	}
	if st.status != StatusStopping {
		st.status = StatusStopping
		st.cancel()
	}
	done := st.done
	m.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		log.Printf("Agent for session %d did not stop within %s", sessionID, stopTimeout)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	status := m.snapshotLocked(st)
	delete(m.agents, sessionID)
	return status, nil
}

// StopAll stops every running agent. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.agents))
	for id := range m.agents {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if _, err := m.Stop(id); err != nil {
			log.Printf("Failed to stop agent for session %d: %v", id, err)
		}
	}
}

// Status returns the agent state for a session, or nil if none exists
func (m *Manager) Status(sessionID int64) *Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.agents[sessionID]
	if !ok {
		return nil
	}
	return m.snapshotLocked(st)
}

// List returns all known agents ordered by session id
func (m *Manager) List() []*Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]*Status, 0, len(m.agents))
	for _, st := range m.agents {
		statuses = append(statuses, m.snapshotLocked(st))
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].SessionID < statuses[j].SessionID
	})
	return statuses
}

// RunOnce executes a single decision cycle outside the background loop
func (m *Manager) RunOnce(ctx context.Context, sessionID int64, cfg Config) (*CycleResult, error) {
	return m.runner.RunCycle(ctx, sessionID, cfg)
}

func (m *Manager) snapshotLocked(st *agentState) *Status {
	s := &Status{
		SessionID: st.sessionID,
		Status:    st.status,
		StartedAt: st.startedAt,
		RunCount:  st.runCount,
		LastError: st.lastError,
		Config:    st.cfg,
	}
	if st.lastRunTime != nil {
		t := *st.lastRunTime
		s.LastRunTime = &t
	}
	return s
}

// loop is the agent goroutine. It runs a cycle immediately, then on every
// interval tick, until stopped, crashed, or the session leaves the running
// state. Cycle errors are recorded and the loop keeps going.
func (m *Manager) loop(ctx context.Context, st *agentState) {
	defer func() {
		m.mu.Lock()
		if r := recover(); r != nil {
			st.status = StatusCrashed
			st.lastError = fmt.Sprintf("panic: %v", r)
			log.Printf("Agent for session %d crashed: %v", st.sessionID, r)
		} else if st.status != StatusCrashed {
			st.status = StatusStopped
		}
		// Self-exit leaves no stale entry; Stop removes it after joining.
		if st.status != StatusStopping {
			if cur, ok := m.agents[st.sessionID]; ok && cur == st && st.status == StatusStopped {
				delete(m.agents, st.sessionID)
			}
		}
		close(st.done)
		m.mu.Unlock()
		metrics.ActiveAgents.Dec()
	}()

	m.mu.Lock()
	st.status = StatusRunning
	m.mu.Unlock()

	for {
		m.runCycle(ctx, st)

		if !m.sessionRunning(st.sessionID) {
			log.Printf("Session %d is no longer running, stopping agent", st.sessionID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(st.cfg.DecisionInterval):
		}
	}
}

func (m *Manager) runCycle(ctx context.Context, st *agentState) {
	started := time.Now()
	result, err := m.runner.RunCycle(ctx, st.sessionID, st.cfg)
	metrics.DecisionCycleDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.DecisionCyclesTotal.WithLabelValues("error").Inc()
	} else {
		metrics.DecisionCyclesTotal.WithLabelValues("ok").Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	st.lastRunTime = &now
	st.runCount++
	if err != nil {
		st.lastError = err.Error()
		log.Printf("Decision cycle failed for session %d: %v", st.sessionID, err)
		return
	}
	st.lastError = ""
	log.Printf("Decision cycle %d for session %d: %s (%d decisions, %d opened, %d closed)",
		st.runCount, st.sessionID, result.DecisionType, result.NumDecisions, result.Opened, result.Closed)
}

func (m *Manager) sessionRunning(sessionID int64) bool {
	session, err := m.store.GetSessionByID(sessionID)
	if err != nil {
		log.Printf("Failed to check session %d status: %v", sessionID, err)
		return true
	}
	return session.Status == models.SessionStatusRunning
}
