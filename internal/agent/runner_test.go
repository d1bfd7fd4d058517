package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockStore struct {
	session        *models.TradingSession
	sessionErr     error
	positions      []*models.Position
	latest         *models.AccountSnapshot
	decisions      []*models.AIDecision
	created        []*models.Position
	closed         []int64
	trades         []*models.Trade
	snapshots      []*models.AccountSnapshot
	execUpdates    map[int64]bool
	nextDecisionID int64
}

func newMockStore() *mockStore {
	return &mockStore{
		session: &models.TradingSession{
			ID:             1,
			Status:         models.SessionStatusRunning,
			InitialCapital: decimal.RequireFromString("10000"),
		},
		latest: &models.AccountSnapshot{
			SessionID:     1,
			TotalValue:    decimal.RequireFromString("10000"),
			AvailableCash: decimal.RequireFromString("10000"),
		},
		execUpdates:    make(map[int64]bool),
		nextDecisionID: 100,
	}
}

func (m *mockStore) GetSessionByID(id int64) (*models.TradingSession, error) {
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return m.session, nil
}

func (m *mockStore) GetActivePositions(sessionID int64) ([]*models.Position, error) {
	return m.positions, nil
}

func (m *mockStore) GetLatestSnapshot(sessionID int64) (*models.AccountSnapshot, error) {
	return m.latest, nil
}

func (m *mockStore) CreateDecision(d *models.AIDecision) error {
	m.nextDecisionID++
	d.ID = m.nextDecisionID
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *mockStore) UpdateDecisionExecution(id int64, executed bool, result json.RawMessage) error {
	m.execUpdates[id] = executed
	return nil
}

func (m *mockStore) CreatePosition(p *models.Position) error {
	p.ID = int64(len(m.created) + 1)
	if p.Status == "" {
		p.Status = models.PositionStatusActive
	}
	m.created = append(m.created, p)
	return nil
}

func (m *mockStore) UpdatePositionPrice(id int64, currentPrice, unrealizedPnl decimal.Decimal) error {
	return nil
}

func (m *mockStore) ClosePosition(id int64, exitPrice, realizedPnl decimal.Decimal, exitTime time.Time) error {
	m.closed = append(m.closed, id)
	return nil
}

func (m *mockStore) CreateTrade(t *models.Trade) error {
	t.ID = int64(len(m.trades) + 1)
	m.trades = append(m.trades, t)
	return nil
}

func (m *mockStore) CreateAccountSnapshot(s *models.AccountSnapshot) error {
	m.snapshots = append(m.snapshots, s)
	return nil
}

type mockMarket struct {
	prices map[string]float64
}

func (m *mockMarket) Ticker(ctx context.Context, symbol string) (*models.Ticker, error) {
	price, ok := m.prices[symbol]
	if !ok {
		return nil, assert.AnError
	}
	return &models.Ticker{Symbol: symbol, Last: price, ChangePct24h: 1.5, Volume: 1000}, nil
}

func (m *mockMarket) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error) {
	return nil, assert.AnError
}

func (m *mockMarket) FundingRate(ctx context.Context, symbol string) (*models.FundingRate, error) {
	return nil, assert.AnError
}

func (m *mockMarket) OpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error) {
	return nil, assert.AnError
}

type mockCompleter struct {
	response string
	err      error
}

func (m *mockCompleter) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockPublisher struct {
	decisions []*models.AIDecision
	trades    []*models.Trade
}

func (m *mockPublisher) PublishDecisionMade(ctx context.Context, d *models.AIDecision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *mockPublisher) PublishTradeClosed(ctx context.Context, t *models.Trade) error {
	m.trades = append(m.trades, t)
	return nil
}

// ---------------------------------------------------------------------------
// RunCycle tests
// ---------------------------------------------------------------------------

func testConfig() Config {
	return Config{
		Symbols:            []string{"BTCUSDT"},
		DecisionInterval:   time.Minute,
		MaxLeverage:        10,
		MaxPositions:       3,
		MaxPositionSizeUSD: 5000,
	}
}

func TestRunCycle_OpenLong(t *testing.T) {
	store := newMockStore()
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 50000}}
	completer := &mockCompleter{response: "Momentum looks strong.\n```json\n" +
		`[{"symbol": "BTCUSDT", "action": "open_long", "leverage": 5, "position_size_usd": 1000, "confidence": 80, "reasoning": "breakout"}]` +
		"\n```"}
	publisher := &mockPublisher{}
	runner := NewRunner(store, market, completer, publisher, 0.0005)

	result, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.NoError(t, err)

	assert.Equal(t, models.DecisionTypeBuy, result.DecisionType)
	assert.Equal(t, 1, result.NumDecisions)
	assert.Equal(t, 1, result.Opened)
	assert.Equal(t, 0, result.Closed)

	require.Len(t, store.created, 1)
	pos := store.created[0]
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	assert.Equal(t, models.PositionSideLong, pos.Side)
	assert.Equal(t, 5, pos.Leverage)
	assert.True(t, pos.Quantity.Equal(decimal.RequireFromString("0.02"))) // 1000 / 50000
	assert.True(t, pos.Margin.Equal(decimal.RequireFromString("200")))   // 1000 / 5
	require.NotNil(t, pos.AIDecisionID)
	assert.Equal(t, result.DecisionID, *pos.AIDecisionID)

	require.Len(t, store.decisions, 1)
	assert.Equal(t, "Momentum looks strong.", store.decisions[0].Reasoning)
	assert.True(t, store.execUpdates[result.DecisionID])

	// Snapshot reflects the margin being locked up.
	require.Len(t, store.snapshots, 1)
	assert.True(t, store.snapshots[0].AvailableCash.Equal(decimal.RequireFromString("9800")))
	assert.True(t, store.snapshots[0].TotalValue.Equal(decimal.RequireFromString("10000")))

	require.Len(t, publisher.decisions, 1)
	assert.True(t, publisher.decisions[0].Executed)
}

func TestRunCycle_CloseLong(t *testing.T) {
	store := newMockStore()
	entryTime := time.Now().Add(-time.Hour)
	store.positions = []*models.Position{{
		ID:         42,
		SessionID:  1,
		Symbol:     "BTCUSDT",
		Side:       models.PositionSideLong,
		Status:     models.PositionStatusActive,
		Quantity:   decimal.RequireFromString("0.02"),
		EntryPrice: decimal.RequireFromString("50000"),
		Leverage:   5,
		Margin:     decimal.RequireFromString("200"),
		EntryTime:  entryTime,
	}}
	store.latest.AvailableCash = decimal.RequireFromString("9800")
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 51000}}
	completer := &mockCompleter{response: "Taking profit.\n```json\n" +
		`[{"symbol": "BTCUSDT", "action": "close_long", "confidence": 90, "reasoning": "target hit"}]` +
		"\n```"}
	publisher := &mockPublisher{}
	runner := NewRunner(store, market, completer, publisher, 0.0005)

	result, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.NoError(t, err)

	assert.Equal(t, models.DecisionTypeClose, result.DecisionType)
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, []int64{42}, store.closed)

	require.Len(t, store.trades, 1)
	trade := store.trades[0]
	// Gross pnl (51000-50000)*0.02 = 20, fee 51000*0.02*0.0005 = 0.51
	assert.True(t, trade.Pnl.Equal(decimal.RequireFromString("19.49")), "pnl was %s", trade.Pnl)
	assert.True(t, trade.Fee.Equal(decimal.RequireFromString("0.51")))
	assert.Equal(t, models.PositionSideLong, trade.Side)
	assert.Equal(t, entryTime, trade.EntryTime)

	require.Len(t, publisher.trades, 1)
	assert.Equal(t, "BTCUSDT", publisher.trades[0].Symbol)

	// Cash returns margin plus net pnl: 9800 + 200 + 19.49
	require.Len(t, store.snapshots, 1)
	assert.True(t, store.snapshots[0].AvailableCash.Equal(decimal.RequireFromString("10019.49")))
}

func TestRunCycle_Wait(t *testing.T) {
	store := newMockStore()
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 50000}}
	completer := &mockCompleter{response: "Nothing to do.\n```json\n" +
		`[{"symbol": "BTCUSDT", "action": "wait", "confidence": 60, "reasoning": "choppy"}]` +
		"\n```"}
	runner := NewRunner(store, market, completer, nil, 0.0005)

	result, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.NoError(t, err)

	assert.Equal(t, models.DecisionTypeHold, result.DecisionType)
	assert.Equal(t, 0, result.Opened)
	assert.Empty(t, store.created)
	assert.False(t, store.execUpdates[result.DecisionID])
}

func TestRunCycle_InsufficientCash(t *testing.T) {
	store := newMockStore()
	store.latest.AvailableCash = decimal.RequireFromString("50")
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 50000}}
	completer := &mockCompleter{response: "```json\n" +
		`[{"symbol": "BTCUSDT", "action": "open_long", "leverage": 5, "position_size_usd": 1000, "confidence": 80, "reasoning": "go"}]` +
		"\n```"}
	runner := NewRunner(store, market, completer, nil, 0.0005)

	result, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Opened)
	assert.Empty(t, store.created)
	require.Len(t, store.decisions, 1)
	assert.False(t, store.execUpdates[result.DecisionID])
}

func TestRunCycle_LeverageLimit(t *testing.T) {
	store := newMockStore()
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 50000}}
	completer := &mockCompleter{response: "```json\n" +
		`[{"symbol": "BTCUSDT", "action": "open_long", "leverage": 50, "position_size_usd": 1000, "confidence": 80, "reasoning": "yolo"}]` +
		"\n```"}
	runner := NewRunner(store, market, completer, nil, 0.0005)

	result, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Opened)
	assert.Empty(t, store.created)
}

func TestRunCycle_PositionSizeLimit(t *testing.T) {
	store := newMockStore()
	store.latest.AvailableCash = decimal.RequireFromString("20000")
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 50000}}
	// Margin 10000 clears the cash check, the size cap must still reject it.
	completer := &mockCompleter{response: "```json\n" +
		`[{"symbol": "BTCUSDT", "action": "open_long", "leverage": 5, "position_size_usd": 50000, "confidence": 80, "reasoning": "all in"}]` +
		"\n```"}
	runner := NewRunner(store, market, completer, nil, 0.0005)

	result, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Opened)
	assert.Empty(t, store.created)
	require.Len(t, store.decisions, 1)
	assert.False(t, store.execUpdates[result.DecisionID])
}

func TestRunCycle_SessionNotRunning(t *testing.T) {
	store := newMockStore()
	store.session.Status = models.SessionStatusStopped
	runner := NewRunner(store, &mockMarket{}, &mockCompleter{}, nil, 0.0005)

	_, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestRunCycle_NoMarketData(t *testing.T) {
	store := newMockStore()
	market := &mockMarket{prices: map[string]float64{}}
	runner := NewRunner(store, market, &mockCompleter{}, nil, 0.0005)

	_, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no market data")
}

func TestRunCycle_LLMError(t *testing.T) {
	store := newMockStore()
	market := &mockMarket{prices: map[string]float64{"BTCUSDT": 50000}}
	runner := NewRunner(store, market, &mockCompleter{err: assert.AnError}, nil, 0.0005)

	_, err := runner.RunCycle(context.Background(), 1, testConfig())
	require.Error(t, err)
	assert.Empty(t, store.decisions)
}

func TestClassifyDecisions(t *testing.T) {
	assert.Equal(t, models.DecisionTypeHold, classifyDecisions(nil))
}
