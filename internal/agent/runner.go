package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/exchange"
	"github.com/tradelab/trading-dashboard/internal/indicators"
	"github.com/tradelab/trading-dashboard/internal/llm"
	"github.com/tradelab/trading-dashboard/internal/metrics"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// Store defines the database operations a decision cycle needs
type Store interface {
	GetSessionByID(id int64) (*models.TradingSession, error)
	GetActivePositions(sessionID int64) ([]*models.Position, error)
	GetLatestSnapshot(sessionID int64) (*models.AccountSnapshot, error)
	CreateDecision(d *models.AIDecision) error
	UpdateDecisionExecution(id int64, executed bool, result json.RawMessage) error
	CreatePosition(p *models.Position) error
	UpdatePositionPrice(id int64, currentPrice, unrealizedPnl decimal.Decimal) error
	ClosePosition(id int64, exitPrice, realizedPnl decimal.Decimal, exitTime time.Time) error
	CreateTrade(t *models.Trade) error
	CreateAccountSnapshot(s *models.AccountSnapshot) error
}

// MarketData defines the exchange reads a decision cycle needs
type MarketData interface {
	Ticker(ctx context.Context, symbol string) (*models.Ticker, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error)
	FundingRate(ctx context.Context, symbol string) (*models.FundingRate, error)
	OpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error)
}

// Completer produces a model reply for a system+user prompt pair
type Completer interface {
	ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Publisher emits decision and trade events. May be nil-backed; failures are
// logged, never fatal to a cycle.
type Publisher interface {
	PublishDecisionMade(ctx context.Context, d *models.AIDecision) error
	PublishTradeClosed(ctx context.Context, t *models.Trade) error
}

// Runner executes one decision cycle: gather market + account state, ask the
// model, persist the decision, apply valid actions to the simulated book.
type Runner struct {
	store    Store
	market   MarketData
	llm      Completer
	producer Publisher
	takerFee decimal.Decimal
}

// NewRunner wires a cycle runner. producer may be nil.
func NewRunner(store Store, market MarketData, completer Completer, producer Publisher, takerFeeRate float64) *Runner {
	return &Runner{
		store:    store,
		market:   market,
		llm:      completer,
		producer: producer,
		takerFee: decimal.NewFromFloat(takerFeeRate),
	}
}

// CycleResult summarizes one completed decision cycle
type CycleResult struct {
	DecisionID    int64    `json:"decision_id"`
	DecisionType  string   `json:"decision_type"`
	NumDecisions  int      `json:"num_decisions"`
	Opened        int      `json:"opened"`
	Closed        int      `json:"closed"`
	ParsingErrors []string `json:"parsing_errors,omitempty"`
}

// symbolSnapshot is the per-symbol market state fed into the prompt
type symbolSnapshot struct {
	Symbol       string               `json:"symbol"`
	Price        float64              `json:"price"`
	ChangePct24h float64              `json:"change_pct_24h"`
	Volume24h    float64              `json:"volume_24h"`
	Indicators   *indicators.Latest   `json:"indicators,omitempty"`
	FundingRate  *models.FundingRate  `json:"funding_rate,omitempty"`
	OpenInterest *models.OpenInterest `json:"open_interest,omitempty"`
}

// accountState is the session-book view fed into the prompt
type accountState struct {
	AvailableCash decimal.Decimal    `json:"available_cash"`
	TotalValue    decimal.Decimal    `json:"total_value"`
	UnrealizedPnl decimal.Decimal    `json:"unrealized_pnl"`
	Positions     []*models.Position `json:"positions"`
}

// RunCycle performs one full decision cycle for a running session
func (r *Runner) RunCycle(ctx context.Context, sessionID int64, cfg Config) (*CycleResult, error) {
	session, err := r.store.GetSessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return nil, fmt.Errorf("session %d is not running (status: %s)", sessionID, session.Status)
	}

	snapshots := r.gatherMarketData(ctx, cfg.Symbols)
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no market data available for symbols %v", cfg.Symbols)
	}

	account, err := r.gatherAccountState(sessionID, snapshots)
	if err != nil {
		return nil, err
	}

	promptData, err := json.Marshal(map[string]interface{}{
		"market":  snapshots,
		"account": account,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prompt data: %w", err)
	}

	response, err := r.llm.ChatCompletion(ctx, buildSystemPrompt(cfg), buildUserPrompt(promptData))
	if err != nil {
		return nil, fmt.Errorf("decision request failed: %w", err)
	}

	parsed := llm.Parse(response)

	suggested, _ := json.Marshal(parsed.Decisions)
	decision := &models.AIDecision{
		SessionID:        sessionID,
		Symbols:          cfg.Symbols,
		DecisionType:     classifyDecisions(parsed.Decisions),
		Confidence:       maxConfidence(parsed.Decisions),
		PromptData:       promptData,
		AIResponse:       response,
		Reasoning:        parsed.Thinking,
		SuggestedActions: suggested,
		AccountBalance:   account.AvailableCash,
		UnrealizedPnl:    account.UnrealizedPnl,
		TotalAsset:       account.TotalValue,
	}
	if err := r.store.CreateDecision(decision); err != nil {
		return nil, err
	}

	result := &CycleResult{
		DecisionID:    decision.ID,
		DecisionType:  decision.DecisionType,
		NumDecisions:  len(parsed.Decisions),
		ParsingErrors: parsed.ParsingErrors,
	}

	execResults := r.executeDecisions(ctx, sessionID, decision.ID, parsed.Decisions, snapshots, account, cfg, result)

	executed := result.Opened+result.Closed > 0
	if execJSON, err := json.Marshal(execResults); err == nil {
		if err := r.store.UpdateDecisionExecution(decision.ID, executed, execJSON); err != nil {
			log.Printf("Failed to record execution result for decision %d: %v", decision.ID, err)
		}
	}
	decision.Executed = executed

	if err := r.writeSnapshot(sessionID, decision.ID, session, account); err != nil {
		log.Printf("Failed to write account snapshot for session %d: %v", sessionID, err)
	}

	if r.producer != nil {
		if err := r.producer.PublishDecisionMade(ctx, decision); err != nil {
			log.Printf("Failed to publish decision event: %v", err)
		}
	}

	return result, nil
}

// gatherMarketData builds the per-symbol prompt snapshots. A symbol with no
// ticker is dropped; indicators, funding and open interest are best effort.
func (r *Runner) gatherMarketData(ctx context.Context, symbols []string) map[string]*symbolSnapshot {
	snapshots := make(map[string]*symbolSnapshot, len(symbols))

	for _, symbol := range symbols {
		ticker, err := r.market.Ticker(ctx, symbol)
		if err != nil {
			log.Printf("Skipping %s: ticker unavailable: %v", symbol, err)
			continue
		}

		snap := &symbolSnapshot{
			Symbol:       symbol,
			Price:        ticker.Last,
			ChangePct24h: ticker.ChangePct24h,
			Volume24h:    ticker.Volume,
		}

		if klines, err := r.market.Klines(ctx, symbol, "1h", 100); err == nil && len(klines) > 0 {
			snap.Indicators = indicators.ComputeLatest(klines)
		}
		if funding, err := r.market.FundingRate(ctx, symbol); err == nil {
			snap.FundingRate = funding
		}
		if oi, err := r.market.OpenInterest(ctx, symbol); err == nil {
			snap.OpenInterest = oi
		}

		snapshots[exchange.NormalizeSymbol(symbol)] = snap
	}
	return snapshots
}

// gatherAccountState loads open positions, refreshes their marks against the
// gathered tickers, and derives equity from the latest snapshot.
func (r *Runner) gatherAccountState(sessionID int64, snapshots map[string]*symbolSnapshot) (*accountState, error) {
	positions, err := r.store.GetActivePositions(sessionID)
	if err != nil {
		return nil, err
	}

	unrealized := decimal.Zero
	margin := decimal.Zero
	for _, p := range positions {
		if snap, ok := snapshots[exchange.NormalizeSymbol(p.Symbol)]; ok {
			price := decimal.NewFromFloat(snap.Price)
			pnl := positionPnl(p.Side, p.EntryPrice, price, p.Quantity)
			p.CurrentPrice = price
			p.UnrealizedPnl = pnl
			if err := r.store.UpdatePositionPrice(p.ID, price, pnl); err != nil {
				log.Printf("Failed to update position %d mark: %v", p.ID, err)
			}
		}
		unrealized = unrealized.Add(p.UnrealizedPnl)
		margin = margin.Add(p.Margin)
	}

	cash := decimal.Zero
	if latest, err := r.store.GetLatestSnapshot(sessionID); err != nil {
		return nil, err
	} else if latest != nil {
		cash = latest.AvailableCash
	}

	return &accountState{
		AvailableCash: cash,
		TotalValue:    cash.Add(margin).Add(unrealized),
		UnrealizedPnl: unrealized,
		Positions:     positions,
	}, nil
}

// executionRecord is one entry of the persisted execution_result array
type executionRecord struct {
	Symbol string `json:"symbol"`
	Action string `json:"action"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (r *Runner) executeDecisions(
	ctx context.Context,
	sessionID, decisionID int64,
	decisions []llm.Decision,
	snapshots map[string]*symbolSnapshot,
	account *accountState,
	cfg Config,
	result *CycleResult,
) []executionRecord {
	records := make([]executionRecord, 0, len(decisions))

	for _, d := range decisions {
		rec := executionRecord{Symbol: d.Symbol, Action: d.Action}

		switch {
		case d.IsOpen():
			if err := r.openPosition(sessionID, decisionID, d, snapshots, account, cfg); err != nil {
				rec.Status = "skipped"
				rec.Detail = err.Error()
			} else {
				rec.Status = "executed"
				result.Opened++
			}
		case d.IsClose():
			if err := r.closePosition(ctx, sessionID, decisionID, d, snapshots, account); err != nil {
				rec.Status = "skipped"
				rec.Detail = err.Error()
			} else {
				rec.Status = "executed"
				result.Closed++
			}
		default:
			rec.Status = "noop"
		}
		records = append(records, rec)
	}
	return records
}

func (r *Runner) openPosition(
	sessionID, decisionID int64,
	d llm.Decision,
	snapshots map[string]*symbolSnapshot,
	account *accountState,
	cfg Config,
) error {
	snap, ok := snapshots[exchange.NormalizeSymbol(d.Symbol)]
	if !ok {
		return fmt.Errorf("no market data for %s", d.Symbol)
	}
	if cfg.MaxLeverage > 0 && d.Leverage > cfg.MaxLeverage {
		return fmt.Errorf("leverage %d exceeds limit %d", d.Leverage, cfg.MaxLeverage)
	}
	if cfg.MaxPositionSizeUSD > 0 && d.PositionSizeUSD > cfg.MaxPositionSizeUSD {
		return fmt.Errorf("position size %.2f exceeds limit %.2f", d.PositionSizeUSD, cfg.MaxPositionSizeUSD)
	}
	if cfg.MaxPositions > 0 && len(account.Positions) >= cfg.MaxPositions {
		return fmt.Errorf("position limit reached (%d)", cfg.MaxPositions)
	}

	price := decimal.NewFromFloat(snap.Price)
	if price.IsZero() {
		return fmt.Errorf("zero price for %s", d.Symbol)
	}
	size := decimal.NewFromFloat(d.PositionSizeUSD)
	margin := size.Div(decimal.NewFromInt(int64(d.Leverage)))
	if account.AvailableCash.LessThan(margin) {
		return fmt.Errorf("insufficient cash: need %s, have %s", margin, account.AvailableCash)
	}

	side := models.PositionSideLong
	if d.Action == llm.ActionOpenShort {
		side = models.PositionSideShort
	}

	position := &models.Position{
		SessionID:    sessionID,
		Symbol:       exchange.NormalizeSymbol(d.Symbol),
		Side:         side,
		Quantity:     size.Div(price),
		EntryPrice:   price,
		CurrentPrice: price,
		Leverage:     d.Leverage,
		Margin:       margin,
		AIDecisionID: &decisionID,
	}
	if d.StopLoss != nil {
		position.StopLoss = decimal.NewFromFloat(*d.StopLoss)
	}
	if d.TakeProfit != nil {
		position.TakeProfit = decimal.NewFromFloat(*d.TakeProfit)
	}

	if err := r.store.CreatePosition(position); err != nil {
		return err
	}

	account.AvailableCash = account.AvailableCash.Sub(margin)
	account.Positions = append(account.Positions, position)
	return nil
}

func (r *Runner) closePosition(
	ctx context.Context,
	sessionID, decisionID int64,
	d llm.Decision,
	snapshots map[string]*symbolSnapshot,
	account *accountState,
) error {
	side := models.PositionSideLong
	if d.Action == llm.ActionCloseShort {
		side = models.PositionSideShort
	}

	symbol := exchange.NormalizeSymbol(d.Symbol)
	var position *models.Position
	for _, p := range account.Positions {
		if exchange.NormalizeSymbol(p.Symbol) == symbol && p.Side == side && p.Status == models.PositionStatusActive {
			position = p
			break
		}
	}
	if position == nil {
		return fmt.Errorf("no active %s position for %s", side, d.Symbol)
	}

	snap, ok := snapshots[symbol]
	if !ok {
		return fmt.Errorf("no market data for %s", d.Symbol)
	}
	exitPrice := decimal.NewFromFloat(snap.Price)
	now := time.Now()

	gross := positionPnl(position.Side, position.EntryPrice, exitPrice, position.Quantity)
	fee := exitPrice.Mul(position.Quantity).Mul(r.takerFee)
	net := gross.Sub(fee)

	if err := r.store.ClosePosition(position.ID, exitPrice, net, now); err != nil {
		return err
	}

	trade := &models.Trade{
		SessionID:    sessionID,
		Symbol:       position.Symbol,
		Side:         position.Side,
		Quantity:     position.Quantity,
		EntryPrice:   position.EntryPrice,
		ExitPrice:    exitPrice,
		Fee:          fee,
		Pnl:          net,
		Leverage:     position.Leverage,
		EntryTime:    position.EntryTime,
		ExitTime:     now,
		PositionID:   &position.ID,
		AIDecisionID: &decisionID,
	}
	if !position.Margin.IsZero() {
		trade.PnlPct = net.Div(position.Margin).Mul(decimal.NewFromInt(100))
	}
	if err := r.store.CreateTrade(trade); err != nil {
		return err
	}

	position.Status = models.PositionStatusClosed
	account.AvailableCash = account.AvailableCash.Add(position.Margin).Add(net)
	metrics.TradesClosedTotal.Inc()

	if r.producer != nil {
		if err := r.producer.PublishTradeClosed(ctx, trade); err != nil {
			log.Printf("Failed to publish trade event: %v", err)
		}
	}
	return nil
}

// writeSnapshot records post-cycle equity for the session
func (r *Runner) writeSnapshot(sessionID, decisionID int64, session *models.TradingSession, account *accountState) error {
	margin := decimal.Zero
	unrealized := decimal.Zero
	summary := make(map[string]string)
	for _, p := range account.Positions {
		if p.Status != models.PositionStatusActive {
			continue
		}
		margin = margin.Add(p.Margin)
		unrealized = unrealized.Add(p.UnrealizedPnl)
		summary[p.Symbol] = p.Side
	}

	totalValue := account.AvailableCash.Add(margin).Add(unrealized)
	snapshot := &models.AccountSnapshot{
		SessionID:     sessionID,
		TotalValue:    totalValue,
		AvailableCash: account.AvailableCash,
		AIDecisionID:  &decisionID,
	}
	if !session.InitialCapital.IsZero() {
		snapshot.TotalPnl = totalValue.Sub(session.InitialCapital)
		snapshot.TotalReturnPct = snapshot.TotalPnl.Div(session.InitialCapital).Mul(decimal.NewFromInt(100))
	}
	if summaryJSON, err := json.Marshal(summary); err == nil {
		snapshot.PositionsSummary = summaryJSON
	}

	return r.store.CreateAccountSnapshot(snapshot)
}

// positionPnl computes gross pnl for a side given entry, mark and quantity
func positionPnl(side string, entry, mark, quantity decimal.Decimal) decimal.Decimal {
	if side == models.PositionSideShort {
		return entry.Sub(mark).Mul(quantity)
	}
	return mark.Sub(entry).Mul(quantity)
}

// classifyDecisions maps the action list onto the decision_type enum
func classifyDecisions(decisions []llm.Decision) string {
	var hasLong, hasShort, hasClose bool
	for _, d := range decisions {
		switch d.Action {
		case llm.ActionOpenLong:
			hasLong = true
		case llm.ActionOpenShort:
			hasShort = true
		case llm.ActionCloseLong, llm.ActionCloseShort:
			hasClose = true
		}
	}

	switch {
	case hasLong && hasShort:
		return models.DecisionTypeRebalance
	case hasLong:
		return models.DecisionTypeBuy
	case hasShort:
		return models.DecisionTypeSell
	case hasClose:
		return models.DecisionTypeClose
	default:
		return models.DecisionTypeHold
	}
}

// maxConfidence returns the highest decision confidence scaled to 0-1
func maxConfidence(decisions []llm.Decision) decimal.Decimal {
	best := 0
	for _, d := range decisions {
		if d.Confidence > best {
			best = d.Confidence
		}
	}
	return decimal.NewFromInt(int64(best)).Div(decimal.NewFromInt(100))
}
