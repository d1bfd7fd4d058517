package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/agent"
	"github.com/tradelab/trading-dashboard/internal/config"
	"github.com/tradelab/trading-dashboard/internal/models"
	"github.com/tradelab/trading-dashboard/internal/redis"
)

// Store is the database surface the HTTP handlers depend on
type Store interface {
	Ping() error

	CreateSession(s *models.TradingSession) error
	GetSessionByID(id int64) (*models.TradingSession, error)
	GetActiveSession() (*models.TradingSession, error)
	ListSessions(status string, limit int) ([]*models.TradingSession, error)
	EndSession(id int64, status string, finalCapital, totalPnl, totalReturnPct decimal.Decimal) error
	UpdateSessionStats(id int64, stats *models.SessionStats) error
	UpdateSessionNotes(id int64, notes string) error

	GetDecisionsBySession(sessionID int64, limit int) ([]*models.AIDecision, error)
	CountDecisions(sessionID int64) (int, error)

	GetActivePositions(sessionID int64) ([]*models.Position, error)
	GetPositionsBySession(sessionID int64) ([]*models.Position, error)

	GetTradesBySession(sessionID int64, limit int) ([]*models.Trade, error)
	GetTradeStats(sessionID int64) (*models.SessionStats, error)

	CreateAccountSnapshot(s *models.AccountSnapshot) error
	GetLatestSnapshot(sessionID int64) (*models.AccountSnapshot, error)
	GetSnapshotsBySession(sessionID int64, limit int) ([]*models.AccountSnapshot, error)
}

// Market is the exchange surface the HTTP handlers depend on
type Market interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error)
	Ticker(ctx context.Context, symbol string) (*models.Ticker, error)
	Symbols(ctx context.Context, quote string, activeOnly bool) ([]models.SymbolInfo, error)
	FundingRate(ctx context.Context, symbol string) (*models.FundingRate, error)
	OpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error)
	AccountSummary(ctx context.Context) (*models.AccountSummary, error)
}

// Agents is the background agent surface the HTTP handlers depend on
type Agents interface {
	Start(sessionID int64, cfg agent.Config) (*agent.Status, error)
	Stop(sessionID int64) (*agent.Status, error)
	Status(sessionID int64) *agent.Status
	List() []*agent.Status
	RunOnce(ctx context.Context, sessionID int64, cfg agent.Config) (*agent.CycleResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db            Store
	market        Market
	agents        Agents
	redis         *redis.Client
	pairs         []config.TradingPair
	agentDefaults agent.Config
	kafkaReady    bool
}

// NewHandler creates a new Handler. redisClient may be nil (no caching) and
// market may be nil (market endpoints return 503).
func NewHandler(db Store, market Market, agents Agents, redisClient *redis.Client, cfg *config.Config, kafkaReady bool) *Handler {
	return &Handler{
		db:            db,
		market:        market,
		agents:        agents,
		redis:         redisClient,
		pairs:         config.DefaultTradingPairs(),
		agentDefaults: agent.DefaultConfig(cfg.Agent.Symbols, cfg.Agent.DecisionInterval),
		kafkaReady:    kafkaReady,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.kafkaReady {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if h.market != nil {
		services["exchange"] = "configured"
	} else {
		services["exchange"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// decodeBody decodes a JSON request body into dst. An empty body is allowed
// and leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
