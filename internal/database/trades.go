package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// CreateTrade inserts a completed trade row
func (db *DB) CreateTrade(t *models.Trade) error {
	query := `
		INSERT INTO trades (
			session_id, symbol, side, quantity, entry_price, exit_price, fee,
			pnl, pnl_pct, leverage, entry_time, exit_time, position_id,
			ai_decision_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		t.SessionID, t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.Fee, t.Pnl, nullDecimal(t.PnlPct), t.Leverage, t.EntryTime, t.ExitTime,
		t.PositionID, t.AIDecisionID, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// GetTradesBySession returns the trades for a session, newest first
func (db *DB) GetTradesBySession(sessionID int64, limit int) ([]*models.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, session_id, symbol, side, quantity, entry_price, exit_price,
		       fee, pnl, pnl_pct, leverage, entry_time, exit_time, position_id,
		       ai_decision_id, created_at
		FROM trades
		WHERE session_id = $1
		ORDER BY exit_time DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		var pnlPct sql.NullString
		var positionID, aiDecisionID sql.NullInt64

		err := rows.Scan(
			&t.ID, &t.SessionID, &t.Symbol, &t.Side, &t.Quantity, &t.EntryPrice,
			&t.ExitPrice, &t.Fee, &t.Pnl, &pnlPct, &t.Leverage, &t.EntryTime,
			&t.ExitTime, &positionID, &aiDecisionID, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if pnlPct.Valid {
			t.PnlPct, _ = decimal.NewFromString(pnlPct.String)
		}
		if positionID.Valid {
			id := positionID.Int64
			t.PositionID = &id
		}
		if aiDecisionID.Valid {
			id := aiDecisionID.Int64
			t.AIDecisionID = &id
		}

		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// GetTradeStats aggregates trade outcomes for a session in one query
func (db *DB) GetTradeStats(sessionID int64) (*models.SessionStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl > 0),
			COUNT(*) FILTER (WHERE pnl < 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(MAX(pnl), 0),
			COALESCE(MIN(pnl), 0),
			COALESCE(AVG(leverage), 0)
		FROM trades
		WHERE session_id = $1
	`
	var stats models.SessionStats
	var totalPnl, biggestWin, biggestLoss, avgLeverage string

	err := db.conn.QueryRow(query, sessionID).Scan(
		&stats.TotalTrades, &stats.WinningTrades, &stats.LosingTrades,
		&totalPnl, &biggestWin, &biggestLoss, &avgLeverage,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade stats: %w", err)
	}

	stats.TotalPnl, _ = decimal.NewFromString(totalPnl)
	stats.BiggestWin, _ = decimal.NewFromString(biggestWin)
	stats.BiggestLoss, _ = decimal.NewFromString(biggestLoss)
	stats.AvgLeverage, _ = decimal.NewFromString(avgLeverage)

	if stats.TotalTrades > 0 {
		stats.WinRate = decimal.NewFromInt(int64(stats.WinningTrades)).
			Div(decimal.NewFromInt(int64(stats.TotalTrades))).
			Mul(decimal.NewFromInt(100))
	}
	return &stats, nil
}
