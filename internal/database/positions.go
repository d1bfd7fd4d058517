package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

const positionColumns = `
	id, session_id, symbol, side, status, quantity, entry_price, current_price,
	leverage, margin, stop_loss, take_profit, unrealized_pnl, realized_pnl,
	entry_time, exit_time, ai_decision_id, created_at, updated_at
`

// CreatePosition inserts a new simulated position
func (db *DB) CreatePosition(p *models.Position) error {
	query := `
		INSERT INTO positions (
			session_id, symbol, side, status, quantity, entry_price, current_price,
			leverage, margin, stop_loss, take_profit, entry_time, ai_decision_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	now := time.Now()
	if p.Status == "" {
		p.Status = models.PositionStatusActive
	}
	if p.EntryTime.IsZero() {
		p.EntryTime = now
	}
	err := db.conn.QueryRow(query,
		p.SessionID, p.Symbol, p.Side, p.Status, p.Quantity, p.EntryPrice,
		nullDecimal(p.CurrentPrice), p.Leverage, nullDecimal(p.Margin),
		nullDecimal(p.StopLoss), nullDecimal(p.TakeProfit), p.EntryTime,
		p.AIDecisionID, now, now,
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPositionByID retrieves a position by its ID
func (db *DB) GetPositionByID(id int64) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := scanPosition(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("position not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetActivePositions returns the open positions for a session
func (db *DB) GetActivePositions(sessionID int64) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE session_id = $1 AND status = 'active'
		ORDER BY entry_time
	`
	return db.queryPositions(query, sessionID)
}

// GetPositionsBySession returns all positions for a session, newest first
func (db *DB) GetPositionsBySession(sessionID int64) ([]*models.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE session_id = $1
		ORDER BY entry_time DESC
	`
	return db.queryPositions(query, sessionID)
}

func (db *DB) queryPositions(query string, args ...interface{}) ([]*models.Position, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// UpdatePositionPrice refreshes mark price and unrealized pnl on an open position
func (db *DB) UpdatePositionPrice(id int64, currentPrice, unrealizedPnl decimal.Decimal) error {
	query := `
		UPDATE positions SET current_price = $2, unrealized_pnl = $3, updated_at = $4
		WHERE id = $1 AND status = 'active'
	`
	_, err := db.conn.Exec(query, id, currentPrice, unrealizedPnl, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update position price: %w", err)
	}
	return nil
}

// ClosePosition marks a position closed and records the realized pnl
func (db *DB) ClosePosition(id int64, exitPrice, realizedPnl decimal.Decimal, exitTime time.Time) error {
	query := `
		UPDATE positions SET
			status = 'closed', current_price = $2, realized_pnl = $3,
			unrealized_pnl = 0, exit_time = $4, updated_at = $5
		WHERE id = $1 AND status = 'active'
	`
	result, err := db.conn.Exec(query, id, exitPrice, realizedPnl, exitTime, time.Now())
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("active position not found: %d", id)
	}
	return nil
}

func scanPosition(row scanner) (*models.Position, error) {
	var p models.Position
	var currentPrice, margin, stopLoss, takeProfit, unrealizedPnl, realizedPnl sql.NullString
	var exitTime sql.NullTime
	var aiDecisionID sql.NullInt64

	err := row.Scan(
		&p.ID, &p.SessionID, &p.Symbol, &p.Side, &p.Status, &p.Quantity, &p.EntryPrice,
		&currentPrice, &p.Leverage, &margin, &stopLoss, &takeProfit, &unrealizedPnl,
		&realizedPnl, &p.EntryTime, &exitTime, &aiDecisionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentPrice.Valid {
		p.CurrentPrice, _ = decimal.NewFromString(currentPrice.String)
	}
	if margin.Valid {
		p.Margin, _ = decimal.NewFromString(margin.String)
	}
	if stopLoss.Valid {
		p.StopLoss, _ = decimal.NewFromString(stopLoss.String)
	}
	if takeProfit.Valid {
		p.TakeProfit, _ = decimal.NewFromString(takeProfit.String)
	}
	if unrealizedPnl.Valid {
		p.UnrealizedPnl, _ = decimal.NewFromString(unrealizedPnl.String)
	}
	if realizedPnl.Valid {
		p.RealizedPnl, _ = decimal.NewFromString(realizedPnl.String)
	}
	if exitTime.Valid {
		t := exitTime.Time
		p.ExitTime = &t
	}
	if aiDecisionID.Valid {
		id := aiDecisionID.Int64
		p.AIDecisionID = &id
	}
	return &p, nil
}
