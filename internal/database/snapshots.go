package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// CreateAccountSnapshot inserts a point-in-time equity record
func (db *DB) CreateAccountSnapshot(s *models.AccountSnapshot) error {
	query := `
		INSERT INTO account_snapshots (
			session_id, total_value, available_cash, total_pnl, total_return_pct,
			positions_summary, ai_decision_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		s.SessionID, s.TotalValue, s.AvailableCash, s.TotalPnl, s.TotalReturnPct,
		nullJSON(s.PositionsSummary), s.AIDecisionID, now,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to create account snapshot: %w", err)
	}
	s.CreatedAt = now
	return nil
}

// GetLatestSnapshot returns the most recent snapshot for a session, nil when none
func (db *DB) GetLatestSnapshot(sessionID int64) (*models.AccountSnapshot, error) {
	query := `
		SELECT id, session_id, total_value, available_cash, total_pnl,
		       total_return_pct, positions_summary, ai_decision_id, created_at
		FROM account_snapshots
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	s, err := scanSnapshot(db.conn.QueryRow(query, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return s, nil
}

// GetSnapshotsBySession returns recent snapshots, newest first
func (db *DB) GetSnapshotsBySession(sessionID int64, limit int) ([]*models.AccountSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, session_id, total_value, available_cash, total_pnl,
		       total_return_pct, positions_summary, ai_decision_id, created_at
		FROM account_snapshots
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.AccountSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

func scanSnapshot(row scanner) (*models.AccountSnapshot, error) {
	var s models.AccountSnapshot
	var totalPnl, totalReturnPct sql.NullString
	var positionsSummary []byte
	var aiDecisionID sql.NullInt64

	err := row.Scan(
		&s.ID, &s.SessionID, &s.TotalValue, &s.AvailableCash, &totalPnl,
		&totalReturnPct, &positionsSummary, &aiDecisionID, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if totalPnl.Valid {
		s.TotalPnl, _ = decimal.NewFromString(totalPnl.String)
	}
	if totalReturnPct.Valid {
		s.TotalReturnPct, _ = decimal.NewFromString(totalReturnPct.String)
	}
	s.PositionsSummary = positionsSummary
	if aiDecisionID.Valid {
		id := aiDecisionID.Int64
		s.AIDecisionID = &id
	}
	return &s, nil
}
