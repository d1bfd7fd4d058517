package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// ErrSessionNotRunning is returned when ending a session that is not in the
// running state.
var ErrSessionNotRunning = errors.New("session not running")

const sessionColumns = `
	id, session_name, status, initial_capital, final_capital, total_pnl,
	total_return_pct, total_trades, winning_trades, losing_trades, win_rate,
	config, notes, created_at, ended_at
`

// CreateSession inserts a new trading session with status running
func (db *DB) CreateSession(s *models.TradingSession) error {
	query := `
		INSERT INTO trading_sessions (
			session_name, status, initial_capital, config, created_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	now := time.Now()
	if s.Status == "" {
		s.Status = models.SessionStatusRunning
	}
	err := db.conn.QueryRow(query,
		s.SessionName, s.Status, nullDecimal(s.InitialCapital), nullJSON(s.Config), now,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	s.CreatedAt = now
	return nil
}

// GetSessionByID retrieves a session by its ID
func (db *DB) GetSessionByID(id int64) (*models.TradingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM trading_sessions WHERE id = $1`

	s, err := scanSession(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetActiveSession returns the running session, or nil when none is active
func (db *DB) GetActiveSession() (*models.TradingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM trading_sessions
		WHERE status = 'running'
		ORDER BY created_at DESC
		LIMIT 1
	`
	s, err := scanSession(db.conn.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// ListSessions returns sessions newest first, optionally filtered by status
func (db *DB) ListSessions(status string, limit int) ([]*models.TradingSession, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if status != "" {
		query := `
			SELECT ` + sessionColumns + `
			FROM trading_sessions
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err = db.conn.Query(query, status, limit)
	} else {
		query := `
			SELECT ` + sessionColumns + `
			FROM trading_sessions
			ORDER BY created_at DESC
			LIMIT $1
		`
		rows, err = db.conn.Query(query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.TradingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// EndSession marks a session terminal and records its final figures
func (db *DB) EndSession(id int64, status string, finalCapital, totalPnl, totalReturnPct decimal.Decimal) error {
	query := `
		UPDATE trading_sessions SET
			status = $2, final_capital = $3, total_pnl = $4,
			total_return_pct = $5, ended_at = $6
		WHERE id = $1 AND status = 'running'
	`
	result, err := db.conn.Exec(query, id, status, finalCapital, totalPnl, totalReturnPct, time.Now())
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrSessionNotRunning, id)
	}
	return nil
}

// UpdateSessionStats writes the aggregate trade statistics onto the session row
func (db *DB) UpdateSessionStats(id int64, stats *models.SessionStats) error {
	query := `
		UPDATE trading_sessions SET
			total_trades = $2, winning_trades = $3, losing_trades = $4, win_rate = $5
		WHERE id = $1
	`
	_, err := db.conn.Exec(query, id, stats.TotalTrades, stats.WinningTrades, stats.LosingTrades, stats.WinRate)
	if err != nil {
		return fmt.Errorf("failed to update session stats: %w", err)
	}
	return nil
}

// UpdateSessionNotes sets the free-text notes on a session
func (db *DB) UpdateSessionNotes(id int64, notes string) error {
	_, err := db.conn.Exec(`UPDATE trading_sessions SET notes = $2 WHERE id = $1`, id, notes)
	if err != nil {
		return fmt.Errorf("failed to update session notes: %w", err)
	}
	return nil
}

// scanner lets scanSession work for both QueryRow and Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*models.TradingSession, error) {
	var s models.TradingSession
	var initialCapital, finalCapital, totalPnl, totalReturnPct, winRate sql.NullString
	var config []byte
	var notes sql.NullString
	var endedAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.SessionName, &s.Status, &initialCapital, &finalCapital, &totalPnl,
		&totalReturnPct, &s.TotalTrades, &s.WinningTrades, &s.LosingTrades, &winRate,
		&config, &notes, &s.CreatedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	if initialCapital.Valid {
		s.InitialCapital, _ = decimal.NewFromString(initialCapital.String)
	}
	if finalCapital.Valid {
		s.FinalCapital, _ = decimal.NewFromString(finalCapital.String)
	}
	if totalPnl.Valid {
		s.TotalPnl, _ = decimal.NewFromString(totalPnl.String)
	}
	if totalReturnPct.Valid {
		s.TotalReturnPct, _ = decimal.NewFromString(totalReturnPct.String)
	}
	if winRate.Valid {
		s.WinRate, _ = decimal.NewFromString(winRate.String)
	}
	if len(config) > 0 {
		s.Config = config
	}
	if notes.Valid {
		s.Notes = notes.String
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return &s, nil
}

// nullDecimal maps a zero decimal to SQL NULL
func nullDecimal(d decimal.Decimal) interface{} {
	if d.IsZero() {
		return nil
	}
	return d
}

// nullJSON maps empty JSON to SQL NULL
func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
