package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradelab/trading-dashboard/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewFromConn(conn), mock
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "session_name", "status", "initial_capital", "final_capital",
		"total_pnl", "total_return_pct", "total_trades", "winning_trades",
		"losing_trades", "win_rate", "config", "notes", "created_at", "ended_at",
	})
}

func TestCreateSession(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`INSERT INTO trading_sessions`).
		WithArgs("Demo Run", "running", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	s := &models.TradingSession{
		SessionName:    "Demo Run",
		InitialCapital: decimal.NewFromInt(10000),
	}
	err := db.CreateSession(s)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, models.SessionStatusRunning, s.Status)
	assert.False(t, s.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveSession_NoneRunning(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM trading_sessions`).
		WillReturnRows(sessionRows())

	s, err := db.GetActiveSession()
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveSession_Found(t *testing.T) {
	db, mock := newMockDB(t)

	created := time.Now()
	mock.ExpectQuery(`FROM trading_sessions`).
		WillReturnRows(sessionRows().AddRow(
			int64(3), "Demo", "running", "10000", nil, nil, nil, 0, 0, 0, nil,
			[]byte(`{"symbols":["BTCUSDT"]}`), nil, created, nil,
		))

	s, err := db.GetActiveSession()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(3), s.ID)
	assert.Equal(t, "running", s.Status)
	assert.True(t, s.InitialCapital.Equal(decimal.NewFromInt(10000)))
	assert.JSONEq(t, `{"symbols":["BTCUSDT"]}`, string(s.Config))
	assert.Nil(t, s.EndedAt)
}

func TestEndSession_NotRunning(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE trading_sessions SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.EndSession(9, models.SessionStatusCompleted,
		decimal.NewFromInt(9500), decimal.NewFromInt(-500), decimal.NewFromInt(-5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not running")
}

func TestEndSession_OK(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE trading_sessions SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.EndSession(9, models.SessionStatusCompleted,
		decimal.NewFromInt(10500), decimal.NewFromInt(500), decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTradeStats_WinRate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM trades`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "wins", "losses", "total_pnl", "biggest_win", "biggest_loss", "avg_leverage",
		}).AddRow(4, 3, 1, "250.5", "120", "-40", "2.5"))

	stats, err := db.GetTradeStats(4)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 3, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.True(t, stats.TotalPnl.Equal(decimal.RequireFromString("250.5")))
	assert.True(t, stats.WinRate.Equal(decimal.NewFromInt(75)))
}

func TestGetTradeStats_Empty(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM trades`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "wins", "losses", "total_pnl", "biggest_win", "biggest_loss", "avg_leverage",
		}).AddRow(0, 0, 0, "0", "0", "0", "0"))

	stats, err := db.GetTradeStats(4)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.True(t, stats.WinRate.IsZero())
}
