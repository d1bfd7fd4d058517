package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// CreateDecision inserts an AI decision row. Decisions are append-only.
func (db *DB) CreateDecision(d *models.AIDecision) error {
	query := `
		INSERT INTO ai_decisions (
			session_id, symbols, decision_type, confidence, prompt_data,
			ai_response, reasoning, suggested_actions, executed, execution_result,
			account_balance, unrealized_pnl, total_asset, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		d.SessionID, pq.Array(d.Symbols), d.DecisionType, nullDecimal(d.Confidence),
		nullJSON(d.PromptData), d.AIResponse, d.Reasoning, nullJSON(d.SuggestedActions),
		d.Executed, nullJSON(d.ExecutionResult), nullDecimal(d.AccountBalance),
		nullDecimal(d.UnrealizedPnl), nullDecimal(d.TotalAsset), now,
	).Scan(&d.ID)

	if err != nil {
		return fmt.Errorf("failed to create decision: %w", err)
	}
	d.CreatedAt = now
	return nil
}

// UpdateDecisionExecution records the outcome of applying a decision
func (db *DB) UpdateDecisionExecution(id int64, executed bool, result json.RawMessage) error {
	query := `
		UPDATE ai_decisions
		SET executed = $2, execution_result = $3
		WHERE id = $1
	`
	res, err := db.conn.Exec(query, id, executed, nullJSON(result))
	if err != nil {
		return fmt.Errorf("failed to update decision execution: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("decision not found: %d", id)
	}
	return nil
}

// GetDecisionsBySession returns the decision log for a session, newest first
func (db *DB) GetDecisionsBySession(sessionID int64, limit int) ([]*models.AIDecision, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, session_id, symbols, decision_type, confidence, prompt_data,
		       ai_response, reasoning, suggested_actions, executed, execution_result,
		       account_balance, unrealized_pnl, total_asset, created_at
		FROM ai_decisions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := db.conn.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.AIDecision
	for rows.Next() {
		var d models.AIDecision
		var confidence, accountBalance, unrealizedPnl, totalAsset sql.NullString
		var promptData, suggestedActions, executionResult []byte
		var aiResponse, reasoning sql.NullString

		err := rows.Scan(
			&d.ID, &d.SessionID, pq.Array(&d.Symbols), &d.DecisionType, &confidence,
			&promptData, &aiResponse, &reasoning, &suggestedActions, &d.Executed,
			&executionResult, &accountBalance, &unrealizedPnl, &totalAsset, &d.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}

		if confidence.Valid {
			d.Confidence, _ = decimal.NewFromString(confidence.String)
		}
		if accountBalance.Valid {
			d.AccountBalance, _ = decimal.NewFromString(accountBalance.String)
		}
		if unrealizedPnl.Valid {
			d.UnrealizedPnl, _ = decimal.NewFromString(unrealizedPnl.String)
		}
		if totalAsset.Valid {
			d.TotalAsset, _ = decimal.NewFromString(totalAsset.String)
		}
		d.PromptData = promptData
		d.SuggestedActions = suggestedActions
		d.ExecutionResult = executionResult
		if aiResponse.Valid {
			d.AIResponse = aiResponse.String
		}
		if reasoning.Valid {
			d.Reasoning = reasoning.String
		}

		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

// CountDecisions returns the number of decisions logged for a session
func (db *DB) CountDecisions(sessionID int64) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM ai_decisions WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return count, nil
}
