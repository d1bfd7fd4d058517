package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

const eventSource = "trading-dashboard"

// Producer publishes decision and trade events
type Producer struct {
	decisions *kafka.Writer
	trades    *kafka.Writer
}

// NewProducer creates writers for the decision and trade topics
func NewProducer(brokers []string, decisionsTopic, tradesTopic string) *Producer {
	return &Producer{
		decisions: newWriter(brokers, decisionsTopic),
		trades:    newWriter(brokers, tradesTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// PublishDecisionMade publishes a DECISION_MADE event keyed by session id
func (p *Producer) PublishDecisionMade(ctx context.Context, d *models.AIDecision) error {
	event := models.DecisionEvent{
		EventType: models.EventTypeDecisionMade,
		Source:    eventSource,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: models.DecisionEventData{
			SessionID:    d.SessionID,
			DecisionID:   d.ID,
			DecisionType: d.DecisionType,
			Symbols:      d.Symbols,
			Confidence:   decimalString(d.Confidence),
			Executed:     d.Executed,
		},
	}
	return p.publish(ctx, p.decisions, sessionKey(d.SessionID), event)
}

// PublishTradeClosed publishes a TRADE_CLOSED event keyed by session id
func (p *Producer) PublishTradeClosed(ctx context.Context, t *models.Trade) error {
	event := models.TradeEvent{
		EventType: models.EventTypeTradeClosed,
		Source:    eventSource,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: models.TradeEventData{
			SessionID: t.SessionID,
			TradeID:   t.ID,
			Symbol:    t.Symbol,
			Side:      t.Side,
			ExitPrice: t.ExitPrice.String(),
			Pnl:       t.Pnl.String(),
		},
	}
	return p.publish(ctx, p.trades, sessionKey(t.SessionID), event)
}

func (p *Producer) publish(ctx context.Context, w *kafka.Writer, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write event to %s: %w", w.Topic, err)
	}
	return nil
}

// Close closes both writers
func (p *Producer) Close() error {
	if err := p.decisions.Close(); err != nil {
		return err
	}
	return p.trades.Close()
}

func sessionKey(sessionID int64) string {
	return fmt.Sprintf("session-%d", sessionID)
}

func decimalString(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
