package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/tradelab/trading-dashboard/internal/models"
)

// SnapshotRepository defines the interface for snapshot database operations
type SnapshotRepository interface {
	CreateAccountSnapshot(s *models.AccountSnapshot) error
}

// SnapshotsConsumer ingests account snapshot events published by an external
// executor feed into the account_snapshots table.
type SnapshotsConsumer struct {
	reader *kafka.Reader
	repo   SnapshotRepository
}

// NewSnapshotsConsumer creates a new Kafka consumer for snapshot events
func NewSnapshotsConsumer(brokers []string, topic, groupID string, repo SnapshotRepository) *SnapshotsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-snapshots",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset, // Only read new messages
		CommitInterval: time.Second,
	})

	return &SnapshotsConsumer{
		reader: reader,
		repo:   repo,
	}
}

// Start begins consuming messages from Kafka
func (c *SnapshotsConsumer) Start(ctx context.Context) error {
	log.Printf("Starting snapshots consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshots consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading snapshot message: %v", err)
				continue
			}

			if err := c.processMessage(msg); err != nil {
				log.Printf("Error processing snapshot message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *SnapshotsConsumer) processMessage(msg kafka.Message) error {
	var event models.AccountSnapshotEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot event: %w", err)
	}

	if event.EventType != models.EventTypeAccountSnapshot {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	snapshot, err := c.convertEventData(event.Data)
	if err != nil {
		return fmt.Errorf("invalid snapshot event: %w", err)
	}

	if err := c.repo.CreateAccountSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	log.Printf("Stored account snapshot for session %d: total_value=%s",
		snapshot.SessionID, snapshot.TotalValue)
	return nil
}

// convertEventData converts wire strings to a snapshot model
func (c *SnapshotsConsumer) convertEventData(data models.AccountSnapshotEventData) (*models.AccountSnapshot, error) {
	if data.SessionID == 0 {
		return nil, fmt.Errorf("missing session_id")
	}

	totalValue, err := decimal.NewFromString(data.TotalValue)
	if err != nil {
		return nil, fmt.Errorf("invalid total_value %q: %w", data.TotalValue, err)
	}

	availableCash, err := decimal.NewFromString(data.AvailableCash)
	if err != nil {
		return nil, fmt.Errorf("invalid available_cash %q: %w", data.AvailableCash, err)
	}

	snapshot := &models.AccountSnapshot{
		SessionID:        data.SessionID,
		TotalValue:       totalValue,
		AvailableCash:    availableCash,
		PositionsSummary: data.PositionsSummary,
	}

	if data.TotalPnl != "" {
		if pnl, err := decimal.NewFromString(data.TotalPnl); err == nil {
			snapshot.TotalPnl = pnl
		}
	}
	if data.TotalReturnPct != "" {
		if pct, err := decimal.NewFromString(data.TotalReturnPct); err == nil {
			snapshot.TotalReturnPct = pct
		}
	}
	return snapshot, nil
}

// Close closes the Kafka consumer
func (c *SnapshotsConsumer) Close() error {
	return c.reader.Close()
}
