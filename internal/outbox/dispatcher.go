// Package outbox persists and delivers record events to Kafka.
package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Event is one undelivered outbox row.
type Event struct {
	ID           int64
	Topic        string
	EventType    string
	PartitionKey string
	Payload      []byte
}

// Dispatcher drains the outbox table and delivers events to Kafka. Failed
// batches stay unpublished and are retried on the next tick.
type Dispatcher struct {
	pool             *pgxpool.Pool
	producer         messageWriter
	pollInterval     time.Duration
	batchSize        int
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, producer messageWriter, pollInterval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		pool:             pool,
		producer:         producer,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("outbox dispatch failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	start := time.Now()

	events, err := d.fetchAndClaim(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	byTopic := make(map[string][]kafka.Message)
	for _, event := range events {
		byTopic[event.Topic] = append(byTopic[event.Topic], BuildMessage(event))
	}
	for topic, msgs := range byTopic {
		if err := d.producer.WriteMessages(ctx, topic, msgs...); err != nil {
			failedCounter.Add(float64(len(msgs)))
			return err
		}
	}

	deliveredCounter.Add(float64(len(events)))
	return d.markPublished(ctx, events)
}

// BuildMessage renders one outbox event as a Kafka message with the routing
// headers consumers key on.
func BuildMessage(event Event) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.PartitionKey),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
}

func (d *Dispatcher) fetchAndClaim(ctx context.Context) ([]Event, error) {
	// Unclaimed rows, plus claimed rows whose claim went stale because a
	// dispatcher died between claiming and publishing.
	const query = `SELECT id, topic, event_type, partition_key, payload
        FROM outbox
        WHERE published_at IS NULL
          AND (claimed_at IS NULL OR claimed_at < now() - interval '1 minute')
        ORDER BY id LIMIT $1 FOR UPDATE SKIP LOCKED`

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, d.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.ID, &event.Topic, &event.EventType, &event.PartitionKey, &event.Payload); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(events) > 0 {
		ids := make([]int64, 0, len(events))
		for _, event := range events {
			ids = append(ids, event.ID)
		}
		if _, err := tx.Exec(ctx, `UPDATE outbox SET claimed_at = now() WHERE id = ANY($1)`, ids); err != nil {
			return nil, err
		}
	}
	return events, tx.Commit(ctx)
}

func (d *Dispatcher) markPublished(ctx context.Context, events []Event) error {
	ids := make([]int64, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}
	_, err := d.pool.Exec(ctx, `UPDATE outbox SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}
