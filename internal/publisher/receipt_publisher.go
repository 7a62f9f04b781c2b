// Package publisher pushes checked-out receipts to the back-office
// sync topic. It consumes the repository watch stream: every snapshot
// is diffed against the ids already seen, and only newly checked-out
// receipts are published.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/meowkun/JBCH-Retreat-Store-sub000/internal/domain"
)

const Topic = "receipt-events"

// messageWriter is what we need from *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type ReceiptPublisher struct {
	writer messageWriter
	seen   map[string]struct{}
	seeded bool
}

func NewReceiptPublisher(brokers ...string) *ReceiptPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newWithWriter(w)
}

func newWithWriter(w messageWriter) *ReceiptPublisher {
	return &ReceiptPublisher{
		writer: w,
		seen:   make(map[string]struct{}),
	}
}

// Run consumes history snapshots until ctx is done. The first snapshot
// seeds the seen-set without publishing so a restart does not replay
// the whole history downstream.
func (p *ReceiptPublisher) Run(ctx context.Context, snapshots <-chan []domain.Receipt) {
	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			p.handleSnapshot(ctx, snapshot)
		case <-ctx.Done():
			return
		}
	}
}

func (p *ReceiptPublisher) Close() {
	if closer, ok := p.writer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("error closing writer: %v", err)
		}
	}
}

func (p *ReceiptPublisher) handleSnapshot(ctx context.Context, snapshot []domain.Receipt) {
	if !p.seeded {
		for _, r := range snapshot {
			p.seen[r.ID] = struct{}{}
		}
		p.seeded = true
		return
	}

	for _, r := range snapshot {
		if r.Status != domain.StatusCheckedOut {
			continue
		}
		if _, ok := p.seen[r.ID]; ok {
			continue
		}

		if err := p.publish(ctx, r); err != nil {
			// Not marked as seen: the next snapshot retries it.
			log.Printf("failed to publish receipt id = %v with error %v", r.ID, err)
			continue
		}
		p.seen[r.ID] = struct{}{}
	}
}

// receiptEvent is the wire shape consumed by the back-office importer.
type receiptEvent struct {
	ReceiptID     string `json:"receipt_id"`
	BuyerName     string `json:"buyer_name"`
	TotalPrice    string `json:"total_price"`
	ItemCount     int    `json:"item_count"`
	PaymentMethod string `json:"payment_method"`
	Timestamp     string `json:"timestamp"`
}

func (p *ReceiptPublisher) publish(ctx context.Context, r domain.Receipt) error {
	event := receiptEvent{
		ReceiptID:     r.ID,
		BuyerName:     r.BuyerName,
		TotalPrice:    r.TotalPrice().StringFixed(2),
		ItemCount:     r.ItemCount(),
		PaymentMethod: r.PaymentMethod.String(),
		Timestamp:     r.Timestamp.Format("2006-01-02T15:04:05"),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal receipt event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(r.ID), // receipt_id for ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("receipt.checked_out")},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
