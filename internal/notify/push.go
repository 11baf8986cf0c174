package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// PushEvent is the payload published for downstream push-delivery workers.
type PushEvent struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	SentAt int64  `json:"sent_at"`
}

// BusPush publishes push events to NATS JetStream. A separate delivery
// worker fans them out to device tokens; this service only emits.
type BusPush struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewBusPush connects to the given NATS endpoint. subject is the publish
// subject prefix; events go to "<subject>.<user_id>".
func NewBusPush(url, subject string, opts ...nats.Option) (*BusPush, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open jetstream: %w", err)
	}

	return &BusPush{conn: nc, js: js, subject: subject}, nil
}

// Close drains the underlying NATS connection.
func (p *BusPush) Close() {
	if p == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Send encodes the event as JSON and publishes it.
func (p *BusPush) Send(ctx context.Context, userID, title, body string) error {
	data, err := json.Marshal(PushEvent{
		UserID: userID,
		Title:  title,
		Body:   body,
		SentAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	_, err = p.js.Publish(p.subject+"."+userID, data, nats.Context(ctx))
	return err
}
