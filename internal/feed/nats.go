// Package feed carries document change events from the store outbox to the
// reactive units over NATS JetStream.
package feed

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const (
	streamName    = "DOCS"
	subjectPrefix = "docs"
)

// Handler processes one message. A non-nil error NAKs it for redelivery.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is a JetStream publisher and durable consumer.
type Queue struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log *zap.Logger
}

// Connect establishes a connection to NATS and ensures the DOCS stream exists.
func Connect(ctx context.Context, url string, log *zap.Logger) (*Queue, error) {
	nc, err := nats.Connect(url, nats.Name("tenant-booking-api"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	log.Info("nats connected", zap.String("url", url), zap.String("stream", streamName))
	return &Queue{nc: nc, js: js, log: log}, nil
}

func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := q.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable consumer named durable to subject. Messages are
// acked when handler succeeds and NAKed otherwise. The returned func stops
// consumption.
func (q *Queue) Subscribe(ctx context.Context, durable, subject string, handler Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
			q.log.Error("message handler failed", zap.String("subject", msg.Subject()), zap.Error(err))
			if nakErr := msg.Nak(); nakErr != nil {
				q.log.Error("nats nak failed", zap.Error(nakErr))
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			q.log.Error("nats ack failed", zap.Error(ackErr))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}
	return cons.Stop, nil
}

// Healthy reports whether the underlying connection is up.
func (q *Queue) Healthy() bool {
	return q.nc.IsConnected()
}

func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// Subject is the subject a change on collection with op is published to.
func Subject(collection, op string) string {
	return subjectPrefix + "." + collection + "." + op
}

// AllSubjects matches every change event.
const AllSubjects = subjectPrefix + ".>"
