package mq

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"servicedesk/metrics"
	"servicedesk/models"
)

// BookingEventsChannel is the Redis Pub/Sub channel carrying booking events.
const BookingEventsChannel = "booking-events"

// Broadcaster fans a raw event out to local listeners.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// RedisPublisher publishes booking events to Redis so every instance can
// relay them to its own live clients.
type RedisPublisher struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewRedisPublisher(client *redis.Client, log *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt models.BookingEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.log.WithError(err).Error("[Emit] failed to marshal booking event")
		metrics.EventsPublished.WithLabelValues(evt.Type, "error").Inc()
		return
	}

	// the request context may already be done once the response is written
	if err := p.client.Publish(context.WithoutCancel(ctx), BookingEventsChannel, data).Err(); err != nil {
		p.log.WithError(err).WithField("bookingId", evt.BookingID).Warn("[Emit] failed to publish booking event")
		metrics.EventsPublished.WithLabelValues(evt.Type, "error").Inc()
		return
	}
	metrics.EventsPublished.WithLabelValues(evt.Type, "ok").Inc()
	p.log.WithFields(logrus.Fields{"type": evt.Type, "bookingId": evt.BookingID}).Debug("[Emit] booking event published")
}

// LocalPublisher delivers events straight to an in-process broadcaster.
// Used when Redis is not configured.
type LocalPublisher struct {
	Target Broadcaster
}

func (p LocalPublisher) Publish(_ context.Context, evt models.BookingEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(evt.Type, "error").Inc()
		return
	}
	p.Target.Broadcast(data)
	metrics.EventsPublished.WithLabelValues(evt.Type, "ok").Inc()
}

// StartBookingEventWorker relays events from Redis to target until ctx is done.
func StartBookingEventWorker(ctx context.Context, client *redis.Client, target Broadcaster, log *logrus.Logger) {
	sub := client.Subscribe(ctx, BookingEventsChannel)
	defer sub.Close()
	ch := sub.Channel()

	log.Println("[BookingEventWorker] Listening for booking events...")

	for {
		select {
		case <-ctx.Done():
			log.Println("[BookingEventWorker] stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				log.WithField("payload", msg.Payload).Warn("[BookingEventWorker] dropping malformed event")
				continue
			}
			target.Broadcast([]byte(msg.Payload))
		}
	}
}
