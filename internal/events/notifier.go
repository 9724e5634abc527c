// Package events publishes activity events (new thoughts, reactions and
// friend edges) onto Redis pub/sub channels.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	ThoughtCreated  = "thought.created"
	ReactionCreated = "reaction.created"
	FriendAdded     = "friend.added"
)

const channelPrefix = "deepthoughts:events:"

// Event is the JSON payload published for every activity.
type Event struct {
	Type      string    `json:"type"`
	ActorID   uint      `json:"actor_id"`
	Actor     string    `json:"actor"`
	ThoughtID uint      `json:"thought_id,omitempty"`
	FriendID  uint      `json:"friend_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	At        time.Time `json:"at"`
}

// Channel returns the pub/sub channel for an event type.
func Channel(eventType string) string {
	return channelPrefix + eventType
}

// Notifier provides helpers to publish events into Redis channels. A Notifier
// without a client drops everything.
type Notifier struct {
	rdb    redis.UniversalClient
	logger *slog.Logger
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb redis.UniversalClient, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{rdb: rdb, logger: logger}
}

// Publish sends evt to its type's channel.
func (n *Notifier) Publish(ctx context.Context, evt Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, Channel(evt.Type), payload).Err()
}

// Subscribe listens on every event channel and calls onEvent for each
// decodable message until ctx is cancelled. The returned channel is closed
// once the subscriber has stopped.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(Event)) (<-chan struct{}, error) {
	stopped := make(chan struct{})
	if n == nil || n.rdb == nil {
		close(stopped)
		return stopped, nil
	}

	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer close(stopped)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					n.logger.WarnContext(ctx, "dropping undecodable event",
						slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					continue
				}
				if evt.Type == "" {
					evt.Type = strings.TrimPrefix(msg.Channel, channelPrefix)
				}
				n.dispatch(ctx, onEvent, evt)
			}
		}
	}()

	return stopped, nil
}

func (n *Notifier) dispatch(ctx context.Context, onEvent func(Event), evt Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "panic in event handler",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	onEvent(evt)
}
