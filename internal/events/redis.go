package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/courier/internal/pkg/logger"
)

// Channel is the Redis pub/sub channel all events go out on.
const Channel = "courier:events"

// RedisNotifier publishes events to a Redis channel.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier wraps an existing Redis client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) CampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) {
	n.publish(Event{Type: EventCampaignStatus, ID: campaignID, Status: status})
}

func (n *RedisNotifier) ImportStatus(ctx context.Context, importID uuid.UUID, status string) {
	n.publish(Event{Type: EventImportStatus, ID: importID, Status: status})
}

func (n *RedisNotifier) ImportProgress(ctx context.Context, importID uuid.UUID, processed, total int) {
	n.publish(Event{Type: EventImportProgress, ID: importID, Processed: processed, Total: total})
}

// publish serializes and sends in the background with its own timeout, so
// a slow broker cannot stall the import or delivery loop that emitted the
// event.
func (n *RedisNotifier) publish(evt Event) {
	evt.Timestamp = time.Now().UTC()
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("marshal event", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.client.Publish(ctx, Channel, body).Err(); err != nil {
			logger.Error("publish event", "error", err, "type", evt.Type)
		}
	}()
}
