package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/pkg/log"
)

var ErrRoomMismatch = fmt.Errorf("message roomId does not match cache key")

// RedisMessageCache implements MessageCache on Redis lists, one list
// per room under prefix+roomID.
type RedisMessageCache struct {
	client *redis.Client
	prefix string
}

func NewRedisMessageCache(client *redis.Client, prefix string) *RedisMessageCache {
	return &RedisMessageCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisMessageCache) key(roomID int64) string {
	return c.prefix + strconv.FormatInt(roomID, 10)
}

func (c *RedisMessageCache) Append(ctx context.Context, roomID int64, msg domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("refusing to cache message: %w", err)
	}
	if msg.RoomID != strconv.FormatInt(roomID, 10) {
		return ErrRoomMismatch
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := c.client.RPush(ctx, c.key(roomID), data).Err(); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (c *RedisMessageCache) Read(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	return c.readList(ctx, c.key(roomID))
}

func (c *RedisMessageCache) Delete(ctx context.Context, roomID int64) error {
	if err := c.client.Del(ctx, c.key(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete buffer: %w", err)
	}
	return nil
}

func (c *RedisMessageCache) RoomIDs(ctx context.Context) ([]int64, error) {
	var ids []int64

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id, ok := parseRoomKey(iter.Val(), c.prefix)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan room keys: %w", err)
	}

	return ids, nil
}

// Drain renames the buffer to a sidekey before reading it. RENAME is
// atomic, so a concurrent Append either lands before the rename and is
// included, or creates a fresh buffer picked up by the next sweep.
//
// A sweep that dies between the rename and the final delete leaves its
// messages under the sidekey. The next Drain restores them to the
// front of the live buffer before detaching it, so they surface again
// rather than being lost.
func (c *RedisMessageCache) Drain(ctx context.Context, roomID int64) ([]domain.ChatMessage, error) {
	key := c.key(roomID)
	sidekey := key + ":draining"

	if err := c.restoreSidekey(ctx, key, sidekey); err != nil {
		return nil, err
	}

	if err := c.client.Rename(ctx, key, sidekey).Err(); err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to detach buffer: %w", err)
	}

	msgs, err := c.readList(ctx, sidekey)
	if err != nil {
		return nil, err
	}

	if err := c.client.Del(ctx, sidekey).Err(); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomID, strconv.FormatInt(roomID, 10)).Msg("drained buffer not cleared, next sweep will re-collect it")
	}

	return msgs, nil
}

// restoreSidekey prepends a stranded sidekey's messages back onto the
// live buffer, oldest first, so a failed sweep's snapshot re-enters
// the normal drain path. No-op when the sidekey is absent.
func (c *RedisMessageCache) restoreSidekey(ctx context.Context, key, sidekey string) error {
	for {
		err := c.client.LMove(ctx, sidekey, key, "RIGHT", "LEFT").Err()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to restore detached buffer: %w", err)
		}
	}
}

func (c *RedisMessageCache) readList(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	values, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read buffer: %w", err)
	}

	msgs := make([]domain.ChatMessage, 0, len(values))
	for _, v := range values {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return nil, fmt.Errorf("corrupt cache entry under %s: %w", key, err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// parseRoomKey strips the prefix and parses the remainder as a room id.
// Sidekeys and foreign keys under the prefix are skipped.
func parseRoomKey(key, prefix string) (int64, bool) {
	suffix := strings.TrimPrefix(key, prefix)
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isNoSuchKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}
