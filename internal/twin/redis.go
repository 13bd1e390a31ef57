package twin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the RedisStore writes.
const DefaultRedisPrefix = "moemail:"

// RedisStore keeps state in Redis. Keys inherit the mailbox expiry, so
// Redis drops expired mailboxes and their messages on its own.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: DefaultRedisPrefix, now: time.Now}
}

// OpenRedis connects to redisURL and verifies the connection.
func OpenRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) mailboxKey(id string) string {
	return s.prefix + "mailbox:" + id
}

func (s *RedisStore) addressKey(addr string) string {
	return s.prefix + "addr:" + strings.ToLower(addr)
}

func (s *RedisStore) inboxKey(mailboxID string) string {
	return s.prefix + "inbox:" + mailboxID
}

func (s *RedisStore) messageKey(mailboxID, messageID string) string {
	return s.prefix + "msg:" + mailboxID + ":" + messageID
}

// ttl returns the key lifetime for a mailbox, 0 meaning no expiry.
func (s *RedisStore) ttl(mb Mailbox) (time.Duration, error) {
	if mb.ExpiresAt.IsZero() {
		return 0, nil
	}
	d := mb.ExpiresAt.Sub(s.now())
	if d <= 0 {
		return 0, fmt.Errorf("mailbox %s already expired", mb.ID)
	}
	return d, nil
}

func (s *RedisStore) CreateMailbox(ctx context.Context, mb Mailbox) error {
	ttl, err := s.ttl(mb)
	if err != nil {
		return err
	}
	data, err := json.Marshal(mb)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.addressKey(mb.Address), mb.ID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAddressTaken
	}
	return s.client.Set(ctx, s.mailboxKey(mb.ID), data, ttl).Err()
}

func (s *RedisStore) GetMailbox(ctx context.Context, id string) (Mailbox, error) {
	data, err := s.client.Get(ctx, s.mailboxKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Mailbox{}, ErrNotFound
	}
	if err != nil {
		return Mailbox{}, err
	}
	var mb Mailbox
	if err := json.Unmarshal(data, &mb); err != nil {
		return Mailbox{}, err
	}
	return mb, nil
}

func (s *RedisStore) AddMessage(ctx context.Context, msg Message) error {
	if _, err := s.GetMailbox(ctx, msg.MailboxID); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// PTTL is negative when the key has no expiry.
	ttl, err := s.client.PTTL(ctx, s.mailboxKey(msg.MailboxID)).Result()
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	inboxKey := s.inboxKey(msg.MailboxID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.messageKey(msg.MailboxID, msg.ID), data, ttl)
	pipe.ZAdd(ctx, inboxKey, redis.Z{
		Score:  float64(msg.ReceivedAt.UnixMilli()),
		Member: msg.ID,
	})
	if ttl > 0 {
		pipe.PExpire(ctx, inboxKey, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListMessages(ctx context.Context, mailboxID string) ([]Message, error) {
	if _, err := s.GetMailbox(ctx, mailboxID); err != nil {
		return nil, err
	}

	ids, err := s.client.ZRevRange(ctx, s.inboxKey(mailboxID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Message{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.messageKey(mailboxID, id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) GetMessage(ctx context.Context, mailboxID, messageID string) (Message, error) {
	if _, err := s.GetMailbox(ctx, mailboxID); err != nil {
		return Message{}, err
	}
	data, err := s.client.Get(ctx, s.messageKey(mailboxID, messageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Reset deletes every key under the store's prefix.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
