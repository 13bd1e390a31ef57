package twin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("create and get mailbox", func(t *testing.T) {
		s := newStore(t)
		mb := Mailbox{ID: "mb-1", Address: "t1@moemail.app", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		if err := s.CreateMailbox(ctx, mb); err != nil {
			t.Fatalf("CreateMailbox() error = %v", err)
		}
		got, err := s.GetMailbox(ctx, "mb-1")
		if err != nil {
			t.Fatalf("GetMailbox() error = %v", err)
		}
		if got.Address != mb.Address || !got.ExpiresAt.Equal(mb.ExpiresAt) {
			t.Errorf("GetMailbox() = %+v, want %+v", got, mb)
		}
	})

	t.Run("address taken", func(t *testing.T) {
		s := newStore(t)
		s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "dup@moemail.app"})
		err := s.CreateMailbox(ctx, Mailbox{ID: "mb-2", Address: "DUP@moemail.app"})
		if !errors.Is(err, ErrAddressTaken) {
			t.Errorf("CreateMailbox() error = %v, want ErrAddressTaken", err)
		}
	})

	t.Run("unknown mailbox", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetMailbox(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetMailbox() error = %v, want ErrNotFound", err)
		}
		if _, err := s.ListMessages(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("ListMessages() error = %v, want ErrNotFound", err)
		}
		if err := s.AddMessage(ctx, Message{ID: "m1", MailboxID: "nope"}); !errors.Is(err, ErrNotFound) {
			t.Errorf("AddMessage() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("messages newest first", func(t *testing.T) {
		s := newStore(t)
		s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "t1@moemail.app"})
		for i, id := range []string{"m1", "m2", "m3"} {
			msg := Message{ID: id, MailboxID: "mb-1", Text: "body " + id, ReceivedAt: now.Add(time.Duration(i) * time.Second)}
			if err := s.AddMessage(ctx, msg); err != nil {
				t.Fatalf("AddMessage(%s) error = %v", id, err)
			}
		}

		msgs, err := s.ListMessages(ctx, "mb-1")
		if err != nil {
			t.Fatalf("ListMessages() error = %v", err)
		}
		var ids []string
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		if len(ids) != 3 || ids[0] != "m3" || ids[2] != "m1" {
			t.Errorf("ListMessages() ids = %v, want [m3 m2 m1]", ids)
		}

		got, err := s.GetMessage(ctx, "mb-1", "m2")
		if err != nil {
			t.Fatalf("GetMessage() error = %v", err)
		}
		if got.Text != "body m2" || !got.ReceivedAt.Equal(now.Add(time.Second)) {
			t.Errorf("GetMessage() = %+v", got)
		}
		if _, err := s.GetMessage(ctx, "mb-1", "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetMessage(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("empty inbox", func(t *testing.T) {
		s := newStore(t)
		s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "t1@moemail.app"})
		msgs, err := s.ListMessages(ctx, "mb-1")
		if err != nil || len(msgs) != 0 {
			t.Errorf("ListMessages() = %v, %v, want empty", msgs, err)
		}
	})

	t.Run("reset", func(t *testing.T) {
		s := newStore(t)
		s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "t1@moemail.app"})
		if err := s.Reset(ctx); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if _, err := s.GetMailbox(ctx, "mb-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetMailbox() after reset error = %v", err)
		}
		if err := s.CreateMailbox(ctx, Mailbox{ID: "mb-2", Address: "t1@moemail.app"}); err != nil {
			t.Errorf("address not released by reset: %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, _ := newRedisStore(t)
		return s
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "t1@moemail.app", ExpiresAt: now.Add(time.Hour)})
	now = now.Add(time.Hour)

	if _, err := s.GetMailbox(ctx, "mb-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMailbox() error = %v, want ErrNotFound after expiry", err)
	}
	if err := s.CreateMailbox(ctx, Mailbox{ID: "mb-2", Address: "t1@moemail.app"}); err != nil {
		t.Errorf("CreateMailbox() on expired address error = %v", err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "t1@moemail.app", ExpiresAt: now.Add(time.Hour)})
	if err := s.AddMessage(ctx, Message{ID: "m1", MailboxID: "mb-1", Text: "hi", ReceivedAt: now}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	for _, key := range []string{"moemail:mailbox:mb-1", "moemail:addr:t1@moemail.app", "moemail:msg:mb-1:m1", "moemail:inbox:mb-1"} {
		if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Hour {
			t.Errorf("TTL(%s) = %v, want (0, 1h]", key, ttl)
		}
	}

	mr.FastForward(time.Hour + time.Second)
	if _, err := s.GetMailbox(ctx, "mb-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMailbox() error = %v, want ErrNotFound after expiry", err)
	}
}

func TestRedisStore_NoExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	s.CreateMailbox(ctx, Mailbox{ID: "mb-1", Address: "t1@moemail.app"})
	s.AddMessage(ctx, Message{ID: "m1", MailboxID: "mb-1", Text: "hi", ReceivedAt: time.Now()})

	if ttl := mr.TTL("moemail:msg:mb-1:m1"); ttl != 0 {
		t.Errorf("TTL = %v, want none", ttl)
	}
}

func TestRedisStore_RejectsExpiredMailbox(t *testing.T) {
	s, _ := newRedisStore(t)
	err := s.CreateMailbox(context.Background(), Mailbox{ID: "mb-1", Address: "a@b.c", ExpiresAt: time.Now().Add(-time.Minute)})
	if err == nil {
		t.Error("CreateMailbox() error = nil for an already expired mailbox")
	}
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("OpenRedis() error = %v", err)
	}
	defer s.Close()

	if _, err := OpenRedis(context.Background(), "not-a-url"); err == nil {
		t.Error("OpenRedis(not-a-url) error = nil")
	}
}
