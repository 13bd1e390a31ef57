package twin

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps all state in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	mailboxes map[string]Mailbox
	addresses map[string]string
	messages  map[string][]Message
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mailboxes: make(map[string]Mailbox),
		addresses: make(map[string]string),
		messages:  make(map[string][]Message),
		now:       time.Now,
	}
}

func (s *MemoryStore) CreateMailbox(_ context.Context, mb Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := strings.ToLower(mb.Address)
	if id, ok := s.addresses[addr]; ok {
		if existing, ok := s.mailboxes[id]; ok && !existing.Expired(s.now()) {
			return ErrAddressTaken
		}
		s.evict(id)
	}

	s.mailboxes[mb.ID] = mb
	s.addresses[addr] = mb.ID
	return nil
}

func (s *MemoryStore) GetMailbox(_ context.Context, id string) (Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live(id)
}

func (s *MemoryStore) AddMessage(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.live(msg.MailboxID); err != nil {
		return err
	}
	s.messages[msg.MailboxID] = append(s.messages[msg.MailboxID], msg)
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, mailboxID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.live(mailboxID); err != nil {
		return nil, err
	}
	msgs := slices.Clone(s.messages[mailboxID])
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *MemoryStore) GetMessage(_ context.Context, mailboxID, messageID string) (Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.live(mailboxID); err != nil {
		return Message{}, err
	}
	for _, msg := range s.messages[mailboxID] {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return Message{}, ErrNotFound
}

func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.mailboxes)
	clear(s.addresses)
	clear(s.messages)
	return nil
}

// live returns the mailbox if it exists and has not expired. Callers hold mu.
func (s *MemoryStore) live(id string) (Mailbox, error) {
	mb, ok := s.mailboxes[id]
	if !ok || mb.Expired(s.now()) {
		return Mailbox{}, ErrNotFound
	}
	return mb, nil
}

// evict drops a mailbox and its messages. Callers hold mu for writing.
func (s *MemoryStore) evict(id string) {
	if mb, ok := s.mailboxes[id]; ok {
		delete(s.addresses, strings.ToLower(mb.Address))
	}
	delete(s.mailboxes, id)
	delete(s.messages, id)
}
