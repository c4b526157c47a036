package store

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

const (
	pendingTTL      = 7 * time.Minute
	cleanupInterval = time.Minute
)

type Message struct {
	Role    string
	Content string
}

// PendingClarification remembers an unresolved form question so a follow-up
// answer can be merged without the extension resending the whole question.
type PendingClarification struct {
	Question string
	Type     string
	Options  []string
	Prompt   string
}

// MemoryStore holds per-session state for the one-shot endpoints: a bounded
// command transcript and TTL-expired pending clarifications.
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string][]Message
	maxMessages int
	ephemeral   *cache.Cache
}

func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		transcripts: make(map[string][]Message),
		maxMessages: maxMessages,
		ephemeral:   cache.New(pendingTTL, cleanupInterval),
	}
}

func (m *MemoryStore) Append(sessionID string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[sessionID] = append(m.transcripts[sessionID], msg)
	m.trimLocked(sessionID)
}

func (m *MemoryStore) Transcript(sessionID string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.transcripts[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

func (m *MemoryStore) ClearTranscript(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transcripts, sessionID)
}

func (m *MemoryStore) trimLocked(sessionID string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.transcripts[sessionID]
	if len(msgs) > m.maxMessages {
		m.transcripts[sessionID] = msgs[len(msgs)-m.maxMessages:]
	}
}

func (m *MemoryStore) SetPendingClarification(sessionID string, p PendingClarification) {
	m.ephemeral.Set(clarifyKey(sessionID), p, cache.DefaultExpiration)
}

func (m *MemoryStore) PendingClarification(sessionID string) (PendingClarification, bool) {
	v, ok := m.ephemeral.Get(clarifyKey(sessionID))
	if !ok {
		return PendingClarification{}, false
	}
	p, ok := v.(PendingClarification)
	return p, ok
}

func (m *MemoryStore) ClearPendingClarification(sessionID string) {
	m.ephemeral.Delete(clarifyKey(sessionID))
}

func clarifyKey(sessionID string) string { return "clarify:" + sessionID }
