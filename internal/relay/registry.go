package relay

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Session kinds. The kind namespaces the registry key so one user can hold
// a speech session and a search session at the same time.
const (
	KindSpeech = "speech"
	KindSearch = "search"
)

var (
	ErrNoSession     = errors.New("no active session")
	ErrSessionClosed = errors.New("session closed")
)

// LiveStream is one live bidirectional agent connection. Close is
// idempotent and is the cancellation signal: it unblocks senders and ends
// the event stream.
type LiveStream interface {
	Send(msg InboundMessage) error
	Events() <-chan Event
	Close() error
}

// Opener opens a live upstream connection for a session kind.
type Opener func(ctx context.Context, kind string) (LiveStream, error)

// Key derives the registry key for a (userID, kind) pair. Non-default kinds
// are namespaced so they never collide with the speech session.
func Key(userID, kind string) string {
	if kind == "" || kind == KindSpeech {
		return userID
	}
	return kind + "_" + userID
}

// Session is one registry entry. The registry owns it; handlers borrow it
// for the duration of a request.
type Session struct {
	Key    string
	Stream LiveStream
}

// Registry is the process-wide table of live sessions, one per
// (userID, kind). It is constructed once at startup and injected into
// request handlers.
type Registry struct {
	mu       sync.Mutex
	open     Opener
	log      *zap.Logger
	sessions map[string]*Session
}

func NewRegistry(open Opener, log *zap.Logger) *Registry {
	return &Registry{
		open:     open,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create opens a live session for (userID, kind), replacing any existing
// entry for the key. The previous session, if any, is closed before the
// replacement is installed so its upstream resources are never orphaned.
func (r *Registry) Create(ctx context.Context, userID, kind string) (*Session, error) {
	stream, err := r.open(ctx, kind)
	if err != nil {
		return nil, err
	}
	key := Key(userID, kind)
	sess := &Session{Key: key, Stream: stream}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[key]; ok {
		if cerr := old.Stream.Close(); cerr != nil {
			r.log.Warn("closing replaced session failed", zap.String("session", key), zap.Error(cerr))
		}
	}
	r.sessions[key] = sess
	return sess, nil
}

func (r *Registry) Get(userID, kind string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[Key(userID, kind)]
	return sess, ok
}

// Remove closes and deletes the session for (userID, kind). Calling it for
// an absent key is a no-op, so a disconnect racing an explicit close is safe.
func (r *Registry) Remove(userID, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := Key(userID, kind)
	sess, ok := r.sessions[key]
	if !ok {
		return
	}
	if err := sess.Stream.Close(); err != nil {
		r.log.Warn("session close failed", zap.String("session", key), zap.Error(err))
	}
	delete(r.sessions, key)
}

// Release closes sess and deletes its registry entry unless the key has
// already been replaced by a newer session. A handler finishing after a
// rapid reconnect must not tear down the reconnected session.
func (r *Registry) Release(sess *Session) {
	if sess == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := sess.Stream.Close(); err != nil {
		r.log.Warn("session close failed", zap.String("session", sess.Key), zap.Error(err))
	}
	if cur, ok := r.sessions[sess.Key]; ok && cur == sess {
		delete(r.sessions, sess.Key)
	}
}

// CloseAll closes every live session and clears the registry. Individual
// close failures are logged and do not stop the sweep.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, sess := range r.sessions {
		if err := sess.Stream.Close(); err != nil {
			r.log.Warn("session close failed during shutdown", zap.String("session", key), zap.Error(err))
		}
		delete(r.sessions, key)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
