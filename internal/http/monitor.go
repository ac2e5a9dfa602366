package httpx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/terrafield/fieldsync/internal/domain/auth"
	"github.com/terrafield/fieldsync/internal/ports"
	"golang.org/x/sync/singleflight"
)

// Monitor turns authorization failures observed on the wire into session
// lifecycle actions. It is the only component that reacts to expiry, and it
// routes all mutation through the session store's Clear operation.
//
// For each expired token the monitor clears the store and emits exactly one
// SessionExpired event, however many concurrent requests observed the
// failure. A 401 against an offline-origin session is not a hard expiry:
// offline sessions are not server-validated, so the store is left intact and
// an OfflineSessionQuestioned event is emitted instead.
type Monitor struct {
	store  ports.SessionStore
	logger *slog.Logger

	group      singleflight.Group
	mu         sync.Mutex
	questioned string
	events     chan ports.SessionEvent
}

// eventBuffer bounds the event channel so slow observers never stall
// request processing.
const eventBuffer = 16

// NewMonitor constructs a Monitor over the authoritative session store.
func NewMonitor(store ports.SessionStore, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		store:  store,
		logger: logger,
		events: make(chan ports.SessionEvent, eventBuffer),
	}
}

// Events returns the channel on which session events are delivered.
func (m *Monitor) Events() <-chan ports.SessionEvent {
	return m.events
}

// HandleUnauthorized reacts to a server 401 observed for the given session.
func (m *Monitor) HandleUnauthorized(ctx context.Context, sess domainauth.Session) {
	if sess.Origin == domainauth.FamilyOffline {
		m.questionOffline(sess)
		return
	}
	m.expire(ctx, sess)
}

// NoteExpired reacts to a locally-detected expiry (the server-communicated
// expiry timestamp has passed) without a round trip.
func (m *Monitor) NoteExpired(ctx context.Context, sess domainauth.Session) {
	m.expire(ctx, sess)
}

// expire clears the store and emits one SessionExpired event per expiry.
// Concurrent calls for the same token coalesce through singleflight, and
// the token must still be the authoritative one: once the store is cleared
// (or a newer session replaces it) further observations of that token are
// stale and ignored, so repeats never accumulate state here.
func (m *Monitor) expire(ctx context.Context, sess domainauth.Session) {
	m.group.Do(sess.Token, func() (any, error) {
		cur, ok := m.store.Current(ctx)
		if !ok || cur.Token != sess.Token {
			return nil, nil
		}
		if err := m.store.Clear(ctx); err != nil {
			m.logger.ErrorContext(ctx, "clear session after expiry failed", "error", err)
		}
		m.logger.InfoContext(ctx, "session expired", "user_id", sess.UserID)
		m.emit(ports.SessionEvent{Kind: ports.SessionExpired, Token: sess.Token, At: time.Now()})
		return nil, nil
	})
}

// questionOffline emits one OfflineSessionQuestioned event per token without
// touching the store. The offline session stays current after a question, so
// repeat suppression only needs the last questioned token.
func (m *Monitor) questionOffline(sess domainauth.Session) {
	m.mu.Lock()
	repeat := m.questioned == sess.Token
	m.questioned = sess.Token
	m.mu.Unlock()
	if repeat {
		return
	}
	m.logger.Info("offline session questioned by server", "user_id", sess.UserID)
	m.emit(ports.SessionEvent{Kind: ports.OfflineSessionQuestioned, Token: sess.Token, At: time.Now()})
}

func (m *Monitor) emit(ev ports.SessionEvent) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("session event dropped, observer too slow", "kind", ev.Kind)
	}
}
