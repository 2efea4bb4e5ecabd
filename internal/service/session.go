package service

import (
	"context"
	"sync"
	"time"

	"edu-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type syncLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *syncLoop) stop() {
	l.cancel()
	<-l.done
}

// SessionManager implements ports.SessionService: at most one periodic
// reconciliation loop per signed-in user.
type SessionManager struct {
	sweeper  ports.SyncService
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	loops  map[uuid.UUID]*syncLoop
	closed bool
}

func NewSessionManager(sweeper ports.SyncService, interval time.Duration, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		sweeper:  sweeper,
		interval: interval,
		log:      log,
		loops:    make(map[uuid.UUID]*syncLoop),
	}
}

// Start arms the loop for userID, replacing one that is already running.
func (m *SessionManager) Start(userID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := &syncLoop{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return
	}
	prev := m.loops[userID]
	m.loops[userID] = loop
	m.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
	go m.run(ctx, userID, loop.done)
}

func (m *SessionManager) run(ctx context.Context, userID uuid.UUID, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := m.sweeper.SyncOnLogin(ctx, userID)
			if !report.AllSucceeded() && ctx.Err() == nil {
				m.log.Warn().Str("user_id", userID.String()).Msg("periodic reconciliation incomplete")
			}
		}
	}
}

// Stop cancels the user's loop and waits for it to exit.
func (m *SessionManager) Stop(userID uuid.UUID) {
	m.mu.Lock()
	loop := m.loops[userID]
	delete(m.loops, userID)
	m.mu.Unlock()

	if loop != nil {
		loop.stop()
	}
}

func (m *SessionManager) Active(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[userID]
	return ok
}

// Shutdown stops every loop. Later calls to Start are ignored.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	loops := m.loops
	m.loops = make(map[uuid.UUID]*syncLoop)
	m.closed = true
	m.mu.Unlock()

	for _, loop := range loops {
		loop.stop()
	}
	m.log.Info().Int("sessions", len(loops)).Msg("sync sessions stopped")
}
