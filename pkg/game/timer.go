package game

import (
	"sync"
	"time"
)

// tickInterval is how often armed timers report remaining time.
// Tests shrink this to keep runs fast.
var tickInterval = time.Second

// TimerManager runs at most one countdown per room. Arming a room that
// already has a timer replaces it; disarming is idempotent. The expiry
// callback fires at most once per armed timer, backed up by a hard
// deadline half a tick after the countdown should have finished.
type TimerManager struct {
	mu     sync.Mutex
	timers map[int64]*turnTimer
}

type turnTimer struct {
	stop chan struct{}
	once sync.Once
}

// NewTimerManager returns an empty timer manager
func NewTimerManager() *TimerManager {
	return &TimerManager{
		timers: make(map[int64]*turnTimer),
	}
}

// Arm starts a countdown for the room. onTick receives the remaining
// whole ticks after each interval; onExpire fires once when the
// countdown ends. Both run on the timer's own goroutine.
func (m *TimerManager) Arm(roomID int64, duration time.Duration, onTick func(remaining int), onExpire func()) {
	t := &turnTimer{stop: make(chan struct{})}

	m.mu.Lock()
	if old, ok := m.timers[roomID]; ok {
		old.halt()
	}
	m.timers[roomID] = t
	m.mu.Unlock()

	go m.run(roomID, t, duration, onTick, onExpire)
}

// Disarm cancels the room's countdown if one is armed
func (m *TimerManager) Disarm(roomID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.timers[roomID]; ok {
		t.halt()
		delete(m.timers, roomID)
	}
}

func (t *turnTimer) halt() {
	t.once.Do(func() {
		close(t.stop)
	})
}

// release removes the timer from the map if it is still the armed one,
// so an expiring timer never clobbers its replacement
func (m *TimerManager) release(roomID int64, t *turnTimer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timers[roomID] == t {
		delete(m.timers, roomID)
	}
}

func (m *TimerManager) run(roomID int64, t *turnTimer, duration time.Duration, onTick func(remaining int), onExpire func()) {
	remaining := int(duration / tickInterval)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	backup := time.NewTimer(duration + tickInterval/2)
	defer backup.Stop()

	expire := func() {
		m.release(roomID, t)

		// a concurrent Disarm wins if it got to the stop channel first
		select {
		case <-t.stop:
			return
		default:
		}

		t.halt()
		onExpire()
	}

	for {
		select {
		case <-t.stop:
			m.release(roomID, t)
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				expire()
				return
			}

			onTick(remaining)
		case <-backup.C:
			expire()
			return
		}
	}
}
