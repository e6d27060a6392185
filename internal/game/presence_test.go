package game

import (
	"sync"
	"testing"
	"time"
)

type expiryRecorder struct {
	mu    sync.Mutex
	names []string
}

func (r *expiryRecorder) record(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *expiryRecorder) expired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestPresenceExpiresSilentPlayers(t *testing.T) {
	recorder := &expiryRecorder{}
	presence := NewPresence(40*time.Millisecond, recorder.record)

	presence.Touch("Alice")

	waitFor(t, time.Second, func() bool {
		expired := recorder.expired()
		return len(expired) == 1 && expired[0] == "Alice"
	})
}

func TestPresenceTouchKeepsPlayersAlive(t *testing.T) {
	recorder := &expiryRecorder{}
	presence := NewPresence(60*time.Millisecond, recorder.record)

	presence.Touch("Alice")
	for i := 0; i < 8; i++ {
		time.Sleep(20 * time.Millisecond)
		presence.Touch("Alice")
	}

	if expired := recorder.expired(); len(expired) != 0 {
		t.Errorf("player expired despite being touched: %v", expired)
	}
}

func TestPresenceForgetFiresCallback(t *testing.T) {
	recorder := &expiryRecorder{}
	presence := NewPresence(time.Minute, recorder.record)

	presence.Touch("Alice")
	presence.Forget("Alice")

	expired := recorder.expired()
	if len(expired) != 1 || expired[0] != "Alice" {
		t.Errorf("Forget() did not fire the expiry callback: %v", expired)
	}
}
