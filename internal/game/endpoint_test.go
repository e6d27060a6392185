package game

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/question"
)

// fakeEndpoint records every line the session sends to it.
type fakeEndpoint struct {
	addr     string
	reliable bool

	mu      sync.Mutex
	sent    [][]byte
	failing bool
}

func newFakeEndpoint(addr string, reliable bool) *fakeEndpoint {
	return &fakeEndpoint{addr: addr, reliable: reliable}
}

func (f *fakeEndpoint) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		return errors.New("peer gone")
	}
	line := make([]byte, len(data))
	copy(line, data)
	f.sent = append(f.sent, line)
	return nil
}

func (f *fakeEndpoint) Addr() string   { return f.addr }
func (f *fakeEndpoint) Reliable() bool { return f.reliable }

func (f *fakeEndpoint) fail() {
	f.mu.Lock()
	f.failing = true
	f.mu.Unlock()
}

// received decodes everything sent to the endpoint so far.
func (f *fakeEndpoint) received(t *testing.T) []map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	messages := make([]map[string]interface{}, 0, len(f.sent))
	for _, line := range f.sent {
		var m map[string]interface{}
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("endpoint %s received invalid JSON %q: %v", f.addr, line, err)
		}
		messages = append(messages, m)
	}
	return messages
}

// receivedOfType filters received down to messages of one type.
func (f *fakeEndpoint) receivedOfType(t *testing.T, messageType string) []map[string]interface{} {
	t.Helper()
	var matches []map[string]interface{}
	for _, m := range f.received(t) {
		if m["type"] == messageType {
			matches = append(matches, m)
		}
	}
	return matches
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testQuestions() []question.Question {
	return []question.Question{
		{ID: 1, Text: "What is 2+2?", Options: []string{"3", "4", "5", "6"}, Correct: 2},
		{ID: 2, Text: "What color is the sky?", Options: []string{"Blue", "Green", "Red", "Yellow"}, Correct: 1},
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
