package game

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJoinSendsWelcomeThenLeaderboard(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})
	alice := newFakeEndpoint("127.0.0.1:50001", true)

	if err := session.Join(context.Background(), "Alice", alice); err != nil {
		t.Fatalf("Join() returned an error: %v", err)
	}

	messages := alice.received(t)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages after join, got %d: %v", len(messages), messages)
	}
	if messages[0]["type"] != "welcome" {
		t.Errorf("first message type = %v, want welcome", messages[0]["type"])
	}
	if messages[0]["message"] != "Welcome Alice! Get ready for the quiz!" {
		t.Errorf("welcome message = %v", messages[0]["message"])
	}
	if messages[1]["type"] != "leaderboard" {
		t.Errorf("second message type = %v, want leaderboard", messages[1]["type"])
	}
	wantScores := map[string]interface{}{"Alice": float64(0)}
	if diff := cmp.Diff(wantScores, messages[1]["scores"]); diff != "" {
		t.Errorf("leaderboard scores mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinRejectsDuplicateName(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})
	first := newFakeEndpoint("127.0.0.1:50001", true)
	second := newFakeEndpoint("127.0.0.1:50002", true)

	if err := session.Join(context.Background(), "Alice", first); err != nil {
		t.Fatalf("first Join() returned an error: %v", err)
	}
	if err := session.Join(context.Background(), "Alice", second); err != ErrNameTaken {
		t.Fatalf("second Join() = %v, want ErrNameTaken", err)
	}

	players := session.Players()
	if len(players) != 1 || players[0].Addr != first.Addr() {
		t.Errorf("registry changed by rejected join: %+v", players)
	}
	if len(second.received(t)) != 0 {
		t.Errorf("rejected endpoint received messages: %v", second.received(t))
	}
}

func TestJoinRejectsEmptyName(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})

	for _, name := range []string{"", "   ", "\t\n"} {
		if err := session.Join(context.Background(), name, newFakeEndpoint("127.0.0.1:50001", true)); err != ErrEmptyName {
			t.Errorf("Join(%q) = %v, want ErrEmptyName", name, err)
		}
	}
	if len(session.Players()) != 0 {
		t.Errorf("registry not empty after rejected joins")
	}
}

func TestJoinTrimsName(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})

	if err := session.Join(context.Background(), "  Alice  ", newFakeEndpoint("127.0.0.1:50001", true)); err != nil {
		t.Fatalf("Join() returned an error: %v", err)
	}
	players := session.Players()
	if len(players) != 1 || players[0].Name != "Alice" {
		t.Errorf("expected trimmed name Alice, got %+v", players)
	}
}

func TestJoinDatagramRetryFromSameAddress(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})
	bob := newFakeEndpoint("10.0.0.5:8888", false)

	if err := session.Join(context.Background(), "Bob", bob); err != nil {
		t.Fatalf("first Join() returned an error: %v", err)
	}
	if err := session.Join(context.Background(), "Bob", newFakeEndpoint("10.0.0.5:8888", false)); err != nil {
		t.Fatalf("retried Join() = %v, want nil", err)
	}

	if len(session.Players()) != 1 {
		t.Errorf("retry duplicated the player: %+v", session.Players())
	}
	if welcomes := bob.receivedOfType(t, "welcome"); len(welcomes) != 1 {
		t.Errorf("original endpoint got %d welcomes, want 1", len(welcomes))
	}
}

func TestJoinDatagramNameTakenFromOtherAddress(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})

	if err := session.Join(context.Background(), "Bob", newFakeEndpoint("10.0.0.5:8888", false)); err != nil {
		t.Fatalf("first Join() returned an error: %v", err)
	}
	if err := session.Join(context.Background(), "Bob", newFakeEndpoint("10.0.0.9:8888", false)); err != ErrNameTaken {
		t.Errorf("Join() from another address = %v, want ErrNameTaken", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})
	if err := session.Join(context.Background(), "Alice", newFakeEndpoint("127.0.0.1:50001", true)); err != nil {
		t.Fatalf("Join() returned an error: %v", err)
	}

	session.Leave("Alice")
	session.Leave("Alice")
	session.Leave("Ghost")

	if len(session.Players()) != 0 {
		t.Errorf("expected empty registry, got %+v", session.Players())
	}
}

func TestScoresReturnsACopy(t *testing.T) {
	session := NewSession(testLogger(), testQuestions(), Options{})
	if err := session.Join(context.Background(), "Alice", newFakeEndpoint("127.0.0.1:50001", true)); err != nil {
		t.Fatalf("Join() returned an error: %v", err)
	}

	scores := session.Scores()
	scores["Alice"] = 9000

	if got := session.Scores()["Alice"]; got != 0 {
		t.Errorf("mutating a snapshot changed the session score: %d", got)
	}
}
