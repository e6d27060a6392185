// Package game implements the quiz session coordinator: the player registry,
// the timer-driven round state machine, answer collection and scoring, and
// the fan-out of server messages to every connected player.
//
// A single Session is shared by all transport frontends. Connection handlers
// and the round worker contend for one mutex guarding all registry and round
// state; network sends always happen after that lock is released.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/question"
)

// Number of points awarded for a correct answer.
const pointsPerCorrectAnswer = 10

var (
	ErrEmptyName    = errors.New("username is required")
	ErrNameTaken    = errors.New("username already taken")
	ErrNoPlayers    = errors.New("no players have joined yet")
	ErrNoQuestions  = errors.New("no questions are loaded")
	ErrRoundRunning = errors.New("a round is already running")
	ErrSessionOver  = errors.New("the session has ended; restart to play again")
)

// Endpoint is the transport-level handle through which the session reaches
// one player. Send must be safe for concurrent use and implementations are
// expected to enforce their own write deadlines so that one stuck peer
// cannot stall a broadcast sweep.
type Endpoint interface {
	// Send transmits one encoded message line to the peer.
	Send(data []byte) error
	// Addr returns the peer's remote address for logging and, on datagram
	// transports, identity checks.
	Addr() string
	// Reliable reports whether the transport delivers messages in order
	// without loss. Answers from unreliable endpoints are held until the
	// reveal and scored on the most recent submission.
	Reliable() bool
}

// Options control admission and round pacing for a Session.
type Options struct {
	// How long each question's answer window stays open.
	QuestionTime time.Duration
	// Pause between a reveal and the next question.
	Intermission time.Duration
	// Number of players that triggers an automatic start when AutoStart is set.
	MinPlayers int
	AutoStart  bool
	// Serve the questions in random order.
	Shuffle bool
	// Cap on the number of questions per round; 0 plays the whole bank.
	QuestionLimit int
}

type player struct {
	name     string
	endpoint Endpoint
	score    int
}

// PlayerInfo is a point-in-time view of one registered player.
type PlayerInfo struct {
	Name     string
	Addr     string
	Score    int
	Reliable bool
}

// Session owns all shared game state for one server process. All exported
// methods are safe for concurrent use.
type Session struct {
	logger *logrus.Logger

	mu        sync.Mutex
	players   map[string]*player
	questions []question.Question
	opts      Options
	round     round
	started   bool
	over      bool
	rnd       *rand.Rand
}

// NewSession returns a Session serving the provided question bank. Zero
// values in opts fall back to the defaults used by the stock server.
func NewSession(logger *logrus.Logger, questions []question.Question, opts Options) *Session {
	if opts.QuestionTime <= 0 {
		opts.QuestionTime = 15 * time.Second
	}
	if opts.Intermission <= 0 {
		opts.Intermission = 3 * time.Second
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = 2
	}

	return &Session{
		logger:    logger,
		players:   make(map[string]*player),
		questions: questions,
		opts:      opts,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Join admits a player under name and acknowledges with a welcome message,
// followed by a leaderboard broadcast that surfaces the new roster to
// everyone. A duplicate register from the same datagram address is treated
// as a transport retry and re-acknowledged rather than rejected.
//
// ctx is only used to drive an automatic round start when the configured
// minimum number of players has been reached.
func (s *Session) Join(ctx context.Context, name string, endpoint Endpoint) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	if existing, ok := s.players[name]; ok {
		if !endpoint.Reliable() && existing.endpoint.Addr() == endpoint.Addr() {
			s.mu.Unlock()
			s.sendWelcome(name, endpoint)
			return nil
		}
		s.mu.Unlock()
		return ErrNameTaken
	}
	s.players[name] = &player{name: name, endpoint: endpoint}
	shouldStart := s.opts.AutoStart && !s.started && !s.over && len(s.players) >= s.opts.MinPlayers
	s.mu.Unlock()

	s.logger.Infof("registered player %s from %s", name, endpoint.Addr())
	s.sendWelcome(name, endpoint)
	s.broadcastLeaderboard()

	if shouldStart {
		if err := s.StartRound(ctx); err != nil && err != ErrRoundRunning {
			s.logger.Warnf("unable to auto start round: %s", err)
		}
	}
	return nil
}

func (s *Session) sendWelcome(name string, endpoint Endpoint) {
	err := s.Unicast(endpoint, &protocol.Welcome{
		Message: fmt.Sprintf("Welcome %s! Get ready for the quiz!", name),
	})
	if err != nil {
		s.logger.Warnf("error welcoming %s: %s", name, err)
	}
}

// Leave removes a player from the registry. Calling it for a player that has
// already been removed is a no-op.
func (s *Session) Leave(name string) {
	s.mu.Lock()
	if _, ok := s.players[name]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.players, name)
	s.mu.Unlock()

	s.logger.Infof("removed player %s", name)
}

// Players returns a snapshot of the registered players sorted by name.
func (s *Session) Players() []PlayerInfo {
	s.mu.Lock()
	infos := make([]PlayerInfo, 0, len(s.players))
	for _, p := range s.players {
		infos = append(infos, PlayerInfo{
			Name:     p.name,
			Addr:     p.endpoint.Addr(),
			Score:    p.score,
			Reliable: p.endpoint.Reliable(),
		})
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Scores returns a point-in-time copy of the score map.
func (s *Session) Scores() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoresLocked()
}

func (s *Session) scoresLocked() map[string]int {
	scores := make(map[string]int, len(s.players))
	for name, p := range s.players {
		scores[name] = p.score
	}
	return scores
}
