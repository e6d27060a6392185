package game

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/question"
)

// round holds the state of the question currently being played. A new value
// replaces the old one wholesale each time a question opens, which is the
// only point at which the answered set is ever reset.
type round struct {
	question *question.Question
	// 1-based position of the question in the running order.
	ordinal  int
	deadline time.Time
	open     bool
	// Names that have used up their one submission for this question.
	answered map[string]bool
	// Most recent choice per player on unreliable transports, evaluated at
	// the reveal.
	deferred map[string]int
	// Outcomes recorded as answers are accepted.
	results map[string]protocol.PlayerResult
}

// StartRound launches the round worker, which drives the session through
// every question on a wall-clock timer. It fails without side effects if a
// round is already running or finished, nobody has joined, or the question
// bank is empty.
func (s *Session) StartRound(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.over:
		s.mu.Unlock()
		return ErrSessionOver
	case s.started:
		s.mu.Unlock()
		return ErrRoundRunning
	case len(s.players) == 0:
		s.mu.Unlock()
		return ErrNoPlayers
	case len(s.questions) == 0:
		s.mu.Unlock()
		return ErrNoQuestions
	}
	s.started = true
	order := s.runningOrder()
	s.mu.Unlock()

	go s.runRound(ctx, order)
	return nil
}

// runningOrder copies the question bank, shuffling and truncating it per the
// session options. Callers must hold s.mu.
func (s *Session) runningOrder() []question.Question {
	order := make([]question.Question, len(s.questions))
	copy(order, s.questions)

	if s.opts.Shuffle {
		s.rnd.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	if s.opts.QuestionLimit > 0 && len(order) > s.opts.QuestionLimit {
		order = order[:s.opts.QuestionLimit]
	}
	return order
}

// runRound is the round worker. Its sleeps are the only places round
// progression pauses; answers arriving mid-window are handled by the
// connection workers and never shorten the timer. Cancelling ctx makes the
// worker exit at the next phase boundary without further broadcasts.
func (s *Session) runRound(ctx context.Context, order []question.Question) {
	s.logger.Infof("starting round with %d questions", len(order))
	s.broadcast(&protocol.Info{
		Message: fmt.Sprintf("The quiz is starting with %d questions. Good luck!", len(order)),
	})

	if !s.sleep(ctx, s.opts.Intermission) {
		s.abandonRound()
		return
	}

	for i := range order {
		q := order[i]
		s.openQuestion(&q, i+1, len(order))

		if !s.sleep(ctx, s.opts.QuestionTime) {
			s.abandonRound()
			return
		}
		s.finishQuestion(&q)

		if i == len(order)-1 {
			break
		}
		if !s.sleep(ctx, s.opts.Intermission) {
			s.abandonRound()
			return
		}
	}

	s.finishGame()
}

// openQuestion makes q the current question and broadcasts it with a fresh
// answer window.
func (s *Session) openQuestion(q *question.Question, number, total int) {
	s.mu.Lock()
	s.round = round{
		question: q,
		ordinal:  number,
		deadline: time.Now().Add(s.opts.QuestionTime),
		open:     true,
		answered: make(map[string]bool),
		deferred: make(map[string]int),
		results:  make(map[string]protocol.PlayerResult),
	}
	s.mu.Unlock()

	s.logger.Infof("question %d/%d open: %s", number, total, q.Text)
	s.broadcast(&protocol.Question{
		ID:             q.ID,
		Text:           q.Text,
		Options:        q.Options,
		TimeLimit:      int(s.opts.QuestionTime / time.Second),
		QuestionNumber: number,
		TotalQuestions: total,
	})
}

// finishQuestion closes q's answer window, scores the answers that were held
// back for the reveal, and announces the outcome: a timeout if nobody
// answered at all, otherwise the per-player results and updated scores.
func (s *Session) finishQuestion(q *question.Question) {
	s.mu.Lock()
	s.round.open = false

	// Only the most recent submission per player counts on unreliable
	// transports.
	for name, choice := range s.round.deferred {
		p, ok := s.players[name]
		if !ok || s.round.answered[name] {
			continue
		}
		s.round.answered[name] = true
		correct := choice == q.Correct
		if correct {
			p.score += pointsPerCorrectAnswer
		}
		s.round.results[name] = protocol.PlayerResult{Name: name, Choice: choice, Correct: correct}
	}

	nobodyAnswered := len(s.round.answered) == 0
	results := s.revealResultsLocked()
	scores := s.scoresLocked()
	s.mu.Unlock()

	if nobodyAnswered {
		s.logger.Infof("question %d closed with no answers", q.ID)
		s.broadcast(&protocol.Timeout{
			QuestionID:    q.ID,
			Message:       "Time's up!",
			CorrectAnswer: q.Correct,
		})
		return
	}

	s.logger.Infof("question %d closed", q.ID)
	s.broadcast(&protocol.QuestionEnd{
		QuestionID:    q.ID,
		Message:       "Question ended",
		CorrectAnswer: q.Correct,
		Results:       results,
		Scores:        scores,
	})
}

// revealResultsLocked builds the outcome list for the current question
// covering every registered player, in name order. Players that never
// answered are reported with a zero choice. Callers must hold s.mu.
func (s *Session) revealResultsLocked() []protocol.PlayerResult {
	results := make([]protocol.PlayerResult, 0, len(s.players))
	for name := range s.players {
		if r, ok := s.round.results[name]; ok {
			results = append(results, r)
		} else {
			results = append(results, protocol.PlayerResult{Name: name})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// finishGame broadcasts the final standings and retires the session.
func (s *Session) finishGame() {
	s.mu.Lock()
	s.round = round{}
	s.over = true
	scores := s.scoresLocked()
	s.mu.Unlock()

	s.logger.Infof("round complete, final scores: %v", scores)
	s.broadcast(&protocol.GameOver{
		Message:     "Quiz completed!",
		FinalScores: scores,
	})
}

// abandonRound retires the session without announcing results, used when the
// server is shutting down mid-round.
func (s *Session) abandonRound() {
	s.mu.Lock()
	s.round = round{}
	s.over = true
	s.mu.Unlock()

	s.logger.Info("round abandoned before completion")
}

// sleep blocks for d or until ctx is cancelled, reporting whether the full
// duration elapsed.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
