package game

import (
	"fmt"
	"time"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/question"
)

// SubmitAnswer records one player's answer to the currently open question.
//
// Submissions are dropped without a reply when there is no open question,
// the question id is stale, the player is unknown, or the player has already
// used up their submission. An out-of-range choice earns the submitter an
// error message but leaves their submission unspent.
//
// Players on reliable transports are scored on the spot: their first answer
// locks them out for the question, a correct one is worth a fixed award and
// announced to everybody, and a wrong one is reported to the submitter
// alone. Players on unreliable transports may resubmit until the deadline;
// only their most recent choice counts, applied when the window closes.
func (s *Session) SubmitAnswer(name string, questionID, choice int) {
	s.mu.Lock()
	p, ok := s.players[name]
	if !ok || !s.round.open || s.round.question == nil ||
		s.round.question.ID != questionID || time.Now().After(s.round.deadline) {
		s.mu.Unlock()
		return
	}
	if s.round.answered[name] {
		s.mu.Unlock()
		return
	}

	q := s.round.question
	endpoint := p.endpoint

	if choice < 1 || choice > question.OptionCount {
		s.mu.Unlock()
		s.logger.Debugf("rejected out of range answer %d from %s", choice, name)
		err := s.Unicast(endpoint, &protocol.Error{
			Message: fmt.Sprintf("Answer must be between 1 and %d", question.OptionCount),
		})
		if err != nil {
			s.logger.Warnf("%s", err)
		}
		return
	}

	if !endpoint.Reliable() {
		s.round.deferred[name] = choice
		s.mu.Unlock()
		s.logger.Debugf("holding answer %d from %s for question %d", choice, name, questionID)
		return
	}

	correct := choice == q.Correct
	s.round.answered[name] = true
	if correct {
		p.score += pointsPerCorrectAnswer
	}
	s.round.results[name] = protocol.PlayerResult{Name: name, Choice: choice, Correct: correct}
	s.mu.Unlock()

	if !correct {
		s.logger.Infof("%s answered question %d incorrectly", name, q.ID)
		err := s.Unicast(endpoint, &protocol.WrongAnswer{
			QuestionID: q.ID,
			Message:    "Wrong answer!",
		})
		if err != nil {
			s.logger.Warnf("%s", err)
		}
		return
	}

	s.logger.Infof("%s answered question %d correctly", name, q.ID)
	s.broadcast(&protocol.Result{
		QuestionID:    q.ID,
		Message:       fmt.Sprintf("%s answered correctly! +%d points", name, pointsPerCorrectAnswer),
		CorrectAnswer: q.Correct,
		FirstCorrect:  name,
	})
	s.broadcastLeaderboard()
}
