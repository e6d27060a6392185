package game

import (
	"fmt"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
)

// broadcast fans a message out to every registered endpoint. The registry is
// snapshotted up front so no network I/O happens while the session lock is
// held. Send failures never abort the sweep; the affected players are
// deregistered once every endpoint has been attempted.
func (s *Session) broadcast(m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		s.logger.Errorf("error encoding %s broadcast: %s", m.MessageType(), err)
		return
	}

	s.mu.Lock()
	targets := make([]*player, 0, len(s.players))
	for _, p := range s.players {
		targets = append(targets, p)
	}
	s.mu.Unlock()

	var failed []string
	for _, p := range targets {
		if err := p.endpoint.Send(data); err != nil {
			s.logger.Warnf("error sending %s to %s: %s", m.MessageType(), p.endpoint.Addr(), err)
			failed = append(failed, p.name)
		}
	}
	for _, name := range failed {
		s.Leave(name)
	}
}

// Unicast sends a message to a single endpoint. The failure is returned to
// the caller rather than acted on; a broken unicast target will be swept out
// by the next broadcast. The transport frontends use it to deliver admission
// rejections before releasing a connection.
func (s *Session) Unicast(endpoint Endpoint, m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return fmt.Errorf("error encoding %s message: %w", m.MessageType(), err)
	}
	if err := endpoint.Send(data); err != nil {
		return fmt.Errorf("error sending %s to %s: %w", m.MessageType(), endpoint.Addr(), err)
	}
	return nil
}

func (s *Session) broadcastLeaderboard() {
	s.mu.Lock()
	scores := s.scoresLocked()
	s.mu.Unlock()

	s.broadcast(&protocol.Leaderboard{Scores: scores})
}
