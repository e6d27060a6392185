package internal

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
	quizdebug "github.com/Moatez-69/quiznet-tcp-udp/internal/core/debug"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/game"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
)

// Largest datagram the server will accept. Quiz messages are far smaller;
// anything beyond this is truncated by the kernel and dropped as malformed.
const maxDatagramSize = 8192

// defaultPresenceTTL is used when the config does not set one. Datagram
// players have no connection to hang a disconnect on, so silence for this
// long is treated as having left.
const defaultPresenceTTL = 90 * time.Second

// udpServer implements the datagram transport. There are no connections to
// manage; every datagram is handled on the read loop's goroutine and
// identity rides in each payload.
type udpServer struct {
	Name    string
	Address string
	Config  *core.Config
	Logger  *logrus.Logger
	Session *game.Session

	conn     *net.UDPConn
	presence *game.Presence
}

func (s *udpServer) Identifier() string { return s.Name }

// Start binds the UDP socket and spins off the datagram read loop in its
// own goroutine, added to the WaitGroup. Context cancellation stops the
// server.
func (s *udpServer) Start(ctx context.Context, wg *sync.WaitGroup) error {
	hostAddr, err := net.ResolveUDPAddr("udp", s.Address)
	if err != nil {
		return fmt.Errorf("error resolving address %s", err.Error())
	}

	s.conn, err = net.ListenUDP("udp", hostAddr)
	if err != nil {
		return fmt.Errorf("error listening on socket: %s", err.Error())
	}

	ttl := s.Config.UDPServer.PresenceTTL
	if ttl <= 0 {
		ttl = defaultPresenceTTL
	}
	s.presence = game.NewPresence(ttl, func(name string) {
		s.Logger.Infof("[%s] dropping datagram player %s", s.Name, name)
		s.Session.Leave(name)
	})

	wg.Add(1)
	go s.startBlockingLoop(ctx, wg)

	return nil
}

// startBlockingLoop reads datagrams until the context is cancelled. The
// read blocks with no deadline, so cancellation closes the socket out from
// under it to kick it loose.
func (s *udpServer) startBlockingLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	s.Logger.Printf("[%s] waiting for datagrams on %v", s.Name, s.Address)

	buffer := make([]byte, maxDatagramSize)
	for {
		n, sender, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.Logger.Warnf("failed to read datagram: %s", err.Error())
			continue
		}

		// The read buffer is reused, so hand the handler its own copy.
		data := make([]byte, n)
		copy(data, buffer[:n])

		for _, payload := range protocol.SplitDatagram(data) {
			s.handleDatagram(ctx, payload, sender)
		}
	}

	s.Logger.Infof("[%v] exited", s.Name)
}

// handleDatagram dispatches one decoded payload. Unlike the stream
// transports, identity is taken from the payload on every message and a
// register is answered in place, with nothing to tear down on rejection.
func (s *udpServer) handleDatagram(ctx context.Context, payload []byte, sender *net.UDPAddr) {
	if s.Config.Debugging.MessageLoggingEnabled {
		quizdebug.PrintMessage(quizdebug.PrintMessageParams{
			Writer:        bufio.NewWriter(os.Stdout),
			ServerName:    s.Name,
			RemoteAddr:    sender.String(),
			ClientMessage: true,
			Data:          payload,
		})
	}

	message, err := protocol.Decode(payload)
	if err != nil {
		s.Logger.Warnf("dropping datagram from %s: %s", sender, err)
		return
	}

	switch m := message.(type) {
	case protocol.Join:
		endpoint := &datagramEndpoint{conn: s.conn, addr: sender}
		if err := s.Session.Join(ctx, m.Username, endpoint); err != nil {
			sendRejection(s.Session, s.Logger, endpoint, err)
			return
		}
		s.presence.Touch(m.Username)
	case protocol.Answer:
		if m.Username == "" {
			return
		}
		s.presence.Touch(m.Username)
		s.Session.SubmitAnswer(m.Username, m.QuestionID, m.Choice)
	case protocol.Leave:
		// Forget fires the presence callback, which deregisters the player.
		if m.Username != "" {
			s.presence.Forget(m.Username)
		}
	}
}

// datagramEndpoint addresses one datagram player through the server's
// shared socket. WriteToUDP is safe for concurrent use, so sends need no
// serialization, and a datagram send never blocks on a slow receiver.
type datagramEndpoint struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

func (e *datagramEndpoint) Send(data []byte) error {
	_, err := e.conn.WriteToUDP(data, e.addr)
	return err
}

func (e *datagramEndpoint) Addr() string   { return e.addr.String() }
func (e *datagramEndpoint) Reliable() bool { return false }
