package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
	quizdebug "github.com/Moatez-69/quiznet-tcp-udp/internal/core/debug"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/game"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
)

// How long a single send to a stream client may take before the peer is
// considered stuck.
const sendTimeout = 5 * time.Second

// Number of clients currently connected across the stream servers.
var connectedClients int32

// tcpServer implements the concurrent client connection logic for the
// line-delimited TCP transport.
//
// Each accepted connection gets its own goroutine that owns the connection's
// framing buffer, decodes messages, and dispatches them onto the shared
// Session.
type tcpServer struct {
	Name    string
	Address string
	Config  *core.Config
	Logger  *logrus.Logger
	Session *game.Session
}

func (s *tcpServer) Identifier() string { return s.Name }

// Start opens the TCP socket for the server and spins off a blocking loop
// for accepting client connections in its own goroutine, added to the
// WaitGroup. Context cancellation stops the server.
func (s *tcpServer) Start(ctx context.Context, wg *sync.WaitGroup) error {
	socket, err := s.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", s.Address, err)
	}

	wg.Add(1)
	go s.startBlockingLoop(ctx, socket, wg)

	return nil
}

// createSocket opens a TCP socket to listen for client connections on the
// Address provided to the server.
func (s *tcpServer) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", s.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s", err.Error())
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely
// responsible for accepting new connections and spinning off goroutines to
// handle them.
func (s *tcpServer) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()
	defer socket.Close()

	s.Logger.Printf("[%s] waiting for connections on %v", s.Name, s.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			if s.Config.MaxConnections > 0 {
				for int(atomic.LoadInt32(&connectedClients)) >= s.Config.MaxConnections {
					time.Sleep(10 * time.Second)
				}
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			go s.handleClient(ctx, connection, clientWg)
		}
	}

	s.Logger.Infof("[%v] shutting down (waiting for connections to close)", s.Name)
	clientWg.Wait()
	s.Logger.Infof("[%v] exited", s.Name)
}

// handleClient runs the receive loop for one connection, which is the only
// place that owns that connection's framing buffer. It returns once the
// connection has closed, deregistering whatever player was bound to it.
func (s *tcpServer) handleClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	addr := connection.RemoteAddr().String()
	atomic.AddInt32(&connectedClients, 1)
	defer atomic.AddInt32(&connectedClients, -1)
	defer s.closeConnectionAndRecover(connection, addr)

	s.Logger.Infof("[%s] accepted connection from %s", s.Name, addr)

	// A cancellation only takes effect once the blocking read returns, so
	// kick blocked reads loose by expiring the read deadline.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = connection.SetReadDeadline(time.Now())
		case <-connDone:
		}
	}()

	endpoint := &streamEndpoint{conn: connection}
	framer := protocol.NewStreamFramer(connection)
	var username string
	defer func() {
		if username != "" {
			s.Session.Leave(username)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := framer.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			if ctx.Err() == nil {
				s.Logger.Warnf("error reading from client %s: %s", addr, err.Error())
			}
			break
		}

		if s.Config.Debugging.MessageLoggingEnabled {
			quizdebug.PrintMessage(quizdebug.PrintMessageParams{
				Writer:        bufio.NewWriter(os.Stdout),
				ServerName:    s.Name,
				RemoteAddr:    addr,
				ClientMessage: true,
				Data:          line,
			})
		}

		var closeConnection bool
		username, closeConnection = handleStreamMessage(ctx, s.Session, s.Logger, endpoint, username, line)
		if closeConnection {
			return
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics and
// disconnects the client regardless of the state of the connection.
func (s *tcpServer) closeConnectionAndRecover(connection net.Conn, addr string) {
	if err := recover(); err != nil {
		s.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			addr, err, debug.Stack())
	}

	if err := connection.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.Logger.Warnf("failed to close client connection: %s", err)
	}

	s.Logger.Infof("[%s] disconnected client %s", s.Name, addr)
}

// handleStreamMessage dispatches one decoded message from a stream-oriented
// client (TCP or WebSocket). The username bound to the connection is
// threaded through and returned, since a connection only gains its identity
// with a successful join. The second return value tells the caller to close
// the connection.
func handleStreamMessage(
	ctx context.Context,
	session *game.Session,
	logger *logrus.Logger,
	endpoint game.Endpoint,
	username string,
	line []byte,
) (string, bool) {
	message, err := protocol.Decode(line)
	if err != nil {
		logger.Warnf("dropping message from %s: %s", endpoint.Addr(), err)
		return username, false
	}

	switch m := message.(type) {
	case protocol.Join:
		if username != "" {
			logger.Warnf("ignoring second join from %s (already %s)", endpoint.Addr(), username)
			return username, false
		}
		if err := session.Join(ctx, m.Username, endpoint); err != nil {
			sendRejection(session, logger, endpoint, err)
			return username, true
		}
		return m.Username, false
	case protocol.Answer:
		// The connection's identity wins over whatever name the payload
		// claims.
		if username == "" {
			return username, false
		}
		session.SubmitAnswer(username, m.QuestionID, m.Choice)
	case protocol.Leave:
		if username != "" {
			session.Leave(username)
		}
		return "", true
	}

	return username, false
}

// sendRejection reports an admission failure to the peer before the caller
// releases the connection.
func sendRejection(session *game.Session, logger *logrus.Logger, endpoint game.Endpoint, err error) {
	sendErr := session.Unicast(endpoint, &protocol.Error{
		Message: cases.Title(language.English).String(err.Error()),
	})
	if sendErr != nil {
		logger.Warnf("%s", sendErr)
	}
}

// streamEndpoint adapts a TCP connection to the game.Endpoint interface.
// Sends are serialized and each carries a write deadline so one stalled
// client cannot hold up a broadcast sweep.
type streamEndpoint struct {
	mu   sync.Mutex
	conn net.Conn
}

func (e *streamEndpoint) Send(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		return err
	}
	_, err := e.conn.Write(data)
	return err
}

func (e *streamEndpoint) Addr() string   { return e.conn.RemoteAddr().String() }
func (e *streamEndpoint) Reliable() bool { return true }
