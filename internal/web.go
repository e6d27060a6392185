package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
	quizdebug "github.com/Moatez-69/quiznet-tcp-udp/internal/core/debug"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/game"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/protocol"
)

// Outbound messages a WebSocket client may have in flight before the
// server considers it too slow to keep.
const wsSendBuffer = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// webServer exposes the message dialect to browser clients over a
// WebSocket at /ws. Each text frame carries the same newline-delimited
// payloads as the TCP transport, so both feed the same message handler.
type webServer struct {
	Name    string
	Address string
	Config  *core.Config
	Logger  *logrus.Logger
	Session *game.Session

	listener net.Listener
}

func (s *webServer) Identifier() string { return s.Name }

// Start binds the HTTP listener and serves the WebSocket endpoint from its
// own goroutine, added to the WaitGroup. Context cancellation stops the
// server.
func (s *webServer) Start(ctx context.Context, wg *sync.WaitGroup) error {
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("error listening on socket: %s", err.Error())
	}
	s.listener = listener

	clientWg := &sync.WaitGroup{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.serveClient(ctx, clientWg, w, r)
	})
	httpServer := &http.Server{Handler: mux}

	wg.Add(1)
	go s.startBlockingLoop(ctx, listener, httpServer, clientWg, wg)

	return nil
}

func (s *webServer) startBlockingLoop(
	ctx context.Context,
	listener net.Listener,
	httpServer *http.Server,
	clientWg *sync.WaitGroup,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	// Closing the server stops the listener. Upgraded connections are
	// hijacked out of its control and close themselves on cancellation.
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	s.Logger.Printf("[%s] waiting for connections on %v/ws", s.Name, s.Address)

	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if ctx.Err() == nil {
			s.Logger.Warnf("web server closed: %s", err.Error())
		}
	}

	s.Logger.Infof("[%v] shutting down (waiting for connections to close)", s.Name)
	clientWg.Wait()
	s.Logger.Infof("[%v] exited", s.Name)
}

// serveClient upgrades one request and runs its receive loop, mirroring the
// TCP transport's per-connection handling.
func (s *webServer) serveClient(ctx context.Context, clientWg *sync.WaitGroup, w http.ResponseWriter, r *http.Request) {
	clientWg.Add(1)
	defer clientWg.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warnf("failed to upgrade connection from %s: %s", r.RemoteAddr, err.Error())
		return
	}

	addr := conn.RemoteAddr().String()
	s.Logger.Infof("[%s] accepted connection from %s", s.Name, addr)

	endpoint := newWSEndpoint(conn)
	defer endpoint.close()

	// Closing the HTTP server doesn't reach hijacked connections, so each
	// one watches for cancellation itself.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
			endpoint.close()
		case <-connDone:
		}
	}()

	var username string
	defer func() {
		if username != "" {
			s.Session.Leave(username)
		}
		s.Logger.Infof("[%s] disconnected client %s", s.Name, addr)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Logger.Warnf("error reading from client %s: %s", addr, err.Error())
			}
			return
		}

		for _, payload := range protocol.SplitDatagram(data) {
			if s.Config.Debugging.MessageLoggingEnabled {
				quizdebug.PrintMessage(quizdebug.PrintMessageParams{
					Writer:        bufio.NewWriter(os.Stdout),
					ServerName:    s.Name,
					RemoteAddr:    addr,
					ClientMessage: true,
					Data:          payload,
				})
			}

			var closeConnection bool
			username, closeConnection = handleStreamMessage(ctx, s.Session, s.Logger, endpoint, username, payload)
			if closeConnection {
				return
			}
		}
	}
}

// wsEndpoint adapts a WebSocket connection to the game.Endpoint interface.
// gorilla/websocket allows only one concurrent writer, so sends are queued
// to a single writer goroutine instead of taking a lock; a client that
// stops draining its queue fails its next send and gets swept on the next
// broadcast.
type wsEndpoint struct {
	conn *websocket.Conn
	send chan []byte
	dead chan struct{}
	once sync.Once
}

func newWSEndpoint(conn *websocket.Conn) *wsEndpoint {
	e := &wsEndpoint{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
		dead: make(chan struct{}),
	}
	go e.writeLoop()
	return e
}

func (e *wsEndpoint) writeLoop() {
	for {
		select {
		case <-e.dead:
			return
		case data := <-e.send:
			if err := e.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
				e.close()
				return
			}
			if err := e.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				e.close()
				return
			}
		}
	}
}

func (e *wsEndpoint) Send(data []byte) error {
	select {
	case <-e.dead:
		return fmt.Errorf("connection to %s is closed", e.Addr())
	case e.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full for %s", e.Addr())
	}
}

func (e *wsEndpoint) close() {
	e.once.Do(func() {
		close(e.dead)
		e.conn.Close()
	})
}

func (e *wsEndpoint) Addr() string   { return e.conn.RemoteAddr().String() }
func (e *wsEndpoint) Reliable() bool { return true }
