// Package debug contains the optional utilities for inspecting a running
// server: the pprof HTTP endpoint and the message logger shared by the
// frontends and the sniffer.
package debug

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/sirupsen/logrus"
)

// StartUtilities spins off the services associated with debug mode.
func StartUtilities(logger *logrus.Logger, pprofPort int) {
	startPprofServer(logger, pprofPort)
}

// This function starts the default pprof HTTP server that can be accessed via
// localhost to get runtime information about the server.
// See https://golang.org/pkg/net/http/pprof/
func startPprofServer(logger *logrus.Logger, pprofPort int) {
	listenerAddr := fmt.Sprintf("localhost:%d", pprofPort)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

// PrintMessageParams contains the parameters expected by PrintMessage.
type PrintMessageParams struct {
	Writer     *bufio.Writer
	ServerName string
	RemoteAddr string
	// True if the message was sent by a client, false for server messages.
	ClientMessage bool
	Data          []byte
}

// PrintMessage writes a one-line summary of a protocol message for message
// logging. Trailing newlines in the payload are stripped so that one message
// always occupies one log line.
func PrintMessage(params PrintMessageParams) {
	direction := "server->client"
	if params.ClientMessage {
		direction = "client->server"
	}

	fmt.Fprintf(params.Writer, "[%s] %s %s: %s\n",
		params.ServerName, direction, params.RemoteAddr, bytes.TrimSpace(params.Data))
	_ = params.Writer.Flush()
}
