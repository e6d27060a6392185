// The server command is the main entrypoint for running the quiz server.
// It takes care of initializing everything as well as running whichever
// transport servers the configuration enables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Moatez-69/quiznet-tcp-udp/internal"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
)

var configFlag = flag.String("config", "./", "Path to the directory containing the server config file")

func main() {
	flag.Parse()

	config := core.LoadConfig(*configFlag)
	fmt.Println("using configuration from:", *configFlag)

	// Bind the Controller to one top-level server context so that we can
	// shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())

	// Register a SIGTERM handler so that Ctrl-C will shut the servers down
	// gracefully.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go exitHandler(cancel, signals)

	// Start up the controller to handle all of the resources and server init.
	controller := &internal.Controller{
		Config: config,
		Cancel: cancel,
	}
	controller.Start(ctx)

	fmt.Println("shut down")
}

func exitHandler(cancel context.CancelFunc, signals chan os.Signal) {
	<-signals
	fmt.Println("waiting to shut down gracefully...")
	cancel()

	// A second signal skips the graceful wait.
	<-signals
	fmt.Println("hard exiting (killed)")
	os.Exit(1)
}
