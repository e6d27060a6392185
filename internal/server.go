package internal

import (
	"context"
	"sync"
)

// server is the contract between the Controller and everything it runs: one
// listener per enabled transport plus the operator console.
type server interface {
	// Identifier returns a uniquely identifying string, used as the log prefix.
	Identifier() string

	// Start spins off the server's blocking loop in its own goroutine, adding
	// it to wg. Context cancellation stops the server; Start itself must only
	// fail for startup problems such as an unbindable port.
	Start(ctx context.Context, wg *sync.WaitGroup) error
}
