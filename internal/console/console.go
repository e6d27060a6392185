// The console package implements the operator command loop that runs
// alongside the transport servers, reading commands from stdin.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/game"
)

// Console drives the session from operator input. It satisfies the same
// server contract as the transports so the controller can launch it
// alongside them.
type Console struct {
	Session *game.Session
	Logger  *logrus.Logger
	In      io.Reader
	Out     io.Writer
	// Quit shuts down the whole process; wired to the root context's cancel.
	Quit context.CancelFunc
}

func (c *Console) Identifier() string { return "CONSOLE" }

// Start spins off the command loop in its own goroutine, added to the
// WaitGroup. Context cancellation stops the loop.
func (c *Console) Start(ctx context.Context, wg *sync.WaitGroup) error {
	wg.Add(1)
	go c.commandLoop(ctx, wg)
	return nil
}

func (c *Console) commandLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	fmt.Fprintln(c.Out, `quiz console ready; type "help" for commands`)

	// The blocking reads live on their own goroutine so the loop can notice
	// cancellation. Stdin can't be unblocked by closing, so after
	// cancellation one final line may be read and discarded.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				// Input is gone (stdin closed or not a terminal). The
				// transports keep running; just idle until shutdown.
				<-ctx.Done()
				return
			}
			c.execute(ctx, line)
		}
	}
}

func (c *Console) execute(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "start":
		if err := c.Session.StartRound(ctx); err != nil {
			fmt.Fprintf(c.Out, "cannot start round: %v\n", err)
			return
		}
		fmt.Fprintln(c.Out, "round started")
	case "players":
		c.printPlayers()
	case "scores":
		c.printScores()
	case "dump":
		spew.Fdump(c.Out, c.Session.Players())
	case "help":
		c.printHelp()
	case "quit", "exit":
		fmt.Fprintln(c.Out, "shutting down")
		c.Quit()
	default:
		fmt.Fprintf(c.Out, "unknown command %q; type \"help\" for commands\n", fields[0])
	}
}

func (c *Console) printPlayers() {
	players := c.Session.Players()
	if len(players) == 0 {
		fmt.Fprintln(c.Out, "no players connected")
		return
	}

	fmt.Fprintf(c.Out, "%d player(s) connected\n", len(players))
	for _, p := range players {
		transport := "datagram"
		if p.Reliable {
			transport = "stream"
		}
		fmt.Fprintf(c.Out, "  %-20s %-24s %s\n", p.Name, p.Addr, transport)
	}
}

func (c *Console) printScores() {
	scores := c.Session.Scores()
	if len(scores) == 0 {
		fmt.Fprintln(c.Out, "no scores yet")
		return
	}

	type entry struct {
		name  string
		score int
	}
	ranked := make([]entry, 0, len(scores))
	for name, score := range scores {
		ranked = append(ranked, entry{name, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})

	for i, e := range ranked {
		fmt.Fprintf(c.Out, "  %d. %-20s %d\n", i+1, e.name, e.score)
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.Out, `commands:
  start    begin the round with the current players
  players  list connected players
  scores   show the leaderboard
  dump     dump the player registry
  quit     shut down the server
`)
}
