package internal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/console"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
	quizdebug "github.com/Moatez-69/quiznet-tcp-udp/internal/core/debug"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/game"
	"github.com/Moatez-69/quiznet-tcp-udp/internal/question"
)

// Controller is the main entrypoint for the quiz server. It's responsible
// for initializing any shared resources (such as the question bank and
// logging), defining the enabled transport servers, and launching
// everything.
type Controller struct {
	Config *core.Config
	// Cancel stops every server; the operator console calls it on quit.
	Cancel context.CancelFunc

	logger  *logrus.Logger
	wg      sync.WaitGroup
	session *game.Session
	servers []server
}

func (c *Controller) Start(ctx context.Context) {
	var err error
	// Set up the logger, which will be used by all sub-servers.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger: %v\n", err)
		return
	}

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.PprofEnabled {
		quizdebug.StartUtilities(c.logger, c.Config.Debugging.PprofPort)
	}

	questions, err := c.loadQuestions()
	if err != nil {
		c.logger.Errorf("error loading question bank: %v", err)
		return
	}
	if len(questions) == 0 {
		c.logger.Warnf("question bank is empty; rounds cannot start until questions are added")
	}

	c.session = game.NewSession(c.logger, questions, game.Options{
		QuestionTime:  c.Config.Game.QuestionTime,
		Intermission:  c.Config.Game.Intermission,
		MinPlayers:    c.Config.Game.MinPlayers,
		AutoStart:     c.Config.Game.AutoStart,
		Shuffle:       c.Config.Game.Shuffle,
		QuestionLimit: c.Config.Game.QuestionLimit,
	})

	// Configure and run all of our servers.
	c.declareServers()
	c.run(ctx)
}

// loadQuestions reads the question bank from whichever source the config
// names. The bank is loaded once at startup; the round state machine never
// touches the source again.
func (c *Controller) loadQuestions() ([]question.Question, error) {
	switch c.Config.Questions.Source {
	case "", "file":
		path := c.Config.QualifiedPath(c.Config.Questions.Path)
		questions, skipped, err := question.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			c.logger.Warnf("skipped %d malformed entries in %s", skipped, path)
		}
		c.logger.Infof("loaded %d questions from %s", len(questions), path)
		return questions, nil
	case "database":
		db, err := question.Open(c.Config)
		if err != nil {
			return nil, err
		}
		questions, err := question.AllQuestions(db)
		if closeErr := question.Close(db); closeErr != nil {
			c.logger.Warnf("error closing question database: %v", closeErr)
		}
		if err != nil {
			return nil, err
		}
		c.logger.Infof("loaded %d questions from the database", len(questions))
		return questions, nil
	}

	return nil, fmt.Errorf("unknown question source: %q", c.Config.Questions.Source)
}

// Set up all of the servers we want to run.
func (c *Controller) declareServers() {
	if c.Config.TCPServer.Enabled {
		c.servers = append(c.servers, &tcpServer{
			Name:    "TCP",
			Address: c.buildAddress(c.Config.TCPServer.Port),
			Config:  c.Config,
			Logger:  c.logger,
			Session: c.session,
		})
	}

	if c.Config.UDPServer.Enabled {
		c.servers = append(c.servers, &udpServer{
			Name:    "UDP",
			Address: c.buildAddress(c.Config.UDPServer.Port),
			Config:  c.Config,
			Logger:  c.logger,
			Session: c.session,
		})
	}

	if c.Config.WebServer.Enabled {
		c.servers = append(c.servers, &webServer{
			Name:    "WEB",
			Address: c.buildAddress(c.Config.WebServer.Port),
			Config:  c.Config,
			Logger:  c.logger,
			Session: c.session,
		})
	}

	// The operator console always runs, even with every transport disabled.
	c.servers = append(c.servers, &console.Console{
		Session: c.session,
		Logger:  c.logger,
		In:      os.Stdin,
		Out:     os.Stdout,
		Quit:    c.Cancel,
	})
}

func (c *Controller) run(ctx context.Context) {
	// Start all of our servers. Failure to initialize one of the registered
	// servers is considered terminal.
	for _, server := range c.servers {
		if err := server.Start(ctx, &c.wg); err != nil {
			c.logger.Errorf("error starting %s server: %v", server.Identifier(), err)
			c.Cancel()
			break
		}
	}

	c.wg.Wait()
}

func (c *Controller) buildAddress(port int) string {
	return fmt.Sprintf("%s:%v", c.Config.Hostname, port)
}
