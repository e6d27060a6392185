package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of the
// quiz server components.
type Config struct {
	// Hostname or IP address on which the servers will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Maximum number of concurrent stream connections the server will allow.
	MaxConnections int `mapstructure:"max_connections"`
	// Full path to file to which logs will be written. Blank will write to stdout.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	TCPServer struct {
		Enabled bool `mapstructure:"enabled"`
		// Port on which the line-delimited TCP server will listen.
		Port int `mapstructure:"port"`
	} `mapstructure:"tcp_server"`

	UDPServer struct {
		Enabled bool `mapstructure:"enabled"`
		// Port on which the datagram server will listen.
		Port int `mapstructure:"port"`
		// How long a datagram player may stay silent before being dropped.
		PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	} `mapstructure:"udp_server"`

	WebServer struct {
		Enabled bool `mapstructure:"enabled"`
		// Port for the WebSocket endpoint used by browser clients.
		Port int `mapstructure:"port"`
	} `mapstructure:"web_server"`

	Game struct {
		// How long each question stays open for answers.
		QuestionTime time.Duration `mapstructure:"question_time"`
		// Pause between a reveal and the next question.
		Intermission time.Duration `mapstructure:"intermission"`
		// Number of registered players that triggers an automatic start.
		MinPlayers int `mapstructure:"min_players"`
		// Start the round automatically once min_players have joined.
		AutoStart bool `mapstructure:"auto_start"`
		// Serve the questions in random order.
		Shuffle bool `mapstructure:"shuffle"`
		// Cap on questions per round; 0 plays the whole bank.
		QuestionLimit int `mapstructure:"question_limit"`
	} `mapstructure:"game"`

	Questions struct {
		// Where questions come from: "file" or "database".
		Source string `mapstructure:"source"`
		// Path to the question file for the file source. Colon- and
		// pipe-delimited banks and .json banks are all accepted.
		Path string `mapstructure:"path"`
	} `mapstructure:"questions"`

	Database struct {
		// Which database engine holds the question bank: "sqlite" or "postgres".
		Engine string `mapstructure:"engine"`
		// Path of the SQLite file, relative to the config directory.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database for the question bank.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Debugging struct {
		// Enable the pprof HTTP server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which the pprof server will be started.
		PprofPort int `mapstructure:"pprof_port"`
		// Log decoded inbound and outbound messages.
		MessageLoggingEnabled bool `mapstructure:"message_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`

	baseDir string
}

const envVarPrefix = "QUIZNET"

// LoadConfig initializes Viper with the contents of the config file under
// configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			fmt.Printf("error reading config file: no config file in path %s\n", configPath)
		} else {
			fmt.Printf("error reading config file: %v\n", err)
		}
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, game.min_players can be set using:
	// <envVarPrefix>_GAME_MIN_PLAYERS
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s\n", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v\n", err)
		os.Exit(1)
	}

	if abs, err := filepath.Abs(configPath); err == nil {
		config.baseDir = abs
	} else {
		config.baseDir = configPath
	}
	return config
}

// QualifiedPath returns path resolved relative to the directory containing
// the loaded config file, leaving absolute paths untouched.
func (c *Config) QualifiedPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a Postgres connection string generated from the
// provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}
