package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

const testConfigFile = `
hostname: 127.0.0.1
max_connections: 25
log_level: debug

tcp_server:
  enabled: true
  port: 5555

udp_server:
  enabled: true
  port: 5556
  presence_ttl: 90s

game:
  question_time: 15s
  intermission: 3s
  min_players: 2
  auto_start: true

questions:
  source: file
  path: questions.txt

database:
  engine: postgres
  host: localhost
  port: 5432
  name: testdb
  username: testuser
  password: testpassword
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	viper.Reset()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(testConfigFile), 0644); err != nil {
		t.Fatalf("error writing test config: %s", err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeTestConfig(t)

	cfg := LoadConfig(dir)

	if cfg.Hostname != "127.0.0.1" {
		t.Errorf("Hostname = %q, want 127.0.0.1", cfg.Hostname)
	}
	if cfg.MaxConnections != 25 {
		t.Errorf("MaxConnections = %d, want 25", cfg.MaxConnections)
	}
	if !cfg.TCPServer.Enabled || cfg.TCPServer.Port != 5555 {
		t.Errorf("TCPServer = %+v, want enabled on port 5555", cfg.TCPServer)
	}
	if cfg.UDPServer.PresenceTTL != 90*time.Second {
		t.Errorf("UDPServer.PresenceTTL = %v, want 90s", cfg.UDPServer.PresenceTTL)
	}
	if cfg.Game.QuestionTime != 15*time.Second {
		t.Errorf("Game.QuestionTime = %v, want 15s", cfg.Game.QuestionTime)
	}
	if cfg.Game.Intermission != 3*time.Second {
		t.Errorf("Game.Intermission = %v, want 3s", cfg.Game.Intermission)
	}
	if cfg.Game.MinPlayers != 2 || !cfg.Game.AutoStart {
		t.Errorf("Game = %+v, want min_players 2 with auto_start", cfg.Game)
	}
	if cfg.Questions.Source != "file" || cfg.Questions.Path != "questions.txt" {
		t.Errorf("Questions = %+v, want file source questions.txt", cfg.Questions)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeTestConfig(t)

	if err := os.Setenv("QUIZNET_GAME_MIN_PLAYERS", "7"); err != nil {
		t.Fatalf("error setting env var: %s", err)
	}
	defer os.Unsetenv("QUIZNET_GAME_MIN_PLAYERS")

	cfg := LoadConfig(dir)

	if cfg.Game.MinPlayers != 7 {
		t.Errorf("Game.MinPlayers = %d, want env override 7", cfg.Game.MinPlayers)
	}
}

func TestConfig_DatabaseURL(t *testing.T) {
	dir := writeTestConfig(t)

	cfg := LoadConfig(dir)

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode="
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}

func TestConfig_QualifiedPath(t *testing.T) {
	dir := writeTestConfig(t)

	cfg := LoadConfig(dir)

	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("error resolving test dir: %s", err)
	}
	if got := cfg.QualifiedPath("quiznet.db"); got != filepath.Join(abs, "quiznet.db") {
		t.Errorf("QualifiedPath() = %s, want it under %s", got, abs)
	}
	if got := cfg.QualifiedPath("/var/lib/quiznet.db"); got != "/var/lib/quiznet.db" {
		t.Errorf("QualifiedPath() rewrote an absolute path: %s", got)
	}
}
