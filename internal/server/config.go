package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-engine/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	Port           int    `hcl:"port,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	HandHistoryDir string `hcl:"hand_history_dir,optional"`
	SQLitePath     string `hcl:"sqlite_path,optional"`
	PostgresDSN    string `hcl:"postgres_dsn,optional"`
	FlushInterval  string `hcl:"flush_interval,optional"`
}

// TableConfig defines a poker table
type TableConfig struct {
	Name          string `hcl:"name,label"`
	Seats         int    `hcl:"seats,optional"`
	SmallBlind    int    `hcl:"small_blind"`
	BigBlind      int    `hcl:"big_blind"`
	BuyInMin      int    `hcl:"buy_in_min,optional"`
	BuyInMax      int    `hcl:"buy_in_max,optional"`
	RunItTwice    bool   `hcl:"run_it_twice,optional"`
	ActionTimeout string `hcl:"action_timeout,optional"`
	VoteTimeout   string `hcl:"vote_timeout,optional"`
	NextHandDelay string `hcl:"next_hand_delay,optional"`
}

// TableTimers are the parsed durations of a table block.
type TableTimers struct {
	Action   time.Duration
	Vote     time.Duration
	NextHand time.Duration
}

const (
	defaultActionTimeout = "30s"
	defaultVoteTimeout   = "10s"
	defaultNextHandDelay = "2s"
)

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Tables: []TableConfig{{Name: "main", SmallBlind: 1, BigBlind: 2}},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig loads configuration from an HCL file. A missing file
// yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseServerConfig(src, filename)
}

// ParseServerConfig decodes HCL source and applies defaults.
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.HandHistoryDir == "" {
		c.Server.HandHistoryDir = "hands"
	}
	if c.Server.FlushInterval == "" {
		c.Server.FlushInterval = "10s"
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Seats == 0 {
			t.Seats = 6
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50 // 50 big blinds minimum
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500
		}
		if t.ActionTimeout == "" {
			t.ActionTimeout = defaultActionTimeout
		}
		if t.VoteTimeout == "" {
			t.VoteTimeout = defaultVoteTimeout
		}
		if t.NextHandDelay == "" {
			t.NextHandDelay = defaultNextHandDelay
		}
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.FlushInterval(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("invalid log_level %q", c.Server.LogLevel)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, table := range c.Tables {
		if seen[table.Name] {
			return fmt.Errorf("table %s: defined twice", table.Name)
		}
		seen[table.Name] = true
		if err := table.Game().Validate(); err != nil {
			return err
		}
		if _, err := table.Timers(); err != nil {
			return err
		}
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// FlushInterval parses the hand history flush interval.
func (c *ServerConfig) FlushInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.FlushInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid flush_interval %q", c.Server.FlushInterval)
	}
	return d, nil
}

// LogLevel maps the configured level name to a log level.
func (c *ServerConfig) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Server.LogLevel)
}

// Game converts the block to the engine's table configuration.
func (t TableConfig) Game() game.TableConfig {
	return game.TableConfig{
		ID:         t.Name,
		Name:       t.Name,
		Seats:      t.Seats,
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		MinBuyIn:   t.BuyInMin,
		MaxBuyIn:   t.BuyInMax,
		RunItTwice: t.RunItTwice,
	}
}

// Timers parses the table's durations.
func (t TableConfig) Timers() (TableTimers, error) {
	var timers TableTimers
	var err error
	parse := func(field, v string) time.Duration {
		if err != nil {
			return 0
		}
		d, perr := time.ParseDuration(v)
		if perr != nil || d <= 0 {
			err = fmt.Errorf("table %s: invalid %s %q", t.Name, field, v)
		}
		return d
	}
	timers.Action = parse("action_timeout", t.ActionTimeout)
	timers.Vote = parse("vote_timeout", t.VoteTimeout)
	timers.NextHand = parse("next_hand_delay", t.NextHandDelay)
	return timers, err
}
