package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Default configuration values (production)
const (
	DefaultListenAddr   = ":8080"
	DefaultSignalingURL = "ws://localhost:8080/ws"
	DefaultMessageRate  = 20
	DefaultMessageBurst = 40
	DefaultEnvFile      = ".env"
)

// DefaultSTUNServers are the public STUN servers peers query. No TURN
// relay is configured by default.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Config holds application configuration
type Config struct {
	// Relay settings
	ListenAddr     string   `toml:"listen_addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MessageRate    float64  `toml:"message_rate"`
	MessageBurst   int      `toml:"message_burst"`

	// SignalingURL is the websocket endpoint peers dial.
	SignalingURL string `toml:"signaling_url"`

	// ICE servers for WebRTC
	STUNServers []string `toml:"stun_servers"`
	TURNServer  string   `toml:"turn_server"`
	TURNUser    string   `toml:"turn_username"`
	TURNPass    string   `toml:"turn_password"`
	ForceRelay  bool     `toml:"force_relay"`

	LogLevel string `toml:"log_level"`
}

// Options for loading config with CLI flag overrides
type Options struct {
	// File is an optional TOML config file. A missing file is an error
	// only when set explicitly.
	File string

	// EnvFile is loaded into the environment before reading it. Variables
	// already set are never overridden.
	EnvFile string

	ListenAddr     string
	AllowedOrigins []string
	SignalingURL   string
	STUNServers    []string
	TURNServer     string
	TURNUser       string
	TURNPass       string
	ForceRelay     bool
	LogLevel       string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:   DefaultListenAddr,
		SignalingURL: DefaultSignalingURL,
		STUNServers:  append([]string(nil), DefaultSTUNServers...),
		MessageRate:  DefaultMessageRate,
		MessageBurst: DefaultMessageBurst,
	}
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (including the .env file)
// 3. TOML config file
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	file := opts.File
	if file == "" {
		file = os.Getenv("CONFIG_FILE")
	}
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyOptions(cfg, opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setList(&cfg.AllowedOrigins, "ALLOWED_ORIGINS")
	setString(&cfg.SignalingURL, "SIGNALING_URL")
	setList(&cfg.STUNServers, "STUN_SERVERS")
	setString(&cfg.TURNServer, "TURN_SERVER")
	setString(&cfg.TURNUser, "TURN_USERNAME")
	setString(&cfg.TURNPass, "TURN_PASSWORD")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if v, ok := os.LookupEnv("FORCE_RELAY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FORCE_RELAY: %w", err)
		}
		cfg.ForceRelay = b
	}
	if v, ok := os.LookupEnv("MESSAGE_RATE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MESSAGE_RATE: %w", err)
		}
		cfg.MessageRate = f
	}
	if v, ok := os.LookupEnv("MESSAGE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MESSAGE_BURST: %w", err)
		}
		cfg.MessageBurst = n
	}
	return nil
}

func applyOptions(cfg *Config, opts Options) {
	if opts.ListenAddr != "" {
		cfg.ListenAddr = opts.ListenAddr
	}
	if len(opts.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = opts.AllowedOrigins
	}
	if opts.SignalingURL != "" {
		cfg.SignalingURL = opts.SignalingURL
	}
	if len(opts.STUNServers) > 0 {
		cfg.STUNServers = opts.STUNServers
	}
	if opts.TURNServer != "" {
		cfg.TURNServer = opts.TURNServer
	}
	if opts.TURNUser != "" {
		cfg.TURNUser = opts.TURNUser
	}
	if opts.TURNPass != "" {
		cfg.TURNPass = opts.TURNPass
	}
	if opts.ForceRelay {
		cfg.ForceRelay = true
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.ForceRelay && c.GetTURNServers() == nil {
		return errors.New("cannot force relay mode without TURN server configured")
	}
	if c.MessageRate < 0 || c.MessageBurst < 0 {
		return errors.New("message rate and burst must not be negative")
	}
	return nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return c.STUNServers
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
