package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ClientConfig struct {
	ServerURL          string        `mapstructure:"server_url"`
	STUN               []string      `mapstructure:"stun"`
	TURN               string        `mapstructure:"turn"`
	TURNUser           string        `mapstructure:"turn_user"`
	TURNPass           string        `mapstructure:"turn_pass"`
	NegotiationTimeout time.Duration `mapstructure:"negotiation_timeout"`
	VoskURL            string        `mapstructure:"vosk_url"`
	IncludeLoopback    bool          `mapstructure:"include_loopback"`
	LogLevel           string        `mapstructure:"log_level"`
}

// RegisterClientFlags adds the client flags to fs. Flag names use dashes;
// BindClientFlags maps them onto the underscore config keys.
func RegisterClientFlags(fs *pflag.FlagSet) {
	fs.String("server-url", "ws://localhost:8080/api/ws/signal", "signaling websocket URL")
	fs.StringSlice("stun", []string{"stun:stun.l.google.com:19302"}, "STUN server URLs")
	fs.String("turn", "", "TURN server URL")
	fs.String("turn-user", "", "TURN username")
	fs.String("turn-pass", "", "TURN password")
	fs.Duration("negotiation-timeout", 30*time.Second, "close sessions that do not connect in time")
	fs.String("vosk-url", "", "Vosk transcription server URL; empty reads captions from stdin")
	fs.Bool("include-loopback", false, "gather loopback ICE candidates")
	fs.String("log-level", "info", "log level")
}

func BindClientFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// LoadClient resolves the client config from bound flags, CAPTIONS_*
// environment variables and an optional config file set on v.
func LoadClient(v *viper.Viper) (*ClientConfig, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read client config: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("config: server_url is required")
	}
	if cfg.NegotiationTimeout <= 0 {
		cfg.NegotiationTimeout = 30 * time.Second
	}
	return &cfg, nil
}
