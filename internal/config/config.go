// Package config loads the immutable startup configuration for the loop
// engine. Shaped like the teacher's flag-parsed Config (one struct, a
// DefaultConfig, a parse entrypoint, a validate step) but built on
// cobra/viper/pflag instead of the standard flag package, matching the CLI
// stack used elsewhere in the example pack.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the immutable snapshot loaded once at startup. Later runtime
// changes (tempo, mute, volume) go through the Clock and ChannelState
// setters, never through re-parsing this struct.
type Config struct {
	// Audio device
	SampleRate  int // device sample rate in Hz
	BlockSizeMs int // callback period size in milliseconds
	Channels    int // output channel count (1 or 2)

	InputMonitor bool // open a capture device and mix it into the output
	RecordInput  bool // capture device feeds the engine's record-arm path

	// Musical defaults, overridden at runtime via Clock setters
	DefaultBPM   float64
	DefaultBars  int
	DefaultBeats int

	MasterVolume   float32
	LimiterEnabled bool

	MetricsListenAddr string

	Verbose bool
}

// DefaultConfig returns a Config with sensible defaults for a desktop
// audio interface.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:        44100,
		BlockSizeMs:        10,
		Channels:          2,
		InputMonitor:      false,
		RecordInput:       false,
		DefaultBPM:        120.0,
		DefaultBars:       4,
		DefaultBeats:      4,
		MasterVolume:      1.0,
		LimiterEnabled:    true,
		MetricsListenAddr: "127.0.0.1:9090",
		Verbose:           false,
	}
}

// ParseFlags builds the cobra root command, binds its flags through viper
// (so LOOPENGINE_-prefixed environment variables also work), and returns
// the resulting Config. args is normally os.Args[1:].
func ParseFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	v.SetEnvPrefix("loopengine")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	var parseErr error
	root := &cobra.Command{
		Use:           "loopengine",
		Short:         "Realtime sample-loop audio engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nil
		},
	}

	flags := root.Flags()
	flags.Int("sample-rate", cfg.SampleRate, "audio device sample rate in Hz")
	flags.Int("block-size-ms", cfg.BlockSizeMs, "callback period size in milliseconds")
	flags.Int("channels", cfg.Channels, "output channel count (1 or 2)")
	flags.Bool("input-monitor", cfg.InputMonitor, "open a capture device and monitor it through the mix")
	flags.Bool("record-input", cfg.RecordInput, "feed the capture device into record-armed channels")
	flags.Float64("default-bpm", cfg.DefaultBPM, "starting tempo in beats per minute")
	flags.Int("default-bars", cfg.DefaultBars, "starting loop length in bars")
	flags.Int("default-beats", cfg.DefaultBeats, "beats per bar")
	flags.Float32("master-volume", cfg.MasterVolume, "master output gain (0.0-1.0+)")
	flags.Bool("limiter", cfg.LimiterEnabled, "enable the master bus limiter")
	flags.String("metrics-listen", cfg.MetricsListenAddr, "address the Prometheus scrape endpoint listens on")
	flags.Bool("verbose", cfg.Verbose, "enable verbose logging")

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	root.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg.SampleRate = v.GetInt("sample-rate")
		cfg.BlockSizeMs = v.GetInt("block-size-ms")
		cfg.Channels = v.GetInt("channels")
		cfg.InputMonitor = v.GetBool("input-monitor")
		cfg.RecordInput = v.GetBool("record-input")
		cfg.DefaultBPM = v.GetFloat64("default-bpm")
		cfg.DefaultBars = v.GetInt("default-bars")
		cfg.DefaultBeats = v.GetInt("default-beats")
		cfg.MasterVolume = float32(v.GetFloat64("master-volume"))
		cfg.LimiterEnabled = v.GetBool("limiter")
		cfg.MetricsListenAddr = v.GetString("metrics-listen")
		cfg.Verbose = v.GetBool("verbose")
		return cfg.validate()
	}

	if args == nil {
		// cobra falls back to os.Args[1:] when given nil args.
		args = []string{}
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample-rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Channels)
	}
	if c.BlockSizeMs <= 0 {
		return fmt.Errorf("block-size-ms must be positive, got %d", c.BlockSizeMs)
	}
	if c.DefaultBPM <= 0 {
		return fmt.Errorf("default-bpm must be positive, got %f", c.DefaultBPM)
	}
	if c.DefaultBars <= 0 || c.DefaultBeats <= 0 {
		return fmt.Errorf("default-bars and default-beats must be positive")
	}
	return nil
}
