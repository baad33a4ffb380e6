package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cellmap/pkg/cache"
	"github.com/matzehuels/cellmap/pkg/pipeline"
	"github.com/matzehuels/cellmap/pkg/store"
)

// configFileName is the file looked up in the config directory.
const configFileName = "config.toml"

// =============================================================================
// Config File
// =============================================================================

// Config is the optional TOML configuration file. Zero values are unset:
// they leave the pipeline defaults in place. Flags given on the command line
// always win over the file.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
}

// LayoutConfig mirrors the layout flags.
type LayoutConfig struct {
	Width            float64           `toml:"width,omitempty"`
	Height           float64           `toml:"height,omitempty"`
	Shape            string            `toml:"shape,omitempty"`
	Seed             uint64            `toml:"seed,omitempty"`
	ConvergenceRatio float64           `toml:"convergence_ratio,omitempty"`
	MaxIterations    int               `toml:"max_iterations,omitempty"`
	MinWeightRatio   float64           `toml:"min_weight_ratio,omitempty"`
	Workers          int               `toml:"workers,omitempty"`
	Hints            string            `toml:"hints,omitempty"`
	Colors           []string          `toml:"colors,omitempty"`
	ColorOverrides   map[string]string `toml:"color_overrides,omitempty"`
	HideRegions      bool              `toml:"hide_regions,omitempty"`
	ShowPercent      bool              `toml:"show_percent,omitempty"`
	UnderLabel       bool              `toml:"under_label,omitempty"`
	PebbleRound      float64           `toml:"pebble_round,omitempty"`
	PebbleWidth      float64           `toml:"pebble_width,omitempty"`
}

// RenderConfig mirrors the render flags.
type RenderConfig struct {
	Type    string   `toml:"type,omitempty"`
	Formats []string `toml:"formats,omitempty"`
	Margin  float64  `toml:"margin,omitempty"`
	Scale   float64  `toml:"scale,omitempty"`
}

// ServerConfig configures the serve command. Without a Redis URL or address
// the server caches in memory. Layouts go to Mongo when a URI is set, else to
// StoreDir when set, else to memory.
type ServerConfig struct {
	Addr     string            `toml:"addr,omitempty"`
	StoreDir string            `toml:"store_dir,omitempty"`
	Redis    cache.RedisConfig `toml:"redis"`
	Mongo    store.MongoConfig `toml:"mongo"`
}

// DefaultConfig returns a config holding the pipeline defaults.
func DefaultConfig() Config {
	var opts pipeline.Options
	opts.SetLayoutDefaults()
	opts.SetRenderDefaults()
	return Config{
		Layout: LayoutConfig{
			Width:            opts.Width,
			Height:           opts.Height,
			Shape:            opts.Shape,
			Seed:             opts.Seed,
			ConvergenceRatio: opts.ConvergenceRatio,
			MaxIterations:    opts.MaxIterations,
			MinWeightRatio:   opts.MinWeightRatio,
			PebbleRound:      opts.PebbleRound,
			PebbleWidth:      opts.PebbleWidth,
		},
		Render: RenderConfig{
			Type:    opts.VizType,
			Formats: opts.Formats,
			Scale:   opts.Scale,
		},
		Server: ServerConfig{
			Addr: defaultAddr,
		},
	}
}

// defaultConfigPath returns $XDG_CONFIG_HOME/cellmap/config.toml.
func defaultConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// loadConfigFile decodes the TOML file at path. A missing file at the
// default location is an empty config; a missing explicit file is an error.
func loadConfigFile(path string, explicit bool) (Config, []string, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Config{}, nil, nil
		}
		return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return cfg, unknown, nil
}

// encodeConfig renders cfg as TOML.
func encodeConfig(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// loadConfig returns the CLI's config, reading it on first use.
func (c *CLI) loadConfig() (Config, error) {
	if c.config != nil {
		return *c.config, nil
	}
	path, explicit := c.ConfigPath, c.ConfigPath != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			c.config = &Config{}
			return *c.config, nil
		}
		path = p
	}
	cfg, unknown, err := loadConfigFile(path, explicit)
	if err != nil {
		return Config{}, err
	}
	if len(unknown) > 0 {
		c.Logger.Warn("ignoring unknown config keys", "file", path, "keys", strings.Join(unknown, ", "))
	}
	c.config = &cfg
	return cfg, nil
}

// =============================================================================
// Applying Config
// =============================================================================

// applyConfig copies config values into opts for every flag of cmd that was
// not given on the command line.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *pipeline.Options) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	applyConfigTo(cmd, cfg, opts)
	return nil
}

func applyConfigTo(cmd *cobra.Command, cfg Config, opts *pipeline.Options) {
	unset := func(flag string) bool { return !cmd.Flags().Changed(flag) }

	l := cfg.Layout
	if l.Width > 0 && unset("width") {
		opts.Width = l.Width
	}
	if l.Height > 0 && unset("height") {
		opts.Height = l.Height
	}
	if l.Shape != "" && unset("shape") {
		opts.Shape = l.Shape
	}
	if l.Seed != 0 && unset("seed") {
		opts.Seed = l.Seed
	}
	if l.ConvergenceRatio > 0 && unset("convergence-ratio") {
		opts.ConvergenceRatio = l.ConvergenceRatio
	}
	if l.MaxIterations > 0 && unset("max-iterations") {
		opts.MaxIterations = l.MaxIterations
	}
	if l.MinWeightRatio > 0 && unset("min-weight-ratio") {
		opts.MinWeightRatio = l.MinWeightRatio
	}
	if l.Workers > 0 && unset("workers") {
		opts.Workers = l.Workers
	}
	if l.Hints != "" && unset("hints") {
		opts.HintsFile = l.Hints
	}
	if len(l.Colors) > 0 && unset("colors") {
		opts.Colors = l.Colors
	}
	if len(l.ColorOverrides) > 0 {
		merged := make(map[string]string, len(l.ColorOverrides)+len(opts.ColorOverrides))
		for k, v := range l.ColorOverrides {
			merged[k] = v
		}
		for k, v := range opts.ColorOverrides {
			merged[k] = v
		}
		opts.ColorOverrides = merged
	}
	if l.HideRegions && unset("hide-regions") {
		opts.HideRegions = true
	}
	if l.ShowPercent && unset("percent") {
		opts.ShowPercent = true
	}
	if l.UnderLabel && unset("under-label") {
		opts.UnderLabel = true
	}
	if l.PebbleRound > 0 && unset("pebble-round") {
		opts.PebbleRound = l.PebbleRound
	}
	if l.PebbleWidth > 0 && unset("pebble-width") {
		opts.PebbleWidth = l.PebbleWidth
	}

	r := cfg.Render
	if r.Type != "" && unset("type") {
		opts.VizType = r.Type
	}
	if len(r.Formats) > 0 && unset("format") {
		opts.Formats = r.Formats
	}
	if r.Margin > 0 && unset("margin") {
		opts.Margin = r.Margin
	}
	if r.Scale > 0 && unset("scale") {
		opts.Scale = r.Scale
	}
}

// =============================================================================
// Config Command
// =============================================================================

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configInitCommand())

	return cmd
}

func (c *CLI) configFilePath() (string, error) {
	if c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	return defaultConfigPath()
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFilePath()
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the loaded configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			data, err := encodeConfig(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// configInitCommand creates the "config init" subcommand.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.configFilePath()
			if err != nil {
				return fmt.Errorf("get config path: %w", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			data, err := encodeConfig(DefaultConfig())
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			printSuccess("Config written")
			printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
