// config loads the viewer's settings from a yaml file of the form:
//
//	kind: lifeview
//	def:
//	  remote:
//	    baseUrl: http://localhost:3000/api
//	  ...
//
// Keys are case-insensitive. Anything left out keeps its default.
package config

import (
	"errors"
	"fmt"
	stdcolor "image/color"
	"net"
	"strconv"
	"time"

	"lifeview/render"
	"lifeview/viewport"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the only accepted envelope kind. An empty kind is accepted too.
const Kind = "lifeview"

var ErrInvalidConfig = errors.New("invalid config")

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config is the inner definition. Tags are lowercase since viper folds key case.
type Config struct {
	Remote  RemoteConfig  `yaml:"remote"`
	Sync    SyncConfig    `yaml:"sync"`
	View    ViewConfig    `yaml:"view"`
	Server  ServerConfig  `yaml:"server"`
	Palette PaletteConfig `yaml:"palette"`

	// Derived by Validate.
	remoteTimeout   time.Duration
	syncInterval    time.Duration
	publishInterval time.Duration
	palette         render.Palette
}

type RemoteConfig struct {
	BaseURL string `yaml:"baseurl"`
	Timeout string `yaml:"timeout"`
}

type SyncConfig struct {
	Interval string `yaml:"interval"`
}

type ViewConfig struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Scale   float64 `yaml:"scale"`
	OffsetX float64 `yaml:"offsetx"`
	OffsetY float64 `yaml:"offsety"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	PublishInterval string `yaml:"publishinterval"`
}

// PaletteConfig colors are #rrggbb.
type PaletteConfig struct {
	Background string `yaml:"background"`
	Grid       string `yaml:"grid"`
	Cell       string `yaml:"cell"`
}

// Default returns the built-in settings, already validated.
func Default() *Config {
	cfg := &Config{
		Remote: RemoteConfig{
			BaseURL: "http://localhost:3000/api",
			Timeout: "2s",
		},
		Sync: SyncConfig{
			Interval: "100ms",
		},
		View: ViewConfig{
			Width:  960,
			Height: 640,
			Scale:  viewport.DefaultScale,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			PublishInterval: "50ms",
		},
		Palette: PaletteConfig{
			Background: "#0a0e27",
			Grid:       "#1e2139",
			Cell:       "#a78bfa",
		},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// FromYaml reads the file at path over the defaults and validates the result.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}
	if outerConfig.Kind != "" && outerConfig.Kind != Kind {
		return nil, fmt.Errorf("%w: kind %q, expected %q", ErrInvalidConfig, outerConfig.Kind, Kind)
	}

	cfg := Default()
	if outerConfig.Def != nil {
		var def []byte
		if def, err = yaml.Marshal(outerConfig.Def); err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(def, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and derives the typed values. The scale is clamped rather than rejected.
func (cfg *Config) Validate() (err error) {
	if cfg.Remote.BaseURL == "" {
		return fmt.Errorf("%w: remote.baseUrl is empty", ErrInvalidConfig)
	}
	if cfg.remoteTimeout, err = positive("remote.timeout", cfg.Remote.Timeout); err != nil {
		return
	}
	if cfg.syncInterval, err = positive("sync.interval", cfg.Sync.Interval); err != nil {
		return
	}
	if cfg.publishInterval, err = positive("server.publishInterval", cfg.Server.PublishInterval); err != nil {
		return
	}
	if cfg.View.Width < 1 || cfg.View.Height < 1 {
		return fmt.Errorf("%w: view size %dx%d", ErrInvalidConfig, cfg.View.Width, cfg.View.Height)
	}
	cfg.View.Scale = viewport.ClampScale(cfg.View.Scale)

	palette := render.DefaultPalette()
	if palette.Background, err = parseColor("palette.background", cfg.Palette.Background); err != nil {
		return
	}
	if palette.Grid, err = parseColor("palette.grid", cfg.Palette.Grid); err != nil {
		return
	}
	if palette.Cell, err = parseColor("palette.cell", cfg.Palette.Cell); err != nil {
		return
	}
	cfg.palette = palette
	return nil
}

func parseColor(key, hex string) (c stdcolor.RGBA, err error) {
	if c, err = render.ParseHexColor(hex); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return
}

func positive(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, key, value)
	}
	return d, nil
}

// WithListen overrides the listen address with the passed host and/or port, when given.
func (cfg *Config) WithListen(host string, port int) {
	if host == "" && port == 0 {
		return
	}
	curHost, curPort, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		curHost, curPort = "", "8080"
	}
	if host != "" {
		curHost = host
	}
	if port != 0 {
		curPort = strconv.Itoa(port)
	}
	cfg.Server.Addr = net.JoinHostPort(curHost, curPort)
}

func (cfg *Config) RemoteTimeout() time.Duration   { return cfg.remoteTimeout }
func (cfg *Config) SyncInterval() time.Duration    { return cfg.syncInterval }
func (cfg *Config) PublishInterval() time.Duration { return cfg.publishInterval }
func (cfg *Config) RenderPalette() render.Palette  { return cfg.palette }

// ViewState is the view every new session starts from.
func (cfg *Config) ViewState() viewport.ViewState {
	return viewport.ViewState{
		Scale:   cfg.View.Scale,
		OffsetX: cfg.View.OffsetX,
		OffsetY: cfg.View.OffsetY,
	}
}
