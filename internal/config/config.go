// Package config handles objtool configuration loading and management.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/objparse/pkg/charset"
	"github.com/Faultbox/objparse/pkg/wavefront"
)

// Config holds all loader settings.
type Config struct {
	Parse     ParseConfig     `yaml:"parse" toml:"parse"`
	Materials MaterialsConfig `yaml:"materials" toml:"materials"`
	Textures  TexturesConfig  `yaml:"textures" toml:"textures"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ParseConfig holds geometry parsing settings.
type ParseConfig struct {
	Scale   float32 `yaml:"scale" toml:"scale"`     // uniform position scale
	Workers int     `yaml:"workers" toml:"workers"` // parallel batch loads, 0 = GOMAXPROCS

	// Charset of .obj and .mtl text, a WHATWG label such as "euc-kr".
	// Empty means UTF-8.
	Charset string `yaml:"charset" toml:"charset"`
}

// MaterialsConfig holds the templates material descriptors are cloned from.
type MaterialsConfig struct {
	Opaque      TemplateConfig `yaml:"opaque" toml:"opaque"`
	Transparent TemplateConfig `yaml:"transparent" toml:"transparent"`
}

// TemplateConfig describes a material template. Color has 3 or 4
// components; Slots lists the properties the template exposes by name.
type TemplateConfig struct {
	Color         []float32 `yaml:"color" toml:"color"`
	SpecularColor []float32 `yaml:"specular_color" toml:"specular_color"`
	Glossiness    float32   `yaml:"glossiness" toml:"glossiness"`
	Slots         []string  `yaml:"slots" toml:"slots"`
}

// TexturesConfig holds texture resolution settings.
type TexturesConfig struct {
	Extensions  []string `yaml:"extensions" toml:"extensions"`
	Decode      bool     `yaml:"decode" toml:"decode"`
	SearchPaths []string `yaml:"search_paths" toml:"search_paths"` // lower priority than the library directory
}

// WatchConfig holds file watching settings.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	LogFile    string `yaml:"log_file" toml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	JSON       bool   `yaml:"json" toml:"json"`
}

// Duration is a time.Duration written as a string such as "200ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			Scale:   1,
			Workers: 0,
		},
		Materials: MaterialsConfig{
			Opaque: TemplateConfig{
				Color:         []float32{1, 1, 1, 1},
				SpecularColor: []float32{0.2, 0.2, 0.2},
				Glossiness:    0.5,
				Slots:         wavefront.AllSlots.Names(),
			},
			Transparent: TemplateConfig{
				Color:         []float32{1, 1, 1, 1},
				SpecularColor: []float32{0.2, 0.2, 0.2},
				Glossiness:    0.5,
				Slots:         wavefront.AllSlots.Names(),
			},
		},
		Textures: TexturesConfig{
			Extensions: []string{".jpg", ".png"},
			Decode:     true,
		},
		Watch: WatchConfig{
			Debounce: Duration(200 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Template converts the config into a material template.
func (t TemplateConfig) Template() (*wavefront.Material, error) {
	var slots wavefront.Slot
	for _, name := range t.Slots {
		s, ok := wavefront.ParseSlot(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown material slot %q", name)
		}
		slots |= s
	}

	m := wavefront.NewTemplate(slots)
	switch len(t.Color) {
	case 0:
	case 3:
		m.Color = mgl32.Vec4{t.Color[0], t.Color[1], t.Color[2], 1}
	case 4:
		m.Color = mgl32.Vec4{t.Color[0], t.Color[1], t.Color[2], t.Color[3]}
	default:
		return nil, fmt.Errorf("color needs 3 or 4 components, got %d", len(t.Color))
	}
	switch len(t.SpecularColor) {
	case 0:
	case 3:
		m.SpecularColor = mgl32.Vec3{t.SpecularColor[0], t.SpecularColor[1], t.SpecularColor[2]}
	default:
		return nil, fmt.Errorf("specular_color needs 3 components, got %d", len(t.SpecularColor))
	}
	m.Glossiness = t.Glossiness
	m.Opacity = m.Color[3]
	return m, nil
}

// Templates returns the opaque and transparent material templates.
func (c *Config) Templates() (opaque, transparent *wavefront.Material, err error) {
	opaque, err = c.Materials.Opaque.Template()
	if err != nil {
		return nil, nil, fmt.Errorf("opaque template: %w", err)
	}
	transparent, err = c.Materials.Transparent.Template()
	if err != nil {
		return nil, nil, fmt.Errorf("transparent template: %w", err)
	}
	transparent.Transparent = true
	return opaque, transparent, nil
}

// Validate checks values the loaders cannot work with.
func (c *Config) Validate() error {
	if c.Parse.Scale == 0 {
		return fmt.Errorf("parse.scale must not be zero")
	}
	if c.Parse.Workers < 0 {
		return fmt.Errorf("parse.workers must not be negative, got %d", c.Parse.Workers)
	}
	if _, err := charset.Lookup(c.Parse.Charset); err != nil {
		return fmt.Errorf("parse.charset: %w", err)
	}
	for _, ext := range c.Textures.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("texture extension %q must start with a dot", ext)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if _, _, err := c.Templates(); err != nil {
		return err
	}
	return nil
}
