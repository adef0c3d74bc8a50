package config

import "flag"

// Flags holds command-line overrides registered by BindFlags.
type Flags struct {
	Config   string
	Debug    bool
	Scale    float64
	LogFile  string
	NoDecode bool
	Charset  string
}

// BindFlags registers the shared flags on fs. Call it before fs.Parse.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file (.yaml, .yml or .toml)")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.Float64Var(&f.Scale, "scale", 0, "Uniform position scale (overrides config)")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to a rotating file")
	fs.BoolVar(&f.NoDecode, "no-decode", false, "Read textures without decoding them")
	fs.StringVar(&f.Charset, "charset", "", "Charset of .obj/.mtl text, e.g. euc-kr (default utf-8)")
	return f
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Scale != 0 {
		cfg.Parse.Scale = float32(f.Scale)
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.NoDecode {
		cfg.Textures.Decode = false
	}
	if f.Charset != "" {
		cfg.Parse.Charset = f.Charset
	}
}
