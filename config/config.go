// Package config loads the daemon options and the remote control table from
// a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"libdb.so/go-lircd"
)

// Config is the top-level YAML configuration.
type Config struct {
	Daemon  DaemonConfig   `yaml:"daemon"`
	Driver  DriverConfig   `yaml:"driver"`
	Logging LoggingConfig  `yaml:"logging"`
	Remotes []RemoteConfig `yaml:"remotes"`
}

type DaemonConfig struct {
	RepeatMax     int    `yaml:"repeat_max"`
	DynamicCodes  bool   `yaml:"dynamic_codes"`
	Release       bool   `yaml:"release"`
	ReleaseSuffix string `yaml:"release_suffix"`
}

// DriverConfig describes a lirccode device: one code word of CodeLength
// bits per received signal.
type DriverConfig struct {
	Device     string `yaml:"device"`
	CodeLength int    `yaml:"code_length"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RemoteConfig is one remote as written in the config file. Timings are in
// microseconds; pairs are written as [pulse, space].
type RemoteConfig struct {
	Name  string `yaml:"name"`
	Flags string `yaml:"flags"`

	Bits         int `yaml:"bits"`
	PreDataBits  int `yaml:"pre_data_bits"`
	PreData      Hex `yaml:"pre_data"`
	PostDataBits int `yaml:"post_data_bits"`
	PostData     Hex `yaml:"post_data"`

	ToggleBitMask Hex `yaml:"toggle_bit_mask"`
	ToggleMask    Hex `yaml:"toggle_mask"`
	IgnoreMask    Hex `yaml:"ignore_mask"`
	RepeatMask    Hex `yaml:"repeat_mask"`
	RC6Mask       Hex `yaml:"rc6_mask"`

	Eps  int `yaml:"eps"`
	Aeps int `yaml:"aeps"`

	Header               []int `yaml:"header,flow"`
	One                  []int `yaml:"one,flow"`
	Zero                 []int `yaml:"zero,flow"`
	Ptrail               int   `yaml:"ptrail"`
	Gap                  []int `yaml:"gap,flow"`
	MaxTotalSignalLength int   `yaml:"max_total_signal_length"`
	Frequency            uint  `yaml:"frequency"`

	MinRepeat      int `yaml:"min_repeat"`
	SuppressRepeat int `yaml:"suppress_repeat"`

	DynCodesName string `yaml:"dyncodes_name"`

	Codes Codes `yaml:"codes"`
}

// Hex is an integer written as a string or number with an optional base
// prefix, e.g. "0x10EF".
type Hex uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *Hex) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	v, err := strconv.ParseUint(value.Value, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: bad number %q: %w", value.Line, value.Value, err)
	}
	*h = Hex(v)
	return nil
}

// Code is one button entry. A button with more than one code sends them in
// sequence.
type Code struct {
	Name  string
	Codes []Hex
}

// Codes keeps the button order of the file; earlier buttons win ties.
type Codes []Code

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Codes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: codes must be a mapping", value.Line)
	}
	codes := make(Codes, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		code := Code{Name: key.Value}
		switch val.Kind {
		case yaml.ScalarNode:
			var h Hex
			if err := val.Decode(&h); err != nil {
				return fmt.Errorf("button %q: %w", key.Value, err)
			}
			code.Codes = []Hex{h}
		case yaml.SequenceNode:
			if err := val.Decode(&code.Codes); err != nil {
				return fmt.Errorf("button %q: %w", key.Value, err)
			}
			if len(code.Codes) == 0 {
				return fmt.Errorf("button %q: empty code list", key.Value)
			}
		default:
			return fmt.Errorf("line %d: button %q must be a code or a list of codes", val.Line, key.Value)
		}
		codes = append(codes, code)
	}
	*c = codes
	return nil
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Daemon: DaemonConfig{
			RepeatMax:     lirc.DefaultRepeatMax,
			ReleaseSuffix: lirc.DefaultReleaseSuffix,
		},
		Driver: DriverConfig{
			Device:     "/dev/lirc0",
			CodeLength: 32,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads, parses and validates a YAML config file.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Load(b)
}

// Load parses and validates a YAML config. Unknown fields are rejected.
func Load(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the options and every remote.
func (c Config) Validate() error {
	if c.Daemon.RepeatMax <= 0 {
		return fmt.Errorf("daemon.repeat_max must be positive, got %d", c.Daemon.RepeatMax)
	}
	if c.Driver.CodeLength <= 0 || c.Driver.CodeLength > lirc.MaxBits {
		return fmt.Errorf("driver.code_length must be in 1..%d, got %d", lirc.MaxBits, c.Driver.CodeLength)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Remotes))
	for _, rc := range c.Remotes {
		key := strings.ToLower(rc.Name)
		if seen[key] {
			return fmt.Errorf("duplicate remote %q", rc.Name)
		}
		seen[key] = true
		if _, err := rc.Remote(); err != nil {
			return err
		}
	}
	return nil
}

// BuildRemotes converts the configured remotes, in file order.
func (c Config) BuildRemotes() ([]*lirc.Remote, error) {
	remotes := make([]*lirc.Remote, 0, len(c.Remotes))
	for _, rc := range c.Remotes {
		r, err := rc.Remote()
		if err != nil {
			return nil, err
		}
		remotes = append(remotes, r)
	}
	return remotes, nil
}

func us(v int) time.Duration { return time.Duration(v) * time.Microsecond }

func pair(name string, v []int) ([2]time.Duration, error) {
	switch len(v) {
	case 0:
		return [2]time.Duration{}, nil
	case 2:
		return [2]time.Duration{us(v[0]), us(v[1])}, nil
	default:
		return [2]time.Duration{}, fmt.Errorf("%s must be [pulse, space]", name)
	}
}

// Remote converts the entry into a validated remote definition.
func (rc RemoteConfig) Remote() (*lirc.Remote, error) {
	flags, err := lirc.ParseFlags(rc.Flags)
	if err != nil {
		return nil, fmt.Errorf("remote %q: %w", rc.Name, err)
	}

	r := &lirc.Remote{
		Name:           rc.Name,
		Flags:          flags,
		PreDataBits:    rc.PreDataBits,
		Bits:           rc.Bits,
		PostDataBits:   rc.PostDataBits,
		PreData:        lirc.Code(rc.PreData),
		PostData:       lirc.Code(rc.PostData),
		ToggleBitMask:  lirc.Code(rc.ToggleBitMask),
		ToggleMask:     lirc.Code(rc.ToggleMask),
		IgnoreMask:     lirc.Code(rc.IgnoreMask),
		RepeatMask:     lirc.Code(rc.RepeatMask),
		RC6Mask:        lirc.Code(rc.RC6Mask),
		Eps:            rc.Eps,
		Aeps:           us(rc.Aeps),
		Trail:          us(rc.Ptrail),
		Freq:           rc.Frequency,
		MinRepeat:      rc.MinRepeat,
		SuppressRepeat: rc.SuppressRepeat,
		DynCodesName:   rc.DynCodesName,
	}

	for _, p := range []struct {
		name string
		dst  *[2]time.Duration
		src  []int
	}{
		{"header", &r.Header, rc.Header},
		{"one", &r.One, rc.One},
		{"zero", &r.Zero, rc.Zero},
	} {
		if *p.dst, err = pair(p.name, p.src); err != nil {
			return nil, fmt.Errorf("remote %q: %w", rc.Name, err)
		}
	}

	switch len(rc.Gap) {
	case 0:
	case 1:
		r.Gap = us(rc.Gap[0])
	case 2:
		r.Gap, r.Gap2 = us(rc.Gap[0]), us(rc.Gap[1])
	default:
		return nil, fmt.Errorf("remote %q: gap takes one or two values", rc.Name)
	}

	r.MaxTotalSignalLength = us(rc.MaxTotalSignalLength)
	if r.MaxTotalSignalLength == 0 {
		r.MaxTotalSignalLength = estimateSignalLength(r)
	}

	for _, c := range rc.Codes {
		b := &lirc.Button{Name: c.Name, Code: lirc.Code(c.Codes[0])}
		for _, h := range c.Codes[1:] {
			b.Sequence = append(b.Sequence, lirc.Code(h))
		}
		r.Codes = append(r.Codes, b)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// estimateSignalLength bounds the length of one signal plus its gap from
// the bit timings, assuming every bit takes the longer encoding.
func estimateSignalLength(r *lirc.Remote) time.Duration {
	bit := max(r.One[0]+r.One[1], r.Zero[0]+r.Zero[1])
	return r.Header[0] + r.Header[1] +
		time.Duration(r.BitCount())*bit +
		r.Trail +
		r.MaxGap()
}

// SlogLevel converts the configured level name.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", c.Level)
	}
}
