package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

const (
	ConfigFileName = "wrapperctl.hcl"
	ConfigEnvVar   = "WRAPPERCTL_CONFIG"

	TransportPipe = "pipe"
	TransportPTY  = "pty"
)

// Config is the global configuration instance
var Config *Configuration

// Configuration represents the complete wrapperctl configuration
type Configuration struct {
	ConfigPath     string // File the configuration was read from, empty when defaults are used
	Verbose        int    // Verbosity level (-1 warn, 0 info, 1+ debug)
	Transport      string // "pipe" or "pty"
	LogFile        string // Append-only session log, relative paths resolve inside Wrapper.Dir
	ControllerName string // Command lines containing this are never treated as instances
	Wrapper        WrapperConfig
	Timing         TimingConfig
	TwoFactor      TwoFactorConfig
}

// WrapperConfig describes the managed executable and its fixed invocation
type WrapperConfig struct {
	Dir         string // Directory holding the executable, also its working directory
	Executable  string // Executable as invoked from Dir, e.g. "./wrapper"
	DecryptPort int    // Value of -D
	M3U8Port    int    // Value of -M
}

// TimingConfig holds the fixed waits used by logout, interrupt and handoff
type TimingConfig struct {
	GracePeriod      time.Duration // SIGTERM -> liveness probe on logout
	InterruptTimeout time.Duration // Bounded wait for the child after Ctrl-C or a failed login
	HandoffDelay     time.Duration // Pause before detaching so the ready banner reaches the terminal
}

// TwoFactorConfig controls how relayed 2FA codes are validated
type TwoFactorConfig struct {
	CodeLength  int    // Accepted code length
	Placeholder string // Forwarded instead of malformed input so the executable fails fast
}

// HCL parsing structs

type hclConfig struct {
	Verbose        int           `hcl:"verbose,optional"`
	Transport      string        `hcl:"transport,optional"`
	LogFile        string        `hcl:"log_file,optional"`
	ControllerName string        `hcl:"controller_name,optional"`
	Wrapper        *hclWrapper   `hcl:"wrapper,block"`
	Timing         *hclTiming    `hcl:"timing,block"`
	TwoFactor      *hclTwoFactor `hcl:"two_factor,block"`
}

type hclWrapper struct {
	Dir         string `hcl:"dir,optional"`
	Executable  string `hcl:"executable,optional"`
	DecryptPort int    `hcl:"decrypt_port,optional"`
	M3U8Port    int    `hcl:"m3u8_port,optional"`
}

type hclTiming struct {
	GracePeriod      string `hcl:"grace_period,optional"`
	InterruptTimeout string `hcl:"interrupt_timeout,optional"`
	HandoffDelay     string `hcl:"handoff_delay,optional"`
}

type hclTwoFactor struct {
	CodeLength  int    `hcl:"code_length,optional"`
	Placeholder string `hcl:"placeholder,optional"`
}

// DefaultConfig returns the configuration used when no config file exists
func DefaultConfig() *Configuration {
	return &Configuration{
		Verbose:        0,
		Transport:      TransportPipe,
		LogFile:        "wrapper_log.txt",
		ControllerName: defaultControllerName(),
		Wrapper: WrapperConfig{
			Dir:         "wrapper",
			Executable:  "./wrapper",
			DecryptPort: 10020,
			M3U8Port:    20020,
		},
		Timing: TimingConfig{
			GracePeriod:      500 * time.Millisecond,
			InterruptTimeout: 5 * time.Second,
			HandoffDelay:     500 * time.Millisecond,
		},
		TwoFactor: TwoFactorConfig{
			CodeLength:  6,
			Placeholder: "000000",
		},
	}
}

func defaultControllerName() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Base(exe)
	}
	return filepath.Base(os.Args[0])
}

// InitializeConfig loads the config file named by WRAPPERCTL_CONFIG, or
// wrapperctl.hcl in the working directory, into Config. A missing file is not
// an error; defaults are used instead.
func InitializeConfig() error {
	path := os.Getenv(ConfigEnvVar)
	if path == "" {
		path = ConfigFileName
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		Config = DefaultConfig()
		return nil
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// LoadConfig loads the HCL configuration file and returns a Configuration struct
func LoadConfig(filename string) (*Configuration, error) {
	var hclCfg hclConfig

	err := hclsimple.DecodeFile(filename, nil, &hclCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HCL config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.ConfigPath = filename
	cfg.Verbose = hclCfg.Verbose

	switch hclCfg.Transport {
	case "":
	case TransportPipe, TransportPTY:
		cfg.Transport = hclCfg.Transport
	default:
		return nil, fmt.Errorf("invalid transport %q (expected %q or %q)", hclCfg.Transport, TransportPipe, TransportPTY)
	}
	if hclCfg.LogFile != "" {
		cfg.LogFile = hclCfg.LogFile
	}
	if hclCfg.ControllerName != "" {
		cfg.ControllerName = hclCfg.ControllerName
	}

	// Apply overrides for non-zero values
	if w := hclCfg.Wrapper; w != nil {
		if w.Dir != "" {
			cfg.Wrapper.Dir = w.Dir
		}
		if w.Executable != "" {
			cfg.Wrapper.Executable = w.Executable
		}
		if w.DecryptPort != 0 {
			cfg.Wrapper.DecryptPort = w.DecryptPort
		}
		if w.M3U8Port != 0 {
			cfg.Wrapper.M3U8Port = w.M3U8Port
		}
	}

	if t := hclCfg.Timing; t != nil {
		for _, d := range []struct {
			key   string
			value string
			dst   *time.Duration
		}{
			{"grace_period", t.GracePeriod, &cfg.Timing.GracePeriod},
			{"interrupt_timeout", t.InterruptTimeout, &cfg.Timing.InterruptTimeout},
			{"handoff_delay", t.HandoffDelay, &cfg.Timing.HandoffDelay},
		} {
			if d.value == "" {
				continue
			}
			parsed, err := time.ParseDuration(d.value)
			if err != nil {
				return nil, fmt.Errorf("invalid timing.%s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	if tf := hclCfg.TwoFactor; tf != nil {
		if tf.CodeLength != 0 {
			cfg.TwoFactor.CodeLength = tf.CodeLength
		}
		if tf.Placeholder != "" {
			cfg.TwoFactor.Placeholder = tf.Placeholder
		}
		if len(cfg.TwoFactor.Placeholder) != cfg.TwoFactor.CodeLength {
			return nil, fmt.Errorf("two_factor.placeholder must be %d characters", cfg.TwoFactor.CodeLength)
		}
	}

	return cfg, nil
}

// Signature is the fixed command line prefix that identifies a running instance
func (c *Configuration) Signature() string {
	return c.Wrapper.Executable +
		" -D " + strconv.Itoa(c.Wrapper.DecryptPort) +
		" -M " + strconv.Itoa(c.Wrapper.M3U8Port)
}

// CleanupPattern is the broader match used by the logout safety net
func (c *Configuration) CleanupPattern() string {
	return c.Wrapper.Executable + " -D"
}

// Args returns the managed executable's argument list (without argv[0])
func (c *Configuration) Args(credentials string) []string {
	return []string{
		"-D", strconv.Itoa(c.Wrapper.DecryptPort),
		"-M", strconv.Itoa(c.Wrapper.M3U8Port),
		"-L", credentials,
	}
}

// ExecutablePath returns the executable's path relative to the controller's working directory
func (c *Configuration) ExecutablePath() string {
	return filepath.Join(c.Wrapper.Dir, c.Wrapper.Executable)
}

// LogPath resolves LogFile against the managed executable's working directory
func (c *Configuration) LogPath() string {
	if filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}
	return filepath.Join(c.Wrapper.Dir, c.LogFile)
}
