package elmtest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
)

// Config represents the .elmtest.yaml configuration file.
type Config struct {
	// Tests is the directory holding test modules, relative to the project.
	Tests string `yaml:"tests,omitempty"`

	// Binaries overrides the discovered tool paths.
	Binaries Binaries `yaml:"binaries,omitempty"`

	// Args holds extra elm-test arguments as a shell-quoted string,
	// e.g. "--fuzz 50 --seed 1234".
	Args string `yaml:"args,omitempty"`

	// Transcript is where the raw report of the last run is kept,
	// relative to the project.
	Transcript string `yaml:"transcript,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// Defaults.
const (
	DefaultTestsDir   = "tests"
	DefaultTranscript = "elm-stuff/elmtest/last-run.jsonl"
)

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".elmtest.yaml", ".elmtest.yml", "elmtest.yaml", "elmtest.yml"}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(dir string) *Config {
	return &Config{
		Tests:      DefaultTestsDir,
		Transcript: DefaultTranscript,
		dir:        dir,
	}
}

// Dir returns the project directory the config applies to.
func (c *Config) Dir() string {
	return c.dir
}

// TestsDir returns the absolute tests directory.
func (c *Config) TestsDir() string {
	return filepath.Join(c.dir, c.Tests)
}

// TranscriptPath returns the absolute transcript path.
func (c *Config) TranscriptPath() string {
	if filepath.IsAbs(c.Transcript) {
		return c.Transcript
	}

	return filepath.Join(c.dir, c.Transcript)
}

// ExtraArgs splits Args using shell quoting rules.
func (c *Config) ExtraArgs() ([]string, error) {
	if c.Args == "" {
		return nil, nil
	}

	args, err := shlex.Split(c.Args)
	if err != nil {
		return nil, fmt.Errorf("parsing args %q: %w", c.Args, err)
	}

	return args, nil
}

// ResolveBinaries returns the configured binaries, completed with the
// ones installed in the project's node_modules.
func (c *Config) ResolveBinaries() Binaries {
	b := c.Binaries

	for _, p := range []*string{&b.ElmTest, &b.ElmMake, &b.Elm} {
		if *p != "" && !filepath.IsAbs(*p) && filepath.Base(*p) != *p {
			*p = filepath.Join(c.dir, *p)
		}
	}

	return b.Merge(FindLocalBinaries(c.dir))
}

// LoadConfig finds and loads the nearest .elmtest.yaml walking up from dir.
// When none exists it returns the defaults rooted at dir together with
// ErrConfigNotFound.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			abs = dir
		}

		return DefaultConfig(abs), err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig(abs)

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}
