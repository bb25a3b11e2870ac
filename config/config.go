package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/esotap/cache"
	"github.com/jonwraymond/esotap/eso"
)

// ErrMissingEnv reports ${VAR} references whose variables are not set.
var ErrMissingEnv = errors.New("config: missing required environment variables")

// Duration is a time.Duration that unmarshals from YAML scalars in
// time.ParseDuration syntax ("168h", "30m", "0").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// File is the on-disk configuration. Zero fields fall back to the
// client defaults.
type File struct {
	// TAPEndpoint overrides the TAP service base URL.
	TAPEndpoint string `yaml:"tap_endpoint"`

	// SSOEndpoint overrides the OIDC token endpoint.
	SSOEndpoint string `yaml:"sso_endpoint"`

	// CalSelectorURL overrides the calibration-association service URL.
	CalSelectorURL string `yaml:"calselector_url"`

	// DownloadURL overrides the data-product base URL.
	DownloadURL string `yaml:"download_url"`

	// CacheDir overrides the query-cache directory.
	CacheDir string `yaml:"cache_dir"`

	// CacheTTL bounds the age of cached query results ("168h", "30m").
	// An explicit "0" keeps entries forever; leaving the key out uses
	// the client default of 7 days.
	CacheTTL *Duration `yaml:"cache_ttl"`

	// NoCache disables the query cache entirely.
	NoCache bool `yaml:"no_cache"`

	// RowLimit caps result rows for queries without an explicit top.
	// Negative means no cap.
	RowLimit int `yaml:"row_limit"`

	// Timeout bounds each HTTP request.
	Timeout Duration `yaml:"timeout"`

	// Username and Password authenticate against the archive SSO.
	// Password is usually "${ESO_PASSWORD}" rather than a literal.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// LogLevel selects logging verbosity: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultPath returns the well-known configuration file location under
// the user configuration directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "esotap", "config.yaml")
}

// Load reads and expands the configuration at path. A missing file
// yields the zero File; unknown keys and unresolvable ${VAR} references
// are errors.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnvStrict(string(raw))
	if err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &f, nil
}

// ClientConfig maps the file onto an eso.Config. Unset fields stay zero
// so the client applies its own defaults.
func (f *File) ClientConfig() eso.Config {
	cfg := eso.Config{
		TAPEndpoint:    f.TAPEndpoint,
		SSOEndpoint:    f.SSOEndpoint,
		CalSelectorURL: f.CalSelectorURL,
		DownloadURL:    f.DownloadURL,
		CacheDir:       f.CacheDir,
		RowLimit:       f.RowLimit,
		Timeout:        time.Duration(f.Timeout),
	}
	switch {
	case f.NoCache:
		policy := cache.NoCachePolicy()
		cfg.CachePolicy = &policy
	case f.CacheTTL != nil:
		cfg.CachePolicy = &cache.Policy{TTL: time.Duration(*f.CacheTTL)}
	}
	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvStrict expands ${VAR} and $VAR references in s. A ${VAR}
// whose variable is unset is an error rather than an empty expansion;
// $$ emits a literal $.
func expandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00ESOTAP_CONFIG_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
