package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/moritzfl/homebrew-vale-ls/internal/github"
	"github.com/moritzfl/homebrew-vale-ls/internal/versions"
)

const (
	DefaultRepo        = "errata-ai/vale-ls"
	DefaultFormulaName = "vale-ls"
	DefaultConcurrency = 4

	// LocalFile is looked up in the tap directory when --config is not set.
	LocalFile = ".sync-tap.yaml"
)

type FileConfig struct {
	Repo               string            `yaml:"repo" toml:"repo"`
	FormulaName        string            `yaml:"formula_name" toml:"formula_name"`
	ClassName          string            `yaml:"class_name" toml:"class_name"`
	FormulaDir         string            `yaml:"formula_dir" toml:"formula_dir"`
	Template           string            `yaml:"template" toml:"template"`
	IncludePrereleases *bool             `yaml:"include_prereleases" toml:"include_prereleases"`
	Prune              *bool             `yaml:"prune" toml:"prune"`
	DryRun             *bool             `yaml:"dry_run" toml:"dry_run"`
	Debug              *bool             `yaml:"debug" toml:"debug"`
	Constraint         string            `yaml:"constraint" toml:"constraint"`
	Concurrency        *int              `yaml:"concurrency" toml:"concurrency"`
	Assets             map[string]string `yaml:"assets" toml:"assets"`
}

// Load reads a config file. Files ending in .toml are parsed as TOML,
// everything else as YAML. An empty path yields an empty config.
func Load(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("parse config TOML %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config YAML %s: %w", path, err)
	}
	return cfg, nil
}

func FromString(s string) (FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal([]byte(s), &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config YAML: %w", err)
	}
	return cfg, nil
}

// Discover returns the config file to use when none was given explicitly:
// the tap-local file first, then the user config under XDG_CONFIG_HOME.
// It returns "" when neither exists.
func Discover(tapDir string) string {
	candidates := []string{
		filepath.Join(tapDir, LocalFile),
		UserFile(),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// UserFile is the per-user config location.
func UserFile() string {
	return filepath.Join(xdg.ConfigHome, "sync-tap", "config.yaml")
}

// Settings are the effective options after defaults, config file,
// environment and flags have been merged.
type Settings struct {
	Repo               string
	FormulaName        string
	ClassName          string
	FormulaDir         string
	Template           string
	IncludePrereleases bool
	Prune              bool
	DryRun             bool
	Debug              bool
	Constraint         string
	Concurrency        int
	Assets             map[string]string
}

// Defaults returns the settings used when nothing is configured, rooted at
// the tap checkout tapDir.
func Defaults(tapDir string) Settings {
	return Settings{
		Repo:        DefaultRepo,
		FormulaName: DefaultFormulaName,
		FormulaDir:  filepath.Join(tapDir, "Formula"),
		Template:    filepath.Join(tapDir, "scripts", "formula.rb.tmpl"),
		Concurrency: DefaultConcurrency,
	}
}

// Apply overlays every value set in cfg onto s. Relative paths in cfg are
// resolved against baseDir.
func (s *Settings) Apply(cfg FileConfig, baseDir string) {
	if cfg.Repo != "" {
		s.Repo = cfg.Repo
	}
	if cfg.FormulaName != "" {
		s.FormulaName = cfg.FormulaName
	}
	if cfg.ClassName != "" {
		s.ClassName = cfg.ClassName
	}
	if cfg.FormulaDir != "" {
		s.FormulaDir = resolvePath(baseDir, cfg.FormulaDir)
	}
	if cfg.Template != "" {
		s.Template = resolvePath(baseDir, cfg.Template)
	}
	if cfg.IncludePrereleases != nil {
		s.IncludePrereleases = *cfg.IncludePrereleases
	}
	if cfg.Prune != nil {
		s.Prune = *cfg.Prune
	}
	if cfg.DryRun != nil {
		s.DryRun = *cfg.DryRun
	}
	if cfg.Debug != nil {
		s.Debug = *cfg.Debug
	}
	if cfg.Constraint != "" {
		s.Constraint = cfg.Constraint
	}
	if cfg.Concurrency != nil {
		s.Concurrency = *cfg.Concurrency
	}
	if len(cfg.Assets) > 0 {
		s.Assets = cfg.Assets
	}
}

// AssetTable builds the platform asset table for s, applying any
// configured filename overrides on top of the default naming.
func (s Settings) AssetTable() (versions.AssetTable, error) {
	overrides := make(map[versions.Platform]string, len(s.Assets))
	for key, name := range s.Assets {
		platform, err := versions.ParsePlatform(strings.TrimSpace(key))
		if err != nil {
			return versions.AssetTable{}, err
		}
		overrides[platform] = strings.TrimSpace(name)
	}
	return versions.NewAssetTable(versions.DefaultAssetTable(s.FormulaName), overrides)
}

// Validate reports every problem with s at once.
func (s Settings) Validate() error {
	var errs *multierror.Error

	if _, _, err := github.SplitRepo(s.Repo); err != nil {
		errs = multierror.Append(errs, err)
	}
	if strings.TrimSpace(s.FormulaName) == "" {
		errs = multierror.Append(errs, fmt.Errorf("formula name cannot be empty"))
	} else if strings.ContainsAny(s.FormulaName, `/\@`) {
		errs = multierror.Append(errs, fmt.Errorf("formula name %q must not contain '/', '\\' or '@'", s.FormulaName))
	}
	if s.FormulaDir == "" {
		errs = multierror.Append(errs, fmt.Errorf("formula directory cannot be empty"))
	}
	if s.Template == "" {
		errs = multierror.Append(errs, fmt.Errorf("template path cannot be empty"))
	}
	if s.Concurrency < 1 {
		errs = multierror.Append(errs, fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency))
	}
	if _, err := versions.ParseConstraint(s.Constraint); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := s.AssetTable(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("assets: %w", err))
	}

	return errs.ErrorOrNil()
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
