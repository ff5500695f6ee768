package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moritzfl/homebrew-vale-ls/internal/config"
	"github.com/moritzfl/homebrew-vale-ls/internal/github"
	"github.com/moritzfl/homebrew-vale-ls/internal/logging"
	"github.com/moritzfl/homebrew-vale-ls/internal/tap"
)

const envPrefix = "SYNC_TAP_"

type runtimeOptions struct {
	ConfigPath string
	TapDir     string
	APIURL     string
	Token      string
	UserAgent  string

	config.Settings
}

// flagValues holds raw flag bindings; only flags the user changed are
// merged over config and environment.
type flagValues struct {
	ConfigPath         string
	TapDir             string
	APIURL             string
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

	// userAgent identifies this build to the GitHub API.
	userAgent string
}

func NewRootCmd(buildVersion, buildDate string) *cobra.Command {
	flags := &flagValues{userAgent: "sync-tap/" + buildVersion}
	showVersion := false

	cmd := &cobra.Command{
		Use:   "sync-tap",
		Short: "Mirror GitHub releases into Homebrew formulas",
		Long: `sync-tap keeps a Homebrew tap in step with a project's GitHub releases.

It writes a latest formula, one keg-only formula per minor version line and
one per exact version, each pinned to per-platform SHA-256 checksums.
Running it without a subcommand is the same as "sync-tap sync".`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprint(cmd.OutOrStdout(), formatVersion(buildVersion, buildDate))
				return nil
			}
			return runSync(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "f", "", "Path to YAML or TOML config file")
	cmd.PersistentFlags().StringVarP(&flags.TapDir, "tap-dir", "C", "", "Tap checkout root (default: current directory)")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&showVersion, "version", false, "Print CLI version")
	addSyncFlags(cmd, flags)

	cmd.AddCommand(newVersionCmd(buildVersion, buildDate))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newTemplateCmd(flags))
	cmd.AddCommand(newSyncCmd(flags))
	cmd.AddCommand(newPlanCmd(flags))

	return cmd
}

// addSyncFlags registers the selection and output flags shared by the
// root, sync and plan commands.
func addSyncFlags(cmd *cobra.Command, flags *flagValues) {
	f := cmd.Flags()
	f.StringVar(&flags.Repo, "repo", config.DefaultRepo, "GitHub repository (owner/name)")
	f.StringVar(&flags.FormulaName, "formula-name", config.DefaultFormulaName, "Formula file base name")
	f.StringVar(&flags.ClassName, "class-name", "", "Ruby class of the latest formula (default: derived from --formula-name)")
	f.StringVar(&flags.FormulaDir, "formula-dir", "", "Formula directory (default: <tap>/Formula)")
	f.StringVar(&flags.Template, "template", "", "Formula template (default: <tap>/scripts/formula.rb.tmpl)")
	f.BoolVar(&flags.IncludePrereleases, "include-prereleases", false, "Accept draft and prerelease releases")
	f.BoolVar(&flags.Prune, "prune", false, "Delete versioned formulas that are no longer selected")
	f.BoolVar(&flags.DryRun, "dry-run", false, "Report changes without touching the formula directory")
	f.StringVar(&flags.Constraint, "constraint", "", `Only mirror versions in this range, e.g. ">= 0.2"`)
	f.IntVar(&flags.Concurrency, "concurrency", config.DefaultConcurrency, "Parallel checksum downloads")
	f.StringVar(&flags.APIURL, "api-url", "", "GitHub API root (default: https://api.github.com)")
}

func mergedOptions(cmd *cobra.Command, flags *flagValues) (runtimeOptions, error) {
	tapDir, err := resolveTapDir(cmd, flags)
	if err != nil {
		return runtimeOptions{}, err
	}

	merged := runtimeOptions{
		TapDir:    tapDir,
		UserAgent: flags.userAgent,
		Settings:  config.Defaults(tapDir),
	}

	merged.ConfigPath = config.Discover(tapDir)
	if value, ok := getenvTrim(envPrefix + "CONFIG"); ok && value != "" {
		merged.ConfigPath = value
	}
	if changed(cmd, "config") {
		merged.ConfigPath = strings.TrimSpace(flags.ConfigPath)
	}

	if merged.ConfigPath != "" {
		fileCfg, err := config.Load(merged.ConfigPath)
		if err != nil {
			return runtimeOptions{}, err
		}
		merged.Apply(fileCfg, filepath.Dir(merged.ConfigPath))
	}

	if err := applyEnvOverrides(&merged); err != nil {
		return runtimeOptions{}, err
	}

	if changed(cmd, "repo") {
		merged.Repo = flags.Repo
	}
	if changed(cmd, "formula-name") {
		merged.FormulaName = flags.FormulaName
	}
	if changed(cmd, "class-name") {
		merged.ClassName = flags.ClassName
	}
	if changed(cmd, "formula-dir") {
		merged.FormulaDir = absPath(flags.FormulaDir)
	}
	if changed(cmd, "template") {
		merged.Template = absPath(flags.Template)
	}
	if changed(cmd, "include-prereleases") {
		merged.IncludePrereleases = flags.IncludePrereleases
	}
	if changed(cmd, "prune") {
		merged.Prune = flags.Prune
	}
	if changed(cmd, "dry-run") {
		merged.DryRun = flags.DryRun
	}
	if changed(cmd, "debug") {
		merged.Debug = flags.Debug
	}
	if changed(cmd, "constraint") {
		merged.Constraint = flags.Constraint
	}
	if changed(cmd, "concurrency") {
		merged.Concurrency = flags.Concurrency
	}
	if changed(cmd, "api-url") {
		merged.APIURL = flags.APIURL
	}

	merged.Repo = strings.TrimSpace(merged.Repo)
	merged.FormulaName = strings.TrimSpace(merged.FormulaName)
	merged.ClassName = strings.TrimSpace(merged.ClassName)
	merged.FormulaDir = strings.TrimSpace(merged.FormulaDir)
	merged.Template = strings.TrimSpace(merged.Template)
	merged.Constraint = strings.TrimSpace(merged.Constraint)
	merged.APIURL = strings.TrimSpace(merged.APIURL)

	if err := merged.Validate(); err != nil {
		return runtimeOptions{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return merged, nil
}

// resolveTapDir picks the tap root: --tap-dir, then SYNC_TAP_TAP_DIR,
// then the working directory.
func resolveTapDir(cmd *cobra.Command, flags *flagValues) (string, error) {
	tapDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get cwd: %w", err)
	}
	if value, ok := getenvTrim(envPrefix + "TAP_DIR"); ok && value != "" {
		tapDir = value
	}
	if changed(cmd, "tap-dir") {
		tapDir = flags.TapDir
	}
	tapDir, err = filepath.Abs(strings.TrimSpace(tapDir))
	if err != nil {
		return "", fmt.Errorf("resolve tap directory: %w", err)
	}
	return tapDir, nil
}

func applyEnvOverrides(opts *runtimeOptions) error {
	if value, ok := getenvTrim(envPrefix + "REPO"); ok {
		opts.Repo = value
	}
	if value, ok := getenvTrim(envPrefix + "FORMULA_NAME"); ok {
		opts.FormulaName = value
	}
	if value, ok := getenvTrim(envPrefix + "CLASS_NAME"); ok {
		opts.ClassName = value
	}
	if value, ok := getenvTrim(envPrefix + "FORMULA_DIR"); ok {
		opts.FormulaDir = absPath(value)
	}
	if value, ok := getenvTrim(envPrefix + "TEMPLATE"); ok {
		opts.Template = absPath(value)
	}
	if value, ok := getenvTrim(envPrefix + "CONSTRAINT"); ok {
		opts.Constraint = value
	}
	if value, ok := getenvTrim(envPrefix + "API_URL"); ok {
		opts.APIURL = value
	}
	if value, ok := getenvTrim("GITHUB_TOKEN"); ok {
		opts.Token = value
	}

	if value, ok := getenvTrim(envPrefix + "CONCURRENCY"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %sCONCURRENCY as int: %w", envPrefix, err)
		}
		opts.Concurrency = parsed
	}

	for name, target := range map[string]*bool{
		"INCLUDE_PRERELEASES": &opts.IncludePrereleases,
		"PRUNE":               &opts.Prune,
		"DRY_RUN":             &opts.DryRun,
		"DEBUG":               &opts.Debug,
	} {
		value, ok := getenvTrim(envPrefix + name)
		if !ok {
			continue
		}
		parsed, err := parseBoolEnv(envPrefix+name, value)
		if err != nil {
			return err
		}
		*target = parsed
	}
	return nil
}

// syncOptions turns merged runtime options into orchestration options.
func (o runtimeOptions) syncOptions(cmd *cobra.Command) (tap.Options, error) {
	assets, err := o.AssetTable()
	if err != nil {
		return tap.Options{}, err
	}

	clientOpts := []github.ClientOption{github.WithToken(o.Token)}
	if o.UserAgent != "" {
		clientOpts = append(clientOpts, github.WithUserAgent(o.UserAgent))
	}
	if o.APIURL != "" {
		clientOpts = append(clientOpts, github.WithBaseURL(o.APIURL))
	}

	logging.Setup(cmd.ErrOrStderr(), o.Debug)

	return tap.Options{
		Source:             github.NewClient(clientOpts...),
		Repo:               o.Repo,
		FormulaName:        o.FormulaName,
		ClassName:          o.ClassName,
		FormulaDir:         o.FormulaDir,
		TemplatePath:       o.Template,
		Assets:             assets,
		IncludePrereleases: o.IncludePrereleases,
		Constraint:         o.Constraint,
		Prune:              o.Prune,
		DryRun:             o.DryRun,
		Concurrency:        o.Concurrency,
		Out:                cmd.OutOrStdout(),
		Logger:             logging.For("sync"),
	}, nil
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func absPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func getenvTrim(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func parseBoolEnv(name, raw string) (bool, error) {
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s as bool: %w", name, err)
	}
	return parsed, nil
}
