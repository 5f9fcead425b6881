// Package config defines GraphConfig, the resolver's input record
// (spec.md §6), loaded the way the teacher's cmd/codegrep/root.go loads
// its flags: spf13/viper binds spf13/cobra flags plus an optional
// .gossiphs.yaml, with defaults matching spec.md §6.
package config

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GraphConfig configures one Build run end to end, covering the history
// collector, the resolver pipeline, and output-level post-filters.
type GraphConfig struct {
	ProjectPath string `mapstructure:"project_path"`

	DefLimit              int     `mapstructure:"def_limit"`
	CommitSizeLimitRatio  float64 `mapstructure:"commit_size_limit_ratio"`
	Depth                 int     `mapstructure:"depth"`
	SymbolLimit           int     `mapstructure:"symbol_limit"`
	SymbolLenLimit        int     `mapstructure:"symbol_len_limit"`

	ExcludeFileRegex   string `mapstructure:"exclude_file_regex"`
	ExcludeAuthorRegex string `mapstructure:"exclude_author_regex"`
	ExcludeCommitRegex string `mapstructure:"exclude_commit_regex"`
	IssueRegex         string `mapstructure:"issue_regex"`

	CommitID string `mapstructure:"commit_id"`

	FileMinLinks int `mapstructure:"file_min_links"`
	FileMaxLinks int `mapstructure:"file_max_links"`
}

// Defaults returns a GraphConfig with every spec.md §6 default populated.
func Defaults() GraphConfig {
	return GraphConfig{
		DefLimit:             16,
		CommitSizeLimitRatio: 1.0,
		Depth:                10240,
		SymbolLimit:          4096,
		SymbolLenLimit:       0,
	}
}

// CompiledFilters holds the regexes GraphConfig's string fields compile
// to, so the resolver and history collector don't recompile per call.
type CompiledFilters struct {
	ExcludeFile   *regexp.Regexp
	ExcludeAuthor *regexp.Regexp
	ExcludeCommit *regexp.Regexp
	Issue         *regexp.Regexp
}

// Compile validates and compiles every regex field of c, returning a plain
// error naming the offending field on the first invalid pattern. config
// does not import apperr; resolver.NewBuilder wraps the error as a
// KindConfig *apperr.Error.
func (c GraphConfig) Compile() (CompiledFilters, error) {
	var f CompiledFilters
	var err error
	if f.ExcludeFile, err = compileOptional(c.ExcludeFileRegex); err != nil {
		return f, fmt.Errorf("exclude_file_regex: %w", err)
	}
	if f.ExcludeAuthor, err = compileOptional(c.ExcludeAuthorRegex); err != nil {
		return f, fmt.Errorf("exclude_author_regex: %w", err)
	}
	if f.ExcludeCommit, err = compileOptional(c.ExcludeCommitRegex); err != nil {
		return f, fmt.Errorf("exclude_commit_regex: %w", err)
	}
	if f.Issue, err = compileOptional(c.IssueRegex); err != nil {
		return f, fmt.Errorf("issue_regex: %w", err)
	}
	return f, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

// BindFlags registers GraphConfig's fields on cmd's flag set, with parsed
// flag values written straight into cfg, and binds the flag set to v under
// the flags' dashed names, mirroring the teacher's viper.BindPFlags call.
func BindFlags(cmd *cobra.Command, v *viper.Viper, cfg *GraphConfig) {
	flags := cmd.Flags()

	flags.StringVar(&cfg.ProjectPath, "project-path", cfg.ProjectPath, "repository root")
	flags.IntVar(&cfg.DefLimit, "def-limit", cfg.DefLimit, "max candidate defs per reference")
	flags.Float64Var(&cfg.CommitSizeLimitRatio, "commit-size-limit-ratio", cfg.CommitSizeLimitRatio, "valid-commit file-count ratio")
	flags.IntVar(&cfg.Depth, "depth", cfg.Depth, "commit history depth")
	flags.IntVar(&cfg.SymbolLimit, "symbol-limit", cfg.SymbolLimit, "per-file symbol cap")
	flags.IntVar(&cfg.SymbolLenLimit, "symbol-len-limit", cfg.SymbolLenLimit, "minimum FQN length")
	flags.StringVar(&cfg.ExcludeFileRegex, "exclude-file-regex", cfg.ExcludeFileRegex, "file-path drop regex")
	flags.StringVar(&cfg.ExcludeAuthorRegex, "exclude-author-regex", cfg.ExcludeAuthorRegex, "author drop regex")
	flags.StringVar(&cfg.ExcludeCommitRegex, "exclude-commit-regex", cfg.ExcludeCommitRegex, "commit message drop regex")
	flags.StringVar(&cfg.IssueRegex, "issue-regex", cfg.IssueRegex, "issue-reference regex")
	flags.StringVar(&cfg.CommitID, "commit-id", cfg.CommitID, "analyze at this revision instead of HEAD")
	flags.IntVar(&cfg.FileMinLinks, "file-min-links", cfg.FileMinLinks, "lower related-file count bound for query.FilterByLinkCount (0 disables; no command applies it)")
	flags.IntVar(&cfg.FileMaxLinks, "file-max-links", cfg.FileMaxLinks, "upper related-file count bound for query.FilterByLinkCount (0 disables; no command applies it)")

	v.BindPFlags(flags)
}

// Load reads .gossiphs.yaml (if present) into cfg via v, after flags have
// already been bound with BindFlags; a key set in the file overrides the
// flag or default value. Environment variables do not reach cfg: the only
// keys v knows without a config file are the dashed flag names, which do
// not match cfg's underscore mapstructure tags.
func Load(v *viper.Viper, cfg *GraphConfig) error {
	v.SetConfigName(".gossiphs")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.SetEnvPrefix("GOSSIPHS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return v.Unmarshal(cfg)
}
