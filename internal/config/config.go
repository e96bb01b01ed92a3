// Package config loads mob.yaml and exposes the global phase switches and
// per-task settings consumed by the task engine. A missing file returns sane
// defaults without error. CLI flags (bound via cobra) override config file
// values at the highest precedence by mutating the returned struct after
// loading.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Qudix/mob/internal/names"
)

// Default values for global and per-task settings.
const (
	DefaultBuildDir     = "build"
	DefaultLogLevel     = "info"
	DefaultGitURLPrefix = "https://github.com/"
)

// Globals holds the process-wide switches gating the task lifecycle phases
// and the clean sub-flags.
type Globals struct {
	Clean bool `yaml:"clean"`
	Fetch bool `yaml:"fetch"`
	Build bool `yaml:"build"`

	Redownload  bool `yaml:"redownload"`
	Reextract   bool `yaml:"reextract"`
	Reconfigure bool `yaml:"reconfigure"`
	Rebuild     bool `yaml:"rebuild"`

	BuildDir string `yaml:"build_dir"`
	LogLevel string `yaml:"log_level"`
}

// TaskConf holds the per-task settings resolved for one task's alias list.
type TaskConf struct {
	Enabled bool `yaml:"enabled"`

	NoPull       bool   `yaml:"no_pull"`
	GitShallow   bool   `yaml:"git_shallow"`
	GitURLPrefix string `yaml:"git_url_prefix"`
	GitUser      string `yaml:"git_user"`
	GitEmail     string `yaml:"git_email"`

	SetOriginRemote         bool   `yaml:"set_origin_remote"`
	RemoteOrg               string `yaml:"remote_org"`
	RemoteKey               string `yaml:"remote_key"`
	RemoteNoPushUpstream    bool   `yaml:"remote_no_push_upstream"`
	RemotePushDefaultOrigin bool   `yaml:"remote_push_default_origin"`

	IgnoreTimestamps bool `yaml:"ignore_ts"`
	RevertTimestamps bool `yaml:"revert_ts"`
}

// SourceDef declares one source-checkout task in mob.yaml. Either URL or
// Org+Repo must be given; Branch is required. Dest defaults to
// <build_dir>/<name>.
type SourceDef struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Org     string   `yaml:"org"`
	Repo    string   `yaml:"repo"`
	URL     string   `yaml:"url"`
	Branch  string   `yaml:"branch"`
	Dest    string   `yaml:"dest"`
	Build   []string `yaml:"build"`
}

// TaskOverride is one entry of the tasks: list — a partial TaskConf applied
// to every task whose name or alias matches Pattern. Entries apply in file
// order on top of task_defaults.
type TaskOverride struct {
	Pattern string
	conf    partialTaskConf
}

// Config is the loaded mob.yaml plus resolution helpers.
type Config struct {
	Globals   Globals
	Defaults  TaskConf
	Overrides []TaskOverride
	Sources   []SourceDef
}

func defaultGlobals() Globals {
	return Globals{
		Clean:    true,
		Fetch:    true,
		Build:    true,
		BuildDir: DefaultBuildDir,
		LogLevel: DefaultLogLevel,
	}
}

func defaultTaskConf() TaskConf {
	return TaskConf{
		Enabled:      true,
		GitShallow:   true,
		GitURLPrefix: DefaultGitURLPrefix,
	}
}

// partialGlobals distinguishes absent fields (nil pointer) from fields
// explicitly set to their zero value.
type partialGlobals struct {
	Clean *bool `yaml:"clean"`
	Fetch *bool `yaml:"fetch"`
	Build *bool `yaml:"build"`

	Redownload  *bool `yaml:"redownload"`
	Reextract   *bool `yaml:"reextract"`
	Reconfigure *bool `yaml:"reconfigure"`
	Rebuild     *bool `yaml:"rebuild"`

	BuildDir *string `yaml:"build_dir"`
	LogLevel *string `yaml:"log_level"`
}

func (p *partialGlobals) applyTo(g *Globals) {
	if p.Clean != nil {
		g.Clean = *p.Clean
	}
	if p.Fetch != nil {
		g.Fetch = *p.Fetch
	}
	if p.Build != nil {
		g.Build = *p.Build
	}
	if p.Redownload != nil {
		g.Redownload = *p.Redownload
	}
	if p.Reextract != nil {
		g.Reextract = *p.Reextract
	}
	if p.Reconfigure != nil {
		g.Reconfigure = *p.Reconfigure
	}
	if p.Rebuild != nil {
		g.Rebuild = *p.Rebuild
	}
	if p.BuildDir != nil {
		g.BuildDir = *p.BuildDir
	}
	if p.LogLevel != nil {
		g.LogLevel = *p.LogLevel
	}
}

// partialTaskConf is the pointer twin of TaskConf used for task_defaults and
// tasks: override entries.
type partialTaskConf struct {
	Enabled *bool `yaml:"enabled"`

	NoPull       *bool   `yaml:"no_pull"`
	GitShallow   *bool   `yaml:"git_shallow"`
	GitURLPrefix *string `yaml:"git_url_prefix"`
	GitUser      *string `yaml:"git_user"`
	GitEmail     *string `yaml:"git_email"`

	SetOriginRemote         *bool   `yaml:"set_origin_remote"`
	RemoteOrg               *string `yaml:"remote_org"`
	RemoteKey               *string `yaml:"remote_key"`
	RemoteNoPushUpstream    *bool   `yaml:"remote_no_push_upstream"`
	RemotePushDefaultOrigin *bool   `yaml:"remote_push_default_origin"`

	IgnoreTimestamps *bool `yaml:"ignore_ts"`
	RevertTimestamps *bool `yaml:"revert_ts"`
}

func (p *partialTaskConf) applyTo(tc *TaskConf) {
	if p.Enabled != nil {
		tc.Enabled = *p.Enabled
	}
	if p.NoPull != nil {
		tc.NoPull = *p.NoPull
	}
	if p.GitShallow != nil {
		tc.GitShallow = *p.GitShallow
	}
	if p.GitURLPrefix != nil {
		tc.GitURLPrefix = *p.GitURLPrefix
	}
	if p.GitUser != nil {
		tc.GitUser = *p.GitUser
	}
	if p.GitEmail != nil {
		tc.GitEmail = *p.GitEmail
	}
	if p.SetOriginRemote != nil {
		tc.SetOriginRemote = *p.SetOriginRemote
	}
	if p.RemoteOrg != nil {
		tc.RemoteOrg = *p.RemoteOrg
	}
	if p.RemoteKey != nil {
		tc.RemoteKey = *p.RemoteKey
	}
	if p.RemoteNoPushUpstream != nil {
		tc.RemoteNoPushUpstream = *p.RemoteNoPushUpstream
	}
	if p.RemotePushDefaultOrigin != nil {
		tc.RemotePushDefaultOrigin = *p.RemotePushDefaultOrigin
	}
	if p.IgnoreTimestamps != nil {
		tc.IgnoreTimestamps = *p.IgnoreTimestamps
	}
	if p.RevertTimestamps != nil {
		tc.RevertTimestamps = *p.RevertTimestamps
	}
}

// fileConfig mirrors the top-level structure of mob.yaml.
type fileConfig struct {
	partialGlobals `yaml:",inline"`

	TaskDefaults partialTaskConf    `yaml:"task_defaults"`
	Tasks        []taskOverrideYAML `yaml:"tasks"`
	Sources      []SourceDef        `yaml:"sources"`
}

type taskOverrideYAML struct {
	Pattern         string `yaml:"pattern"`
	partialTaskConf `yaml:",inline"`
}

// Load reads mob.yaml at path. If the file does not exist, defaults are
// returned without error. Override patterns are validated here so a
// malformed glob fails the run before any task starts.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Globals:  defaultGlobals(),
		Defaults: defaultTaskConf(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	fc.partialGlobals.applyTo(&cfg.Globals)
	fc.TaskDefaults.applyTo(&cfg.Defaults)

	for _, o := range fc.Tasks {
		if o.Pattern == "" {
			return nil, fmt.Errorf("%s: tasks entry without a pattern", path)
		}
		if names.HasGlob(o.Pattern) {
			if _, err := names.CompileGlob(o.Pattern); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		cfg.Overrides = append(cfg.Overrides, TaskOverride{
			Pattern: o.Pattern,
			conf:    o.partialTaskConf,
		})
	}

	cfg.Sources = fc.Sources
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.Name == "" {
			return nil, fmt.Errorf("%s: sources entry without a name", path)
		}
		if s.URL == "" && (s.Org == "" || s.Repo == "") {
			return nil, fmt.Errorf("%s: source %q needs url or org+repo", path, s.Name)
		}
		if s.Branch == "" {
			return nil, fmt.Errorf("%s: source %q needs a branch", path, s.Name)
		}
	}

	return cfg, nil
}

// Task resolves the settings for a task identified by its full alias list:
// task_defaults first, then every tasks: entry whose pattern matches any
// alias, in file order. Patterns were validated at load time, so matching
// here cannot fail.
func (c *Config) Task(aliases []string) TaskConf {
	tc := c.Defaults

	for _, o := range c.Overrides {
		if c.overrideMatches(o.Pattern, aliases) {
			o.conf.applyTo(&tc)
		}
	}

	return tc
}

func (c *Config) overrideMatches(pattern string, aliases []string) bool {
	for _, a := range aliases {
		ok, err := names.Match(a, pattern)
		if err != nil {
			// validated in Load; an error here means the Config was built
			// by hand with a bad pattern — treat as non-matching
			return false
		}
		if ok {
			return true
		}
	}
	return false
}
