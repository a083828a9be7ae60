package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies the origin family of a source.
type Kind string

const (
	KindDefaults   Kind = "defaults"
	KindINI        Kind = "ini"
	KindStructured Kind = "structured"
	KindEnv        Kind = "env"
	KindArgs       Kind = "args"
)

// Source is one ordered origin of key/value data.
type Source interface {
	Kind() Kind
	Origin() string
	Optional() bool
	Load(sw *Switches) (Values, error)
}

// FileSource is implemented by sources backed by a file on disk.
type FileSource interface {
	Path() string
}

// DefaultsSource supplies built-in host defaults.
type DefaultsSource struct {
	Values Values
}

func (DefaultsSource) Kind() Kind     { return KindDefaults }
func (DefaultsSource) Origin() string { return "defaults" }
func (DefaultsSource) Optional() bool { return true }
func (d DefaultsSource) Load(*Switches) (Values, error) {
	out := make(Values, len(d.Values))
	for sec, kv := range d.Values {
		for k, v := range kv {
			out.Set(sec, k, v)
		}
	}
	return out, nil
}

// EnvSource reads PREFIX_SECTION__KEY variables. A variable without "__"
// lands in the section that declared the key, or the root section.
type EnvSource struct {
	Prefix  string
	Environ func() []string
}

func (e EnvSource) Kind() Kind     { return KindEnv }
func (e EnvSource) Origin() string { return "env:" + e.Prefix }
func (e EnvSource) Optional() bool { return true }

func (e EnvSource) Load(sw *Switches) (Values, error) {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}
	out := make(Values)
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(e.Prefix)) {
			continue
		}
		rest := name[len(e.Prefix):]
		if rest == "" {
			continue
		}
		sec, key, nested := strings.Cut(rest, "__")
		if !nested {
			key = rest
			sec, _ = sw.SectionFor(key)
		}
		out.Set(sec, strings.ToLower(key), value)
	}
	return out, nil
}

// fileSource carries what every file-backed source shares.
type fileSource struct {
	path     string
	optional bool
}

func (f fileSource) Path() string   { return f.path }
func (f fileSource) Optional() bool { return f.optional }

func (f fileSource) read() ([]byte, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", f.path, fs.ErrNotExist)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", f.path)
	}
	return os.ReadFile(f.path)
}

// Locations says where the file sources live.
type Locations struct {
	Dir      string
	Master   string // required base INI file
	Override string // optional INI override
	Settings string // optional structured file
}

func (loc Locations) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || loc.Dir == "" {
		return name
	}
	return filepath.Join(loc.Dir, name)
}

// StandardSources returns the documented precedence order: defaults < base
// INI < override INI < structured file < environment < command line.
func StandardSources(defaults Values, loc Locations, envPrefix string, args []string) []Source {
	return []Source{
		DefaultsSource{Values: defaults},
		NewINIFile(loc.resolve(loc.Master), false),
		NewINIFile(loc.resolve(loc.Override), true),
		NewStructuredFile(loc.resolve(loc.Settings), true),
		EnvSource{Prefix: envPrefix},
		ArgsSource{Args: args},
	}
}

// Personal.AI order the ending
