package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// INIFileSource loads an INI file. Keys before the first section header land
// in the root section.
type INIFileSource struct {
	fileSource
}

func NewINIFile(path string, optional bool) INIFileSource {
	return INIFileSource{fileSource{path: path, optional: optional}}
}

func (INIFileSource) Kind() Kind       { return KindINI }
func (s INIFileSource) Origin() string { return "ini:" + s.path }

func (s INIFileSource) Load(*Switches) (Values, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:    true,
		IgnoreInlineComment: false,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	out := make(Values)
	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection {
			name = ""
		}
		for _, k := range sec.Keys() {
			out.Set(name, k.Name(), k.Value())
		}
	}
	return out, nil
}

// StructuredFileSource loads a YAML, JSON or TOML document. Top-level maps are
// sections; deeper nesting is flattened with ":" and list items by index.
type StructuredFileSource struct {
	fileSource
}

func NewStructuredFile(path string, optional bool) StructuredFileSource {
	return StructuredFileSource{fileSource{path: path, optional: optional}}
}

func (StructuredFileSource) Kind() Kind       { return KindStructured }
func (s StructuredFileSource) Origin() string { return "file:" + s.path }

func (s StructuredFileSource) Load(*Switches) (Values, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}

	doc := make(map[string]any)
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
	case ".yaml", ".yml", ".json":
		// JSON is a YAML subset.
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format %q", ext)
	}

	out := make(Values)
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			for sk, sv := range m {
				flatten(out, k, sk, sv)
			}
			continue
		}
		flatten(out, "", k, v)
	}
	return out, nil
}

func flatten(out Values, sec, key string, v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, sv := range t {
			flatten(out, sec, key+":"+k, sv)
		}
	case []any:
		for i, sv := range t {
			flatten(out, sec, fmt.Sprintf("%s:%d", key, i), sv)
		}
	case []map[string]any:
		for i, sv := range t {
			flatten(out, sec, fmt.Sprintf("%s:%d", key, i), sv)
		}
	case nil:
		out.Set(sec, key, "")
	default:
		out.Set(sec, key, fmt.Sprint(t))
	}
}

// Personal.AI order the ending
