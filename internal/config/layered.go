// Package config resolves the host's layered configuration: several ordered
// sources merged per key into named sections, read-only after resolution.
package config

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Values is the raw output of one source: section -> key -> value.
// The root section is "".
type Values map[string]map[string]string

func (v Values) Set(section, key, value string) {
	if v[section] == nil {
		v[section] = make(map[string]string)
	}
	v[section][key] = value
}

type entry struct {
	key    string // display name
	value  string
	origin string
}

type section struct {
	name    string
	entries map[string]*entry
}

// Layered is the merged, read-only view over all configuration sources.
// Section and key names compare case-insensitively.
type Layered struct {
	sections map[string]*section
	order    []string
	switches *Switches
	aliases  *AliasTable
	applied  []string
	files    []string
}

func newLayered(sw *Switches, aliases *AliasTable) *Layered {
	return &Layered{
		sections: make(map[string]*section),
		switches: sw,
		aliases:  aliases,
	}
}

func (l *Layered) ensureSection(name string) *section {
	n := norm(name)
	s, ok := l.sections[n]
	if !ok {
		s = &section{name: name, entries: make(map[string]*entry)}
		l.sections[n] = s
		l.order = append(l.order, n)
	}
	return s
}

// merge unions v into l; later calls override earlier ones per key. Names are
// visited in sorted order, so when one source spells a key in two cases the
// lexically last spelling wins on every run.
func (l *Layered) merge(v Values, origin string) {
	for _, secName := range sortedKeys(v) {
		s := l.ensureSection(secName)
		kv := v[secName]
		for _, k := range sortedKeys(kv) {
			val := kv[k]
			if e, ok := s.entries[norm(k)]; ok {
				e.value = val
				e.origin = origin
				continue
			}
			s.entries[norm(k)] = &entry{key: k, value: val, origin: origin}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *Layered) lookup(sec, key string) (*entry, bool) {
	if l == nil {
		return nil, false
	}
	s, ok := l.sections[norm(sec)]
	if !ok {
		return nil, false
	}
	e, ok := s.entries[norm(key)]
	return e, ok
}

// Get returns the value for section/key, or def when either is absent.
func (l *Layered) Get(section, key, def string) string {
	if e, ok := l.lookup(section, key); ok {
		return e.value
	}
	return def
}

// Has reports whether any source defined section/key.
func (l *Layered) Has(section, key string) bool {
	_, ok := l.lookup(section, key)
	return ok
}

// Origin names the source that supplied the winning value.
func (l *Layered) Origin(section, key string) string {
	if e, ok := l.lookup(section, key); ok {
		return e.origin
	}
	return ""
}

// Bool interprets the value through the alias table. Malformed values yield def.
func (l *Layered) Bool(section, key string, def bool) bool {
	e, ok := l.lookup(section, key)
	if !ok {
		return def
	}
	aliases := Aliases
	if l.aliases != nil {
		aliases = l.aliases
	}
	return aliases.AsBool(e.value, def)
}

// Int parses the value as an integer, returning def when absent or malformed.
func (l *Layered) Int(section, key string, def int) int {
	e, ok := l.lookup(section, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(e.value))
	if err != nil {
		return def
	}
	return n
}

// Duration parses the value as a time.Duration; bare integers are seconds.
func (l *Layered) Duration(section, key string, def time.Duration) time.Duration {
	e, ok := l.lookup(section, key)
	if !ok {
		return def
	}
	raw := strings.TrimSpace(e.value)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// Sections lists section names in first-seen order.
func (l *Layered) Sections() []string {
	out := make([]string, 0, len(l.order))
	for _, n := range l.order {
		out = append(out, l.sections[n].name)
	}
	return out
}

// Keys lists the keys defined in a section, sorted.
func (l *Layered) Keys(sec string) []string {
	s, ok := l.sections[norm(sec)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.key)
	}
	sort.Strings(out)
	return out
}

func (l *Layered) Switches() []Switch {
	return l.switches.All()
}

// Applied lists the origins of the sources that contributed, lowest first.
func (l *Layered) Applied() []string {
	return append([]string(nil), l.applied...)
}

// Files lists the file paths that were loaded.
func (l *Layered) Files() []string {
	return append([]string(nil), l.files...)
}

// Personal.AI order the ending
