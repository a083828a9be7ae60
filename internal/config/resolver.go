package config

import (
	"errors"
	"io/fs"

	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/logger"
)

// Resolver merges sources into a Layered configuration. Switches and sections
// must be declared before Resolve.
type Resolver struct {
	switches *Switches
	sections []string
	aliases  *AliasTable
	log      logger.Logger
}

func NewResolver(log logger.Logger) *Resolver {
	return &Resolver{
		switches: NewSwitches(),
		log:      logger.Or(log),
	}
}

func (r *Resolver) AddSwitch(section, key string) {
	r.switches.Add(section, key)
}

// AddFlagSwitch declares a boolean switch; on the command line it may be
// given bare or followed by a boolean literal.
func (r *Resolver) AddFlagSwitch(section, key string) {
	r.switches.AddFlag(section, key)
}

// AddSection declares a section so it is listed even when no source fills it.
func (r *Resolver) AddSection(name string) {
	r.sections = append(r.sections, name)
}

// WithAliases sets the alias table used by boolean lookups on the result.
func (r *Resolver) WithAliases(t *AliasTable) *Resolver {
	r.aliases = t
	return r
}

func (r *Resolver) Switches() *Switches {
	return r.switches
}

// Resolve applies sources in increasing precedence. A missing required source
// fails with ErrCodeConfigLoad; a missing optional source is skipped.
func (r *Resolver) Resolve(sources ...Source) (*Layered, error) {
	l := newLayered(r.switches, r.aliases)
	for _, name := range r.sections {
		l.ensureSection(name)
	}

	for _, src := range sources {
		v, err := src.Load(r.switches)
		if err != nil {
			if src.Optional() && errors.Is(err, fs.ErrNotExist) {
				r.log.Debug("Config: optional source absent, skipping", "source", src.Origin())
				continue
			}
			return nil, herrors.New(herrors.ErrCodeConfigLoad, "Resolve", "cannot load "+src.Origin(), err)
		}
		l.merge(v, src.Origin())
		l.applied = append(l.applied, src.Origin())
		if fsrc, ok := src.(FileSource); ok {
			l.files = append(l.files, fsrc.Path())
		}
		r.log.Debug("Config: source applied", "source", src.Origin(), "sections", len(v))
	}
	return l, nil
}

// Personal.AI order the ending
