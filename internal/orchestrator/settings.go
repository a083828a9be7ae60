package orchestrator

import (
	"github.com/turtacn/simhost/internal/config"
	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
)

var startupFlags = []string{
	consts.KeyBackground,
	consts.KeyGUI,
	consts.KeySaveCrashes,
}

var startupSwitches = []string{
	consts.KeyIniFile,
	consts.KeyIniMaster,
	consts.KeyIniDirectory,
	consts.KeySettings,
	consts.KeyPhysics,
	consts.KeyConsole,
	consts.KeyCrashDir,
	consts.KeyLogConfig,
}

var hostSections = []string{consts.SectionStartup, consts.SectionNetwork, consts.SectionStandAlone}

// Defaults returns the host defaults, the lowest configuration layer.
func Defaults() config.Values {
	v := config.Values{}
	v.Set(consts.SectionStartup, consts.KeyBackground, "false")
	v.Set(consts.SectionStartup, consts.KeySaveCrashes, "false")
	v.Set(consts.SectionStartup, consts.KeyCrashDir, consts.DefaultCrashDir)
	v.Set(consts.SectionStartup, consts.KeyIniDirectory, ".")
	v.Set(consts.SectionStartup, consts.KeyIniMaster, consts.DefaultIniMaster)
	v.Set(consts.SectionStartup, consts.KeyIniFile, consts.DefaultIniFile)
	v.Set(consts.SectionStartup, consts.KeySettings, consts.DefaultSettingsFile)
	v.Set(consts.SectionStartup, consts.KeyConsole, consts.DefaultConsole)
	v.Set(consts.SectionStartup, consts.KeyPrompt, consts.DefaultPrompt)
	v.Set(consts.SectionStartup, consts.KeyWatchConfig, "true")
	v.Set(consts.SectionStartup, consts.KeyShutdownTimeout, consts.DefaultShutdownTimeout.String())
	return v
}

// NewResolver returns a resolver that knows the host switches and sections.
func NewResolver(log logger.Logger) *config.Resolver {
	r := config.NewResolver(log).WithAliases(config.Aliases)
	for _, k := range startupFlags {
		r.AddFlagSwitch(consts.SectionStartup, k)
	}
	for _, k := range startupSwitches {
		r.AddSwitch(consts.SectionStartup, k)
	}
	for _, s := range hostSections {
		r.AddSection(s)
	}
	return r
}

// FileLocations reads the configuration file locations from a bootstrap view.
func FileLocations(boot *config.Layered) config.Locations {
	return config.Locations{
		Dir:      boot.Get(consts.SectionStartup, consts.KeyIniDirectory, "."),
		Master:   boot.Get(consts.SectionStartup, consts.KeyIniMaster, consts.DefaultIniMaster),
		Override: boot.Get(consts.SectionStartup, consts.KeyIniFile, consts.DefaultIniFile),
		Settings: boot.Get(consts.SectionStartup, consts.KeySettings, consts.DefaultSettingsFile),
	}
}

// ResolveConfig builds the layered configuration from the standard sources.
func ResolveConfig(args []string, envPrefix string, log logger.Logger) (*config.Layered, error) {
	return resolve(NewResolver(log), args, envPrefix, nil)
}

// resolve runs a bootstrap pass over defaults, environment and arguments to
// find the files, then the full resolution.
func resolve(r *config.Resolver, args []string, envPrefix string, override func(*config.Layered) []config.Source) (*config.Layered, error) {
	boot, err := r.Resolve(
		config.DefaultsSource{Values: Defaults()},
		config.EnvSource{Prefix: envPrefix},
		config.ArgsSource{Args: args},
	)
	if err != nil {
		return nil, err
	}

	var sources []config.Source
	if override != nil {
		sources = override(boot)
	} else {
		sources = config.StandardSources(Defaults(), FileLocations(boot), envPrefix, args)
	}
	return r.Resolve(sources...)
}

// Personal.AI order the ending
