package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// ArgsSource reads the command line. A declared switch is accepted as
// --key=value or --key value. A boolean switch may also be given bare, meaning
// "true", and then takes a following boolean literal as its value.
// --set section.key=value sets any key. Unknown flags and positional
// arguments are ignored.
type ArgsSource struct {
	Args []string
}

func (ArgsSource) Kind() Kind     { return KindArgs }
func (ArgsSource) Origin() string { return "args" }
func (ArgsSource) Optional() bool { return true }

func (a ArgsSource) Load(sw *Switches) (Values, error) {
	fs := pflag.NewFlagSet("simhost", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	values := make(map[string]*string)
	owners := make(map[string]string)
	for _, s := range sw.All() {
		name := norm(s.Key)
		if _, dup := values[name]; dup {
			continue
		}
		v := fs.String(name, "", fmt.Sprintf("%s.%s", s.Section, s.Key))
		if s.Flag {
			fs.Lookup(name).NoOptDefVal = "true"
		}
		values[name] = v
		owners[name] = s.Section
	}
	sets := fs.StringArray("set", nil, "section.key=value")

	if err := fs.Parse(joinFlagValues(a.Args, sw)); err != nil {
		return nil, err
	}

	out := make(Values)
	fs.Visit(func(f *pflag.Flag) {
		if v, ok := values[f.Name]; ok {
			out.Set(owners[f.Name], f.Name, *v)
		}
	})
	for _, kv := range *sets {
		sec, key, val, err := splitAssignment(kv, sw)
		if err != nil {
			return nil, err
		}
		out.Set(sec, key, val)
	}
	return out, nil
}

// joinFlagValues rewrites "--flag literal" into "--flag=literal" for boolean
// switches, so pflag does not read the literal as a positional argument.
func joinFlagValues(args []string, sw *Switches) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, ok := strings.CutPrefix(arg, "--")
		if ok && !strings.Contains(name, "=") && sw.IsFlag(name) &&
			i+1 < len(args) && Aliases.IsToken(args[i+1]) {
			out = append(out, arg+"="+args[i+1])
			i++
			continue
		}
		out = append(out, arg)
	}
	return out
}

// splitAssignment parses section.key=value or section:key=value.
func splitAssignment(kv string, sw *Switches) (string, string, string, error) {
	name, val, ok := strings.Cut(kv, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return "", "", "", fmt.Errorf("--set %q: want section.key=value", kv)
	}
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		return name[:i], name[i+1:], val, nil
	}
	sec, _ := sw.SectionFor(name)
	return sec, name, val, nil
}

// Personal.AI order the ending
