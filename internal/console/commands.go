package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/turtacn/simhost/pkg/protocol"
)

// ErrUnknownCommand is returned by Dispatch for lines matching no command.
var ErrUnknownCommand = fmt.Errorf("unknown command")

// Commands is the console command registry. Names may span several words
// ("show config"); dispatch picks the longest registered prefix of a line.
type Commands struct {
	mu    sync.RWMutex
	specs map[string]*protocol.CommandSpec
	names map[string]string // alias or name -> canonical name
	out   io.Writer
}

func NewCommands(out io.Writer) *Commands {
	if out == nil {
		out = os.Stdout
	}
	c := &Commands{
		specs: make(map[string]*protocol.CommandSpec),
		names: make(map[string]string),
		out:   out,
	}
	_ = c.Register(protocol.CommandSpec{
		Name:    "help",
		Aliases: []string{"?"},
		Help:    "List available commands",
		Run: func(context.Context, []string) error {
			c.PrintHelp()
			return nil
		},
	})
	return c
}

func (c *Commands) Out() io.Writer { return c.out }

func (c *Commands) Register(spec protocol.CommandSpec) error {
	name := canonical(spec.Name)
	if name == "" || spec.Run == nil {
		return fmt.Errorf("command needs a name and a handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.names[name]; dup {
		return fmt.Errorf("command %q already registered", name)
	}
	s := spec
	s.Name = name
	c.specs[name] = &s
	c.names[name] = name
	for _, a := range spec.Aliases {
		c.names[canonical(a)] = name
	}
	return nil
}

// Dispatch runs the command named by the longest matching prefix of cmd.Line.
func (c *Commands) Dispatch(ctx context.Context, cmd protocol.Command) error {
	words := strings.Fields(cmd.Line)
	if len(words) == 0 {
		return nil
	}

	c.mu.RLock()
	var spec *protocol.CommandSpec
	var args []string
	for i := len(words); i > 0; i-- {
		if name, ok := c.names[canonical(strings.Join(words[:i], " "))]; ok {
			spec, args = c.specs[name], words[i:]
			break
		}
	}
	c.mu.RUnlock()

	if spec == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, words[0])
	}
	return spec.Run(ctx, args)
}

// PrintHelp writes the command table.
func (c *Commands) PrintHelp() {
	c.mu.RLock()
	specs := make([]*protocol.CommandSpec, 0, len(c.specs))
	for _, s := range c.specs {
		specs = append(specs, s)
	}
	c.mu.RUnlock()
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Command", "Usage", "Description"})
	for _, s := range specs {
		usage := s.Usage
		if usage == "" {
			usage = s.Name
		}
		t.AppendRow(table.Row{s.Name, usage, s.Help})
	}
	t.Render()
}

// Completer builds a readline prefix completer from the registered names.
func (c *Commands) Completer() *readline.PrefixCompleter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	root := readline.NewPrefixCompleter()
	for name := range c.specs {
		addCompletion(root, strings.Fields(name))
	}
	return root
}

func addCompletion(parent *readline.PrefixCompleter, words []string) {
	if len(words) == 0 {
		return
	}
	for _, child := range parent.GetChildren() {
		if strings.TrimSpace(string(child.GetName())) == words[0] {
			if pc, ok := child.(*readline.PrefixCompleter); ok {
				addCompletion(pc, words[1:])
				return
			}
		}
	}
	item := readline.PcItem(words[0])
	addCompletion(item, words[1:])
	parent.SetChildren(append(parent.GetChildren(), item))
}

// Parse splits a raw line into a Command.
func Parse(line string) protocol.Command {
	words := strings.Fields(line)
	cmd := protocol.Command{Line: strings.TrimSpace(line)}
	if len(words) > 0 {
		cmd.Name = words[0]
		cmd.Args = words[1:]
	}
	return cmd
}

func canonical(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Personal.AI order the ending
