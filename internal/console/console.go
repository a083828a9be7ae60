package console

import (
	"context"
	"fmt"

	"github.com/chzyer/readline"

	"github.com/turtacn/simhost/pkg/protocol"
)

// Config configures the interactive readline console.
type Config struct {
	Prompt      string
	HistoryFile string
	Commands    *Commands
	// OnInterrupt runs when Ctrl+C is pressed on an empty line.
	OnInterrupt func()
}

// Console is the local interactive command reader.
type Console struct {
	rl *readline.Instance
	p  *pump
}

func New(cfg Config) (*Console, error) {
	rc := &readline.Config{
		Prompt:            cfg.Prompt,
		HistoryFile:       cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}
	if cfg.Commands != nil {
		rc.AutoComplete = cfg.Commands.Completer()
	}
	rl, err := readline.NewEx(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}

	c := &Console{rl: rl}
	c.p = newPump(func() (string, error) {
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				if len(line) == 0 && cfg.OnInterrupt != nil {
					cfg.OnInterrupt()
				}
				continue
			}
			return line, err
		}
	})
	return c, nil
}

func (c *Console) Next(ctx context.Context) (protocol.Command, error) {
	line, err := c.p.next(ctx)
	if err != nil {
		return protocol.Command{}, err
	}
	return Parse(line), nil
}

// Close releases the terminal and unblocks a pending Next.
func (c *Console) Close() error {
	c.p.close()
	return c.rl.Close()
}

// Personal.AI order the ending
