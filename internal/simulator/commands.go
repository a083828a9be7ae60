package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/turtacn/simhost/internal/console"
	"github.com/turtacn/simhost/pkg/protocol"
)

func (s *Simulator) registerCommands(r protocol.Registrar) error {
	specs := []protocol.CommandSpec{
		{Name: "show config", Usage: "show config", Help: "Show the resolved configuration", Run: s.showConfig},
		{Name: "show capacity", Usage: "show capacity", Help: "Show the execution pool ceilings", Run: s.showCapacity},
		{Name: "show uptime", Usage: "show uptime", Help: "Show how long the host has run", Run: s.showUptime},
		{Name: "show info", Usage: "show info", Help: "Show region and host information", Run: s.showInfo},
		{Name: "quit", Aliases: []string{"shutdown"}, Usage: "quit", Help: "Stop the host", Run: s.quit},
	}
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) showConfig(context.Context, []string) error {
	if s.hc.Config == nil {
		return fmt.Errorf("no configuration")
	}
	console.RenderConfig(s.out, s.hc.Config)
	return nil
}

func (s *Simulator) showCapacity(context.Context, []string) error {
	b := s.hc.Budget
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Class", "Min", "Max"})
	t.AppendRow(table.Row{"worker", b.MinWorker, b.MaxWorker})
	t.AppendRow(table.Row{"io", b.MinIO, b.MaxIO})
	t.AppendFooter(table.Row{"applied", b.Applied, ""})
	t.Render()
	return nil
}

func (s *Simulator) showUptime(context.Context, []string) error {
	up := time.Since(s.hc.StartedAt).Round(time.Second)
	fmt.Fprintf(s.out, "Time now is %s\nServer has been running since %s\nThat is an elapsed time of %s\n",
		time.Now().Format(time.RFC1123), s.hc.StartedAt.Format(time.RFC1123), up)
	return nil
}

func (s *Simulator) showInfo(context.Context, []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Run ID", s.hc.RunID},
		{"Mode", s.hc.Mode},
		{"Region", s.region},
		{"Physics", s.physics},
		{"HTTP port", s.port},
		{"Frames", s.frames.Load()},
		{"Online", s.online.Load()},
	})
	t.Render()
	return nil
}

func (s *Simulator) quit(context.Context, []string) error {
	s.log.Info("Simulator: shutdown requested from console")
	if s.hc.RequestStop != nil {
		s.hc.RequestStop()
	}
	return nil
}

// Personal.AI order the ending
