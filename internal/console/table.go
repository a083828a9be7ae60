package console

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/turtacn/simhost/pkg/protocol"
)

type origins interface {
	Origin(section, key string) string
}

// RenderConfig writes every section and key of cfg as a table. When cfg can
// tell where a value came from, a Source column is added.
func RenderConfig(w io.Writer, cfg protocol.ConfigView) {
	o, withOrigin := cfg.(origins)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := table.Row{"Section", "Key", "Value"}
	if withOrigin {
		header = append(header, "Source")
	}
	t.AppendHeader(header)

	for _, sec := range cfg.Sections() {
		for _, key := range cfg.Keys(sec) {
			row := table.Row{sec, key, cfg.Get(sec, key, "")}
			if withOrigin {
				row = append(row, o.Origin(sec, key))
			}
			t.AppendRow(row)
		}
		t.AppendSeparator()
	}
	t.Render()
}

// Personal.AI order the ending
