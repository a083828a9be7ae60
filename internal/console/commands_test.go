package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/simhost/pkg/protocol"
)

func TestCommands_LongestPrefixDispatch(t *testing.T) {
	c := NewCommands(&bytes.Buffer{})
	var got []string
	require.NoError(t, c.Register(protocol.CommandSpec{Name: "show", Run: func(_ context.Context, args []string) error {
		got = append(got, "show:"+strings.Join(args, ","))
		return nil
	}}))
	require.NoError(t, c.Register(protocol.CommandSpec{Name: "show config", Aliases: []string{"cfg"}, Run: func(_ context.Context, args []string) error {
		got = append(got, "config:"+strings.Join(args, ","))
		return nil
	}}))

	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, Parse("show config Startup")))
	require.NoError(t, c.Dispatch(ctx, Parse("  SHOW   uptime ")))
	require.NoError(t, c.Dispatch(ctx, Parse("cfg")))
	require.NoError(t, c.Dispatch(ctx, Parse("")))

	assert.Equal(t, []string{"config:Startup", "show:uptime", "config:"}, got)
}

func TestCommands_UnknownAndHandlerErrors(t *testing.T) {
	c := NewCommands(&bytes.Buffer{})
	boom := errors.New("boom")
	require.NoError(t, c.Register(protocol.CommandSpec{Name: "fail", Run: func(context.Context, []string) error { return boom }}))

	assert.ErrorIs(t, c.Dispatch(context.Background(), Parse("nope")), ErrUnknownCommand)
	assert.ErrorIs(t, c.Dispatch(context.Background(), Parse("fail now")), boom)
}

func TestCommands_RegisterValidation(t *testing.T) {
	c := NewCommands(nil)
	assert.Error(t, c.Register(protocol.CommandSpec{Name: "", Run: func(context.Context, []string) error { return nil }}))
	assert.Error(t, c.Register(protocol.CommandSpec{Name: "x"}))
	assert.Error(t, c.Register(protocol.CommandSpec{Name: "HELP", Run: func(context.Context, []string) error { return nil }}))
}

func TestCommands_HelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	c := NewCommands(&out)
	require.NoError(t, c.Register(protocol.CommandSpec{Name: "show uptime", Help: "Show how long the host has run", Run: func(context.Context, []string) error { return nil }}))

	require.NoError(t, c.Dispatch(context.Background(), Parse("help")))
	assert.Contains(t, out.String(), "show uptime")
	assert.Contains(t, out.String(), "Show how long the host has run")
}

func TestCommands_Completer(t *testing.T) {
	c := NewCommands(&bytes.Buffer{})
	for _, n := range []string{"show config", "show uptime", "quit"} {
		require.NoError(t, c.Register(protocol.CommandSpec{Name: n, Run: func(context.Context, []string) error { return nil }}))
	}
	root := c.Completer()

	var show int
	for _, child := range root.GetChildren() {
		if strings.TrimSpace(string(child.GetName())) == "show" {
			show++
			assert.Len(t, child.GetChildren(), 2)
		}
	}
	assert.Equal(t, 1, show)
	assert.Len(t, root.GetChildren(), 3)
}

func TestParse(t *testing.T) {
	cmd := Parse("  show config  Startup ")
	assert.Equal(t, "show config  Startup", cmd.Line)
	assert.Equal(t, "show", cmd.Name)
	assert.Equal(t, []string{"config", "Startup"}, cmd.Args)
	assert.Equal(t, protocol.Command{Line: ""}, Parse("   "))
}

// Personal.AI order the ending
