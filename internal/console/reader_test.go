package console

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadsUntilEOF(t *testing.T) {
	r := NewLineReader(strings.NewReader("show config\nquit\n"))
	ctx := context.Background()

	cmd, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "show", cmd.Name)

	cmd, err = r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quit", cmd.Name)

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader_CancelWhileBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewLineReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, r.Close())
	_, err = r.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

// Personal.AI order the ending
