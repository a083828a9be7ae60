package config

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/simhost/pkg/logger"
)

func TestWatcher_ReportsChange(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "Host.ini", "[Startup]\n")
	writeFile(t, dir, "unrelated.txt", "x")

	var changes atomic.Int32
	w := NewWatcher([]string{p}, func(string) { changes.Add(1) }, logger.Discard())
	w.debounce = 20 * time.Millisecond
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(p, []byte("[Startup]\nbackground = true\n"), 0o644))
	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "Host.ini", "")
	w := NewWatcher([]string{p}, nil, logger.Discard())
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
}

// Personal.AI order the ending
