package console

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/turtacn/simhost/pkg/protocol"
)

type readResult struct {
	line string
	err  error
}

// pump moves blocking reads onto a goroutine so Next can honor ctx.
type pump struct {
	read func() (string, error)

	once   sync.Once
	ch     chan readResult
	done   chan struct{}
	closed sync.Once
}

func newPump(read func() (string, error)) *pump {
	return &pump{read: read, done: make(chan struct{})}
}

func (p *pump) next(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.ch = make(chan readResult)
		go p.run()
	})
	select {
	case r, ok := <-p.ch:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.done:
		return "", io.EOF
	}
}

func (p *pump) run() {
	defer close(p.ch)
	for {
		line, err := p.read()
		select {
		case p.ch <- readResult{line: line, err: err}:
		case <-p.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *pump) close() {
	p.closed.Do(func() { close(p.done) })
}

// LineReader reads one command per line from any io.Reader. It backs the
// "basic" console and piped stdin.
type LineReader struct {
	p *pump
}

func NewLineReader(r io.Reader) *LineReader {
	sc := bufio.NewScanner(r)
	return &LineReader{p: newPump(func() (string, error) {
		if sc.Scan() {
			return sc.Text(), nil
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	})}
}

func (l *LineReader) Next(ctx context.Context) (protocol.Command, error) {
	line, err := l.p.next(ctx)
	if err != nil {
		return protocol.Command{}, err
	}
	return Parse(line), nil
}

func (l *LineReader) Close() error {
	l.p.close()
	return nil
}

// Personal.AI order the ending
