package control

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/turtacn/simhost/internal/resource"
	herrors "github.com/turtacn/simhost/pkg/errors"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

const (
	CommandStop   = "stop"
	CommandStatus = "status"
)

// Handler is the lifecycle side of the control socket.
type Handler interface {
	// RequestStop fires the host stop signal.
	RequestStop()
	Status() protocol.ControlResponse
}

// Server accepts newline-delimited JSON requests on a unix socket.
type Server struct {
	socketPath string
	h          Handler
	log        logger.Logger
	wg         sync.WaitGroup
}

func NewServer(path string, h Handler, log logger.Logger) *Server {
	return &Server{socketPath: path, h: h, log: logger.Or(log)}
}

// Serve listens on the socket path (claiming a socket-activated one when
// present) and blocks until ctx ends. The socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	ls := resource.NewListeners(s.log)
	defer ls.Close()
	l, err := ls.EnsureListener("unix", s.socketPath)
	if err != nil {
		return herrors.New(herrors.ErrCodeControl, "Serve", "cannot listen on "+s.socketPath, err)
	}
	return s.ServeListener(ctx, l)
}

// ServeListener accepts on l until ctx ends, then closes l and waits for the
// open connections.
func (s *Server) ServeListener(ctx context.Context, l net.Listener) error {
	s.log.Info("Control: listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.log.Warn("Control: accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for ctx.Err() == nil {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var req protocol.ControlRequest
		if err := dec.Decode(&req); err != nil {
			return
		}
		if err := enc.Encode(s.dispatch(req)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req protocol.ControlRequest) protocol.ControlResponse {
	switch req.Command {
	case CommandStop:
		s.log.Info("Control: stop requested")
		s.h.RequestStop()
		resp := s.h.Status()
		resp.OK = true
		return resp
	case CommandStatus:
		resp := s.h.Status()
		resp.OK = true
		return resp
	default:
		resp := s.h.Status()
		resp.OK = false
		resp.Error = "unknown command " + req.Command
		return resp
	}
}

// Send dials the control socket, issues one command and returns the reply.
func Send(ctx context.Context, path, command string) (protocol.ControlResponse, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return protocol.ControlResponse{}, herrors.New(herrors.ErrCodeControl, "Send", "cannot reach "+path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(protocol.ControlRequest{Command: command}); err != nil {
		return protocol.ControlResponse{}, err
	}
	var resp protocol.ControlResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return protocol.ControlResponse{}, err
	}
	return resp, nil
}

// Personal.AI order the ending
