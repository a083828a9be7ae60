// Package simulator is the reference region engine hosted by simhost. It
// validates its configuration, runs a heartbeat on the host pool and exposes
// a few console commands. Real engines replace it through the engine factory.
package simulator

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
	"github.com/turtacn/simhost/pkg/protocol"
)

const (
	SectionRegion = "Region"

	KeyRegionName   = "name"
	KeyFrameTime    = "frame_time"
	KeyHTTPPort     = "http_listener_port"
	DefaultPhysics  = "ubODE"
	DefaultRegion   = "Sandbox"
	DefaultFrame    = 100 * time.Millisecond
	DefaultHTTPPort = 9000
)

var physicsEngines = map[string]bool{
	"ubode":              true,
	"opendynamicsengine": true,
	"bulletsim":          true,
	"basicphysics":       true,
}

// Simulator implements protocol.Engine.
type Simulator struct {
	hc  protocol.HostContext
	log logger.Logger
	out io.Writer

	region  string
	physics string
	port    int
	frame   time.Duration
	frames  atomic.Int64
	online  atomic.Bool
}

// New returns the engine factory. Console output goes to out.
func New(out io.Writer) protocol.EngineFactory {
	return func(hc protocol.HostContext) (protocol.Engine, error) {
		s := &Simulator{
			hc:  hc,
			log: logger.Or(hc.Logger).With("component", "simulator"),
			out: out,
		}
		if hc.Commands != nil {
			if err := s.registerCommands(hc.Commands); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}

// Startup brings the region online. Headless, it then blocks until ctx is
// cancelled; interactive, it returns and the host runs the console.
func (s *Simulator) Startup(ctx context.Context) error {
	if err := s.load(); err != nil {
		if path, cerr := s.saveCrash(err); cerr != nil {
			s.log.Warn("Simulator: crash report not written", "err", cerr)
		} else if path != "" {
			s.log.Error("Simulator: crash report written", "path", path)
		}
		return err
	}

	if s.hc.Scheduler != nil {
		if err := s.hc.Scheduler.Go(ctx, protocol.IOClass, s.heartbeat); err != nil {
			return fmt.Errorf("start heartbeat: %w", err)
		}
	} else {
		go s.heartbeat(ctx)
	}
	s.online.Store(true)
	s.log.Info("Simulator: region online", "region", s.region, "physics", s.physics, "port", s.port)

	if s.hc.Mode != consts.ModeHeadless {
		return nil
	}
	<-ctx.Done()
	s.online.Store(false)
	s.log.Info("Simulator: region shut down", "region", s.region, "frames", s.frames.Load())
	return nil
}

// load reads and checks the engine settings.
func (s *Simulator) load() error {
	cfg := s.hc.Config
	if cfg == nil {
		return fmt.Errorf("no configuration")
	}

	s.region = cfg.Get(SectionRegion, KeyRegionName, DefaultRegion)
	s.physics = cfg.Get(consts.SectionStartup, consts.KeyPhysics, DefaultPhysics)
	if !physicsEngines[strings.ToLower(s.physics)] {
		return fmt.Errorf("unknown physics engine %q", s.physics)
	}

	port := cfg.Get(consts.SectionNetwork, KeyHTTPPort, strconv.Itoa(DefaultHTTPPort))
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid %s.%s %q", consts.SectionNetwork, KeyHTTPPort, port)
	}
	s.port = p

	s.frame = DefaultFrame
	if raw := cfg.Get(SectionRegion, KeyFrameTime, ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s.%s %q", SectionRegion, KeyFrameTime, raw)
		}
		s.frame = d
	}
	return nil
}

func (s *Simulator) heartbeat(ctx context.Context) {
	t := time.NewTicker(s.frame)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.frames.Add(1)
		}
	}
}

// Frames is the number of heartbeat frames run so far.
func (s *Simulator) Frames() int64 { return s.frames.Load() }

func (s *Simulator) Online() bool { return s.online.Load() }

// Personal.AI order the ending
