package resource

import (
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/coreos/go-systemd/v22/activation"

	"github.com/turtacn/simhost/pkg/logger"
)

// Listeners hands out the host's network listeners. Sockets passed in by the
// service manager (LISTEN_FDS) are claimed by address before anything new is
// bound, so a socket-activated host keeps its endpoints across restarts.
type Listeners struct {
	mu  sync.Mutex
	log logger.Logger

	// Active listeners keyed by canonical address
	listeners map[string]net.Listener
	// Inherited but not yet claimed listeners
	inherited map[string]net.Listener

	discovered bool
	activate   func() ([]net.Listener, error)
}

func NewListeners(log logger.Logger) *Listeners {
	return &Listeners{
		log:       logger.Or(log),
		listeners: make(map[string]net.Listener),
		inherited: make(map[string]net.Listener),
		activate:  activation.Listeners,
	}
}

// canonicalKey maps equivalent addresses to one key: every unspecified TCP
// host becomes ":port" and unix paths are cleaned and made absolute.
func canonicalKey(network, addr string) string {
	switch network {
	case "unix":
		if abs, err := filepath.Abs(addr); err == nil {
			addr = abs
		}
		return "unix:" + filepath.Clean(addr)
	default:
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return "tcp:" + addr
		}
		if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
			host = ""
		}
		return "tcp:" + net.JoinHostPort(host, port)
	}
}

func (ls *Listeners) discoverInherited() {
	if ls.discovered {
		return
	}
	ls.discovered = true

	inherited, err := ls.activate()
	if err != nil {
		ls.log.Warn("Listeners: cannot read activated sockets", "err", err)
		return
	}
	for _, l := range inherited {
		// activation leaves nil entries for descriptors that are not listeners
		if l == nil {
			continue
		}
		key := canonicalKey(l.Addr().Network(), l.Addr().String())
		ls.inherited[key] = l
		ls.log.Info("Listeners: discovered activated socket", "addr", key)
	}
}

// EnsureListener returns the listener for addr: the active one, an inherited
// one, or a freshly bound one. A stale unix socket file is replaced and the
// new socket is only accessible by its owner.
func (ls *Listeners) EnsureListener(network, addr string) (net.Listener, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	key := canonicalKey(network, addr)
	if l, ok := ls.listeners[key]; ok {
		return l, nil
	}

	ls.discoverInherited()
	if l, ok := ls.inherited[key]; ok {
		ls.log.Info("Listeners: claiming activated socket", "addr", key)
		ls.listeners[key] = l
		delete(ls.inherited, key)
		return l, nil
	}

	if network == "unix" {
		if _, err := os.Stat(addr); err == nil {
			os.Remove(addr)
		}
	}
	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	if network == "unix" {
		os.Chmod(addr, 0o700)
	}
	ls.log.Debug("Listeners: bound", "addr", key)
	ls.listeners[key] = l
	return l, nil
}

// Close closes every active and unclaimed listener. Unix sockets bound here
// remove their file on close.
func (ls *Listeners) Close() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for _, l := range ls.listeners {
		l.Close()
	}
	for _, l := range ls.inherited {
		l.Close()
	}
	ls.listeners = make(map[string]net.Listener)
	ls.inherited = make(map[string]net.Listener)
}

// Personal.AI order the ending
