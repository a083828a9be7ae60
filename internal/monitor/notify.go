package monitor

import (
	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/turtacn/simhost/pkg/consts"
	"github.com/turtacn/simhost/pkg/logger"
)

// Notify tells a supervising service manager about lifecycle changes.
// Without NOTIFY_SOCKET it does nothing.
func Notify(state consts.LifecycleState) {
	var msg string
	switch state {
	case consts.StateRunning:
		msg = daemon.SdNotifyReady
	case consts.StateStopping:
		msg = daemon.SdNotifyStopping
	default:
		return
	}
	sent, err := daemon.SdNotify(false, msg)
	if err != nil {
		logger.Log.Warn("Monitor: service manager notify failed", "state", state, "err", err)
		return
	}
	if sent {
		logger.Log.Debug("Monitor: service manager notified", "state", state)
	}
}

// Personal.AI order the ending
