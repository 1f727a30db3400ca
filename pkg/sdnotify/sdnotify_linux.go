//go:build linux
// +build linux

// Package sdnotify reports readiness to systemd when the bot runs as a
// notify-type unit. Outside systemd every call is a silent no-op.
package sdnotify

import "github.com/coreos/go-systemd/v22/daemon"

func Ready() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

func Stopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}
