//go:build !linux
// +build !linux

package sdnotify

func Ready()    {}
func Stopping() {}
