//go:build !linux

package main

import (
	"os"
	"runtime"
	"slices"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	args := os.Args[1:]
	// fyne drives the main thread itself.
	if slices.Contains(args, "-gui") {
		os.Exit(run(args))
	}
	code := 0
	mainthread.Init(func() { code = run(args) })
	os.Exit(code)
}
