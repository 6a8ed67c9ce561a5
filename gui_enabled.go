//go:build gui

package main

import (
	"os"

	"wisp/gui"
	"wisp/log"
	"wisp/recorder"
	"wisp/shutdown"
)

func runGUI(e *env) error {
	a := gui.New()
	ctl := e.controller(a, a.Scheduler(), nil)
	a.Bind(ctl)

	stopHotkey := e.watchHotkey(ctl, recorder.WithLevel(a.SetLevel))
	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		<-sig
		a.Quit()
	}()

	log.SessionStart("gui", ctl.Settings().Engine, frontendModel(ctl))
	a.Run()
	stopHotkey()
	ctl.Close()
	log.SessionEnd(ctl.Count())
	return nil
}
