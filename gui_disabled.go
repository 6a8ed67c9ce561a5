//go:build !gui

package main

import "errors"

func runGUI(*env) error {
	return errors.New("built without GUI support (rebuild with -tags gui)")
}
