package common

import "errors"

// ErrModulePaused rejects state-mutating operations while a module is paused.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the owner-controlled pause switches.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when the named module is paused. A nil view or
// empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
