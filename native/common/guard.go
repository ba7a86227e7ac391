package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switch for a named module. The state manager
// implements it so engines can consult the durable flag without owning it.
type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
