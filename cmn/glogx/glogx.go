// Package glogx adds the small set of conveniences the teacher codebase
// layers on top of github.com/golang/glog (module verbosity gating via a
// "smodule" tag) without vendoring a fork of glog itself.
package glogx

import "github.com/golang/glog"

// Smodule identifies the subsystem a verbose log line belongs to, mirroring
// the teacher's glog.SmoduleAIS-style constants.
type Smodule int

const (
	SmoduleFetch Smodule = iota
	SmoduleParser
	SmoduleRuleset
	SmoduleEmit
	SmoduleScript
	SmoduleFacade
)

// FastV reports whether verbose logging at level v is enabled; module is
// currently advisory (kept for parity with the teacher's per-module gate,
// wired to glog's single global verbosity).
func FastV(v glog.Level, module Smodule) bool {
	return bool(glog.V(v))
}
