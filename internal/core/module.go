package core

// ModuleID uniquely identifies a module, namespaced by concern
// (e.g. "store.sqlite", "media.ytdlp", "gateway.http").
type ModuleID string

// Namespace returns the portion of the ID before the first dot.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// Module is the minimal interface every module implements. Lifecycle
// behaviour is added through the optional interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}
