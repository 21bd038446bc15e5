package models

import (
	"time"
)

// Action is the catalog entry for a function, keyed by (namespace, name) and
// versioned by an immutable revision stamp. Entries fetched under a concrete
// revision never change and are safe to cache.
type Action struct {
	ID          int64                  `json:"id"`
	Namespace   string                 `json:"namespace"`
	Name        string                 `json:"name"`
	Revision    string                 `json:"revision"`
	Runtime     string                 `json:"runtime"`
	CodeKey     string                 `json:"code_key,omitempty"`
	Code        string                 `json:"code,omitempty"`
	MemoryMB    int                    `json:"memory_mb"`
	TimeoutMs   int                    `json:"timeout_ms"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// FullyQualified returns the namespace-qualified action name.
func (a *Action) FullyQualified() string {
	return a.Namespace + "/" + a.Name
}

// Executable reports whether the catalog entry has a concrete runnable form.
// Metadata-only stubs have no runtime or code artifact; one of those reaching
// the dispatch pipeline is a catalog-consistency violation, not a normal
// rejection.
func (a *Action) Executable() bool {
	return a.Runtime != "" && a.CodeKey != ""
}
