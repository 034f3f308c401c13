package sessions

import "sync"

// NamespaceKey is the Values key holding the session's current namespace.
const NamespaceKey = "namespace"

// DefaultNamespace is reported when no namespace has been selected.
const DefaultNamespace = "default"

// Values is a small string-keyed bag of session context. Dispatch is
// sequential, but asynchronous tool handlers may touch Values from their own
// goroutine, so access is serialized.
type Values struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewValues returns an empty Values.
func NewValues() *Values {
	return &Values{m: make(map[string]any)}
}

// Get returns the value stored under key.
func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[key]
	return val, ok
}

// GetString returns the value under key when it is a string.
func (v *Values) GetString(key string) (string, bool) {
	val, ok := v.Get(key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Set stores val under key, replacing any previous value.
func (v *Values) Set(key string, val any) {
	v.mu.Lock()
	v.m[key] = val
	v.mu.Unlock()
}

// Delete removes key.
func (v *Values) Delete(key string) {
	v.mu.Lock()
	delete(v.m, key)
	v.mu.Unlock()
}

// Namespace returns the current namespace, or DefaultNamespace.
func (v *Values) Namespace() string {
	if ns, ok := v.GetString(NamespaceKey); ok && ns != "" {
		return ns
	}
	return DefaultNamespace
}

// SetNamespace selects the current namespace.
func (v *Values) SetNamespace(ns string) {
	v.Set(NamespaceKey, ns)
}
