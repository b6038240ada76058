// Package session carries who the current user is. It replaces ambient "current user"
// globals: components that persist per-user state receive a Context explicitly.
package session

import "strings"

// Context identifies the signed-in user. The zero value is anonymous.
type Context struct {
	display string
	id      string
}

// Normalize turns a typed username into its document identifier.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// New returns a context for the user who typed raw. Blank input yields an anonymous context.
func New(raw string) Context {
	display := strings.TrimSpace(raw)
	return Context{display: display, id: Normalize(display)}
}

// Anonymous returns the context used before anyone signs in.
func Anonymous() Context { return Context{} }

// Identifier is the normalized key user documents are stored under.
func (c Context) Identifier() string { return c.id }

// DisplayName is the username as typed, trimmed.
func (c Context) DisplayName() string { return c.display }

// IsAnonymous reports whether no user is signed in.
func (c Context) IsAnonymous() bool { return c.id == "" }

// String returns the identifier, or "anonymous".
func (c Context) String() string {
	if c.IsAnonymous() {
		return "anonymous"
	}
	return c.id
}
