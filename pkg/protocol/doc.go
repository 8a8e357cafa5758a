// Package protocol defines the closed set of wire protocols the proxy can
// carry traffic over, together with their canonical names and qualitative
// characteristics.
//
// The set is deliberately closed: every ID is declared here, every ID has a
// canonical name that round-trips exactly through Parse, and every ID has a
// characteristics entry. Components that iterate protocols use All() so that
// adding a new protocol is a single-file change.
//
// The package carries no behavior beyond naming and classification; scoring
// and selection live in pkg/adaptive.
package protocol
