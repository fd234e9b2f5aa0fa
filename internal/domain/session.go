package domain

// ConnectionHandle identifies the physical connection bound to an
// authenticated user (spec.md §3's Session entity, invariant S1). It is an
// opaque comparable handle so internal/auth doesn't need to know about
// net.Conn or the dispatcher's connection type.
type ConnectionHandle string
