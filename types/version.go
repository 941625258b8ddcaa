package types

// Version is the canonical project version, shared by both binaries.
const Version = "0.4.2"

// ProtocolVersion is the parent/worker wire protocol version. The worker
// refuses task documents whose major version differs from its own.
const ProtocolVersion = "1.0.0"
