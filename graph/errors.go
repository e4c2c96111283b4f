package graph

import "errors"

// Builder and lifecycle errors, per spec.md §7. Each is a sentinel so
// callers can compare with errors.Is even though most call sites wrap
// them with node/pad context via fmt.Errorf("...: %w", ...).
var (
	ErrDuplicateName       = errors.New("graph: duplicate node name")
	ErrUnknownType         = errors.New("graph: unknown node type")
	ErrUnknownNode         = errors.New("graph: unknown node")
	ErrPadIndexOutOfRange  = errors.New("graph: pad index out of range")
	ErrPadAlreadyConnected = errors.New("graph: input pad already has a connection")
	ErrWouldCreateCycle    = errors.New("graph: connection would create a cycle")
	ErrNotConfigured       = errors.New("graph: node is not configured")
	ErrBusy                = errors.New("graph: node is running")
	ErrAlreadyRunning      = errors.New("graph: graph is already running")
)
