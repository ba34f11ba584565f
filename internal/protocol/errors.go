package protocol

const (
	// Request validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Lookup failures.
	ErrUnknownArena     = "E_UNKNOWN_ARENA"
	ErrUnknownMissile   = "E_UNKNOWN_MISSILE"
	ErrUnknownStructure = "E_UNKNOWN_STRUCTURE"
	ErrWorldNotFound    = "E_WORLD_NOT_FOUND"
	ErrWorldUnloaded    = "E_WORLD_UNLOADED"

	// Placement failures.
	ErrNoFacing = "E_NO_FACING"
	ErrBadColor = "E_BAD_COLOR"
	ErrLoad     = "E_LOAD"
	ErrPaste    = "E_PASTE"
	ErrShutdown = "E_SHUTDOWN"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:       {},
	ErrUnknownArena:     {},
	ErrUnknownMissile:   {},
	ErrUnknownStructure: {},
	ErrWorldNotFound:    {},
	ErrWorldUnloaded:    {},
	ErrNoFacing:         {},
	ErrBadColor:         {},
	ErrLoad:             {},
	ErrPaste:            {},
	ErrShutdown:         {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
