package authorization

import "errors"

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
	ErrTerminalDenied = errors.New("terminal_access_denied")
)
