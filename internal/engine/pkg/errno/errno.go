package errno

import (
	"errors"
)

var (
	ErrBackend          = errors.New("backend failure")
	ErrToolArgument     = errors.New("malformed tool arguments")
	ErrSandboxViolation = errors.New("sandbox violation")
	ErrSandboxTimeout   = errors.New("sandbox timeout")
	ErrBudgetExhausted  = errors.New("token budget exhausted")
	ErrDepthExceeded    = errors.New("max recursion depth exceeded")
	ErrDeadlineExpired  = errors.New("deadline expired")
	ErrConfiguration    = errors.New("configuration fault")
	ErrAborted          = errors.New("run aborted")
	ErrRunNotFound      = errors.New("run not found")
	ErrRunAlreadyDone   = errors.New("run already done")
	ErrUnknownTool      = errors.New("unknown tool")
)
