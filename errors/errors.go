package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrUnknownIdentity   = fmt.Errorf("identity not found")
	ErrResponsePending   = fmt.Errorf("response channel already open")
	ErrInvalidTransition = fmt.Errorf("invalid match state transition")
	ErrNoConnection      = fmt.Errorf("no live connection")
	ErrSendBufferFull    = fmt.Errorf("send buffer full")
)
