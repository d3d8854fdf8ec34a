package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrChannelNotFound      = fmt.Errorf("channel not found")
	ErrChannelAlreadyExists = fmt.Errorf("channel already exists")
	ErrUserAlreadyExists    = fmt.Errorf("user already exists")
	ErrInvalidCredentials   = fmt.Errorf("invalid username or password")
	ErrInvalidPassword      = fmt.Errorf("password does not meet complexity rules")
	ErrInvalidUsername      = fmt.Errorf("invalid username")
	ErrInvalidChannelName   = fmt.Errorf("invalid channel name")
	ErrTokenGeneration      = fmt.Errorf("token generation failed")
)
