package errors

import "fmt"

var (
	ErrNotAMember          = fmt.Errorf("user is not a member of the conversation")
	ErrUnknownConversation = fmt.Errorf("unknown conversation")
	ErrConversationExists  = fmt.Errorf("conversation already exists")
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidPassword     = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrInvalidToken        = fmt.Errorf("invalid or expired token")
	ErrMalformedEvent      = fmt.Errorf("malformed inbound event")
	ErrPersistence         = fmt.Errorf("message persistence failed")
	ErrSinkClosed          = fmt.Errorf("connection sink is closed")
	ErrSinkFull            = fmt.Errorf("connection send buffer is full")
	ErrNotConnected        = fmt.Errorf("user has no live connection")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
	ErrOnlyCensoredFiles   = fmt.Errorf("censored directory contains directories")
)
