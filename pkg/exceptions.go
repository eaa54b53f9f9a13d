package pkg

import "errors"

var (
	// Workspace errors 🔒
	ErrSlotLocked         = errors.New("❌ saved session is held by another running session")
	ErrVerificationFailed = errors.New("❌ configuration verification failed")
)
