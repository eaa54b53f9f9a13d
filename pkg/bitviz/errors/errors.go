package errors

import "errors"

var (
	// Grid errors 🧱
	ErrInvalidHex      = errors.New("❌ invalid hex text")
	ErrPositionRange   = errors.New("❌ bit position out of range")
	ErrMinimumBytes    = errors.New("❌ grid must keep at least one byte")
	ErrLastByteInUse   = errors.New("❌ last byte has grouped bits")
	ErrInvalidBitValue = errors.New("❌ bit value must be 0 or 1")

	// Group errors 🏷️
	ErrEmptySelection = errors.New("❌ no bits selected")
	ErrGroupNotFound  = errors.New("❌ group not found")
	ErrInvalidType    = errors.New("❌ unknown group type")

	// Decode errors 🔎
	ErrMissingDecode = errors.New("Define function decode(bits)")
	ErrDecodeTimeout = errors.New("❌ decoder timed out")

	// Configuration errors 📦
	ErrMalformedPayload = errors.New("Configuration payload is malformed.")
	ErrEmptyConfig      = errors.New("Provide a Base64 configuration before importing.")
	ErrInvalidBase64    = errors.New("❌ invalid base64 configuration")
	ErrUnknownEncoding  = errors.New("❌ unknown configuration encoding")

	// Report errors 📄
	ErrNoGroups      = errors.New("Create at least one group before exporting.")
	ErrUnknownFormat = errors.New("❌ unknown report format")
)
