package att

import "fmt"

// ErrorCode is an ATT error code sent back to the peer in an ErrorRsp.
type ErrorCode uint8

// Error codes defined by the Attribute Protocol.
const (
	ErrorCodeInvalidHandle                ErrorCode = 0x01
	ErrorCodeReadNotPermitted              ErrorCode = 0x02
	ErrorCodeWriteNotPermitted             ErrorCode = 0x03
	ErrorCodeInvalidPdu                    ErrorCode = 0x04
	ErrorCodeInsufficientAuthentication    ErrorCode = 0x05
	ErrorCodeRequestNotSupported           ErrorCode = 0x06
	ErrorCodeInvalidOffset                 ErrorCode = 0x07
	ErrorCodeInsufficientAuthorization     ErrorCode = 0x08
	ErrorCodePrepareQueueFull              ErrorCode = 0x09
	ErrorCodeAttributeNotFound             ErrorCode = 0x0A
	ErrorCodeAttributeNotLong              ErrorCode = 0x0B
	ErrorCodeInsufficientEncryptionKeySize ErrorCode = 0x0C
	ErrorCodeInvalidAttributeValueLength   ErrorCode = 0x0D
	ErrorCodeUnlikelyError                 ErrorCode = 0x0E
	ErrorCodeInsufficientEncryption        ErrorCode = 0x0F
	ErrorCodeUnsupportedGroupType          ErrorCode = 0x10
	ErrorCodeInsufficientResources         ErrorCode = 0x11
)

// AttError is an error at the ATT protocol layer, returned back to the peer
// as an ErrorRsp rather than dropping the connection.
type AttError struct {
	Code   ErrorCode
	Handle Handle
}

// NewAttError builds an AttError.
func NewAttError(code ErrorCode, handle Handle) *AttError {
	return &AttError{Code: code, Handle: handle}
}

// ErrAttributeNotFound is the error sent when no attribute in a requested
// range matches, with no specific handle to blame.
func ErrAttributeNotFound() *AttError {
	return NewAttError(ErrorCodeAttributeNotFound, HandleNull)
}

func (e *AttError) Error() string {
	return fmt.Sprintf("att error %#02x on handle %s", uint8(e.Code), e.Handle)
}
