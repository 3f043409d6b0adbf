package att

// ErrorResponse is the 0x01 ATT PDU: the server's way of reporting that a
// request could not be completed.
type ErrorResponse struct {
	RequestOpcode   Opcode
	AttributeHandle uint16
	Error           ErrorCode
}

// NewErrorResponse constructs the ErrorResponse for a failed request.
func NewErrorResponse(op Opcode, handle uint16, e ErrorCode) *ErrorResponse {
	return &ErrorResponse{RequestOpcode: op, AttributeHandle: handle, Error: e}
}

func (p *ErrorResponse) Opcode() Opcode { return OpError }
func (p *ErrorResponse) FixedLen() int  { return 5 }

func (p *ErrorResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5)
	b[0] = byte(OpError)
	b[1] = byte(p.RequestOpcode)
	putLE16(b[2:4], p.AttributeHandle)
	b[4] = byte(p.Error)
	return b, nil
}

func (p *ErrorResponse) UnmarshalBinary(b []byte) error {
	if len(b) != 5 {
		return errShortBuffer("ErrorResponse", 5, len(b))
	}
	if Opcode(b[0]) != OpError {
		return errBadOpcode("ErrorResponse", OpError, b[0])
	}
	p.RequestOpcode = Opcode(b[1])
	p.AttributeHandle = le16(b[2:4])
	p.Error = ErrorCode(b[4])
	return nil
}
