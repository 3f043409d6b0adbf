package att

import "fmt"

// newPDU constructs a zero-valued PDU for opcode op, or reports ok=false
// for an opcode this catalogue does not know.
func newPDU(op Opcode) (PDU, bool) {
	switch op {
	case OpError:
		return &ErrorResponse{}, true
	case OpMTUReq:
		return &ExchangeMTURequest{}, true
	case OpMTUResp:
		return &ExchangeMTUResponse{}, true
	case OpFindInfoReq:
		return &FindInformationRequest{}, true
	case OpFindInfoResp:
		return &FindInformationResponse{}, true
	case OpFindByTypeReq:
		return &FindByTypeValueRequest{}, true
	case OpFindByTypeResp:
		return &FindByTypeValueResponse{}, true
	case OpReadByTypeReq:
		return &ReadByTypeRequest{}, true
	case OpReadByTypeResp:
		return &ReadByTypeResponse{}, true
	case OpReadReq:
		return &ReadRequest{}, true
	case OpReadResp:
		return &ReadResponse{}, true
	case OpReadBlobReq:
		return &ReadBlobRequest{}, true
	case OpReadBlobResp:
		return &ReadBlobResponse{}, true
	case OpReadMultiReq:
		return &ReadMultipleRequest{}, true
	case OpReadMultiResp:
		return &ReadMultipleResponse{}, true
	case OpReadByGroupReq:
		return &ReadByGroupTypeRequest{}, true
	case OpReadByGroupResp:
		return &ReadByGroupTypeResponse{}, true
	case OpWriteReq:
		return &WriteRequest{}, true
	case OpWriteResp:
		return &WriteResponse{}, true
	case OpWriteCmd:
		return &WriteCommand{}, true
	case OpPrepWriteReq:
		return &PrepareWriteRequest{}, true
	case OpPrepWriteResp:
		return &PrepareWriteResponse{}, true
	case OpExecWriteReq:
		return &ExecuteWriteRequest{}, true
	case OpExecWriteResp:
		return &ExecuteWriteResponse{}, true
	case OpHandleNotify:
		return &HandleValueNotification{}, true
	case OpHandleInd:
		return &HandleValueIndication{}, true
	case OpHandleCnf:
		return &HandleValueConfirmation{}, true
	default:
		return nil, false
	}
}

// Decode parses the opcode byte of b and unmarshals the remainder into the
// matching catalogue type. It reports (nil, false, nil) for opcodes the
// catalogue does not recognize (including 0x52's sibling SignedWriteCommand,
// which this core declares but does not implement, per spec.md §6.2) so
// callers can distinguish "unknown opcode" from "malformed known PDU".
func Decode(b []byte) (pdu PDU, known bool, err error) {
	if len(b) == 0 {
		return nil, false, fmt.Errorf("att: empty PDU")
	}
	p, ok := newPDU(Opcode(b[0]))
	if !ok {
		return nil, false, nil
	}
	if f, ok := p.(FixedLength); ok && len(b) != f.FixedLen() {
		return nil, true, fmt.Errorf("att: opcode 0x%02X: need exactly %d bytes, got %d", b[0], f.FixedLen(), len(b))
	}
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, true, err
	}
	return p, true, nil
}
