package gatt

import (
	"encoding/binary"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/go-ble/attgatt/att"
	"github.com/go-ble/attgatt/uuid"
)

// WillReadFunc is consulted before a read is satisfied from the database.
// Returning a non-zero ErrorCode rejects the read with that code.
type WillReadFunc func(u uuid.UUID, handle uint16, value []byte, offset int) att.ErrorCode

// WillWriteFunc is consulted before a write is committed to the database.
// Returning a non-zero ErrorCode rejects the write with that code.
type WillWriteFunc func(u uuid.UUID, handle uint16, oldValue, newValue []byte) att.ErrorCode

// DidWriteFunc is invoked after a write has been committed to the
// database, whether it originated from a peer or from WriteValue.
type DidWriteFunc func(u uuid.UUID, handle uint16, value []byte)

const noError att.ErrorCode = 0

type preparedWrite struct {
	handle uint16
	offset uint16
	value  []byte
}

// Server is the GATT server of spec.md §4: it decodes ATT requests off a
// Connection, enforces permissions and MTU against a Database, executes
// the four query primitives, manages the prepared write queue, and routes
// notifications/indications through the Client Characteristic
// Configuration descriptor, per spec.md §4.3/§4.5/§4.6.
type Server struct {
	db          *Database
	conn        *att.Connection
	logger      logrus.FieldLogger
	serverRxMTU int

	MaximumPreparedWrites int

	WillRead  WillReadFunc
	WillWrite WillWriteFunc
	DidWrite  DidWriteFunc

	// prepared is only ever touched from handlers dispatched by conn.Read,
	// which per spec.md §5 run synchronously on one cooperative execution
	// context, so it needs no lock of its own.
	prepared []preparedWrite
}

// NewServer constructs a Server over db, wiring its handlers onto conn.
// serverRxMTU is advertised in response to an Exchange MTU Request.
func NewServer(db *Database, conn *att.Connection, serverRxMTU int, logger logrus.FieldLogger) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	s := &Server{
		db:                    db,
		conn:                  conn,
		logger:                logger,
		MaximumPreparedWrites: 50,
	}
	s.serverRxMTU = serverRxMTU
	s.register()
	return s
}

func (s *Server) register() {
	s.conn.Register(att.OpMTUReq, func(p att.PDU) { s.handleExchangeMTU(p.(*att.ExchangeMTURequest)) })
	s.conn.Register(att.OpFindInfoReq, func(p att.PDU) { s.handleFindInformation(p.(*att.FindInformationRequest)) })
	s.conn.Register(att.OpFindByTypeReq, func(p att.PDU) { s.handleFindByTypeValue(p.(*att.FindByTypeValueRequest)) })
	s.conn.Register(att.OpReadByTypeReq, func(p att.PDU) { s.handleReadByType(p.(*att.ReadByTypeRequest)) })
	s.conn.Register(att.OpReadByGroupReq, func(p att.PDU) { s.handleReadByGroupType(p.(*att.ReadByGroupTypeRequest)) })
	s.conn.Register(att.OpReadReq, func(p att.PDU) { s.handleRead(p.(*att.ReadRequest)) })
	s.conn.Register(att.OpReadBlobReq, func(p att.PDU) { s.handleReadBlob(p.(*att.ReadBlobRequest)) })
	s.conn.Register(att.OpReadMultiReq, func(p att.PDU) { s.handleReadMultiple(p.(*att.ReadMultipleRequest)) })
	s.conn.Register(att.OpWriteReq, func(p att.PDU) { s.handleWriteRequest(p.(*att.WriteRequest)) })
	s.conn.Register(att.OpWriteCmd, func(p att.PDU) { s.handleWriteCommand(p.(*att.WriteCommand)) })
	s.conn.Register(att.OpPrepWriteReq, func(p att.PDU) { s.handlePrepareWrite(p.(*att.PrepareWriteRequest)) })
	s.conn.Register(att.OpExecWriteReq, func(p att.PDU) { s.handleExecuteWrite(p.(*att.ExecuteWriteRequest)) })
}

func (s *Server) handleExchangeMTU(req *att.ExchangeMTURequest) {
	effective := int(req.ClientRxMTU)
	if s.serverRxMTU < effective {
		effective = s.serverRxMTU
	}
	s.conn.SetMTU(effective)
	_ = s.conn.Send(&att.ExchangeMTUResponse{ServerRxMTU: uint16(s.serverRxMTU)})
}

// readPermError reports the ATT error code for reading attr at the
// connection's current security level, or noError if the read is allowed.
func readPermError(attr *Attribute, sec att.SecurityLevel) att.ErrorCode {
	if !attr.Permissions.allows(PermRead) {
		return att.ErrReadNotPermitted
	}
	if attr.Permissions.allows(PermReadAuthentication) && sec < att.SecurityHigh {
		return att.ErrInsufficientAuthentication
	}
	if attr.Permissions.allows(PermReadEncrypt) && sec < att.SecurityMedium {
		return att.ErrInsufficientEncryption
	}
	return noError
}

// writePermError reports the ATT error code for writing attr at the
// connection's current security level, or noError if the write is allowed.
func writePermError(attr *Attribute, sec att.SecurityLevel) att.ErrorCode {
	if !attr.Permissions.allows(PermWrite) {
		return att.ErrWriteNotPermitted
	}
	if attr.Permissions.allows(PermWriteAuthentication) && sec < att.SecurityHigh {
		return att.ErrInsufficientAuthentication
	}
	if attr.Permissions.allows(PermWriteEncrypt) && sec < att.SecurityMedium {
		return att.ErrInsufficientEncryption
	}
	return noError
}

func (s *Server) handleRead(req *att.ReadRequest) {
	attr, ok := s.db.Get(req.Handle)
	if !ok {
		_ = s.conn.SendError(att.OpReadReq, req.Handle, att.ErrInvalidHandle)
		return
	}
	if ec := readPermError(attr, s.conn.SecurityLevel()); ec != noError {
		_ = s.conn.SendError(att.OpReadReq, req.Handle, ec)
		return
	}
	if s.WillRead != nil {
		if ec := s.WillRead(attr.UUID, attr.Handle, attr.Value, 0); ec != noError {
			_ = s.conn.SendError(att.OpReadReq, req.Handle, ec)
			return
		}
	}
	value := attr.Value
	if max := s.conn.MTU() - 1; len(value) > max {
		value = value[:max]
	}
	_ = s.conn.Send(&att.ReadResponse{Value: value})
}

func (s *Server) handleReadBlob(req *att.ReadBlobRequest) {
	attr, ok := s.db.Get(req.Handle)
	if !ok {
		_ = s.conn.SendError(att.OpReadBlobReq, req.Handle, att.ErrInvalidHandle)
		return
	}
	if ec := readPermError(attr, s.conn.SecurityLevel()); ec != noError {
		_ = s.conn.SendError(att.OpReadBlobReq, req.Handle, ec)
		return
	}
	if len(attr.Value) <= s.conn.MTU()-1 {
		_ = s.conn.SendError(att.OpReadBlobReq, req.Handle, att.ErrAttributeNotLong)
		return
	}
	if int(req.Offset) > len(attr.Value) {
		_ = s.conn.SendError(att.OpReadBlobReq, req.Handle, att.ErrInvalidOffset)
		return
	}
	if s.WillRead != nil {
		if ec := s.WillRead(attr.UUID, attr.Handle, attr.Value, int(req.Offset)); ec != noError {
			_ = s.conn.SendError(att.OpReadBlobReq, req.Handle, ec)
			return
		}
	}
	value := attr.Value[req.Offset:]
	if max := s.conn.MTU() - 1; len(value) > max {
		value = value[:max]
	}
	_ = s.conn.Send(&att.ReadBlobResponse{Value: value})
}

func (s *Server) handleReadMultiple(req *att.ReadMultipleRequest) {
	if len(req.Handles) < 2 {
		_ = s.conn.SendError(att.OpReadMultiReq, 0, att.ErrInvalidPDU)
		return
	}
	var out []byte
	sec := s.conn.SecurityLevel()
	for _, h := range req.Handles {
		attr, ok := s.db.Get(h)
		if !ok {
			_ = s.conn.SendError(att.OpReadMultiReq, h, att.ErrInvalidHandle)
			return
		}
		if ec := readPermError(attr, sec); ec != noError {
			_ = s.conn.SendError(att.OpReadMultiReq, h, ec)
			return
		}
		if s.WillRead != nil {
			if ec := s.WillRead(attr.UUID, attr.Handle, attr.Value, 0); ec != noError {
				_ = s.conn.SendError(att.OpReadMultiReq, h, ec)
				return
			}
		}
		out = append(out, attr.Value...)
	}
	if max := s.conn.MTU() - 1; len(out) > max {
		out = out[:max]
	}
	_ = s.conn.Send(&att.ReadMultipleResponse{Values: out})
}

func (s *Server) handleReadByType(req *att.ReadByTypeRequest) {
	if req.StartingHandle == 0 || req.StartingHandle > req.EndingHandle {
		_ = s.conn.SendError(att.OpReadByTypeReq, req.StartingHandle, att.ErrInvalidHandle)
		return
	}
	matches := s.db.ReadByType(req.StartingHandle, req.EndingHandle, req.AttributeType)
	if len(matches) == 0 {
		_ = s.conn.SendError(att.OpReadByTypeReq, req.StartingHandle, att.ErrAttributeNotFound)
		return
	}
	sec := s.conn.SecurityLevel()
	var data []att.AttributeData
	for _, a := range matches {
		if ec := readPermError(a, sec); ec != noError {
			if len(data) == 0 {
				_ = s.conn.SendError(att.OpReadByTypeReq, a.Handle, ec)
				return
			}
			break
		}
		if s.WillRead != nil {
			if ec := s.WillRead(a.UUID, a.Handle, a.Value, 0); ec != noError {
				if len(data) == 0 {
					_ = s.conn.SendError(att.OpReadByTypeReq, a.Handle, ec)
					return
				}
				break
			}
		}
		data = append(data, att.AttributeData{Handle: a.Handle, Value: a.Value})
	}
	_ = s.conn.Send(&att.ReadByTypeResponse{MTU: s.conn.MTU(), Attributes: data})
}

func (s *Server) handleReadByGroupType(req *att.ReadByGroupTypeRequest) {
	if req.StartingHandle == 0 || req.StartingHandle > req.EndingHandle {
		_ = s.conn.SendError(att.OpReadByGroupReq, req.StartingHandle, att.ErrInvalidHandle)
		return
	}
	groups := s.db.ReadByGroupType(req.StartingHandle, req.EndingHandle, req.AttributeType)
	if len(groups) == 0 {
		_ = s.conn.SendError(att.OpReadByGroupReq, req.StartingHandle, att.ErrAttributeNotFound)
		return
	}
	data := make([]att.GroupAttributeData, len(groups))
	for i, g := range groups {
		data[i] = att.GroupAttributeData{AttributeHandle: g.StartHandle, EndGroupHandle: g.EndHandle, Value: g.Value}
	}
	_ = s.conn.Send(&att.ReadByGroupTypeResponse{MTU: s.conn.MTU(), Groups: data})
}

func (s *Server) handleFindInformation(req *att.FindInformationRequest) {
	if req.StartingHandle == 0 || req.StartingHandle > req.EndingHandle {
		_ = s.conn.SendError(att.OpFindInfoReq, req.StartingHandle, att.ErrInvalidHandle)
		return
	}
	matches := s.db.FindInformation(req.StartingHandle, req.EndingHandle)
	if len(matches) == 0 {
		_ = s.conn.SendError(att.OpFindInfoReq, req.StartingHandle, att.ErrAttributeNotFound)
		return
	}
	info := make([]att.InformationData, len(matches))
	for i, a := range matches {
		info[i] = att.InformationData{Handle: a.Handle, UUID: a.UUID}
	}
	_ = s.conn.Send(&att.FindInformationResponse{MTU: s.conn.MTU(), Info: info})
}

func (s *Server) handleFindByTypeValue(req *att.FindByTypeValueRequest) {
	if req.StartingHandle == 0 || req.StartingHandle > req.EndingHandle {
		_ = s.conn.SendError(att.OpFindByTypeReq, req.StartingHandle, att.ErrInvalidHandle)
		return
	}
	records := s.db.FindByTypeValue(req.StartingHandle, req.EndingHandle, uuid.UUID16(req.AttributeType), req.AttributeValue)
	if len(records) == 0 {
		_ = s.conn.SendError(att.OpFindByTypeReq, req.StartingHandle, att.ErrAttributeNotFound)
		return
	}
	handles := make([]att.HandleInformation, len(records))
	for i, r := range records {
		handles[i] = att.HandleInformation{FoundAttributeHandle: r.FoundHandle, GroupEndHandle: r.GroupEnd}
	}
	_ = s.conn.Send(&att.FindByTypeValueResponse{MTU: s.conn.MTU(), Handles: handles})
}

// commitWrite applies a single peer write to handle after permission and
// WillWrite checks, invoking DidWrite on success. It reports the error
// code to report to the peer (noError on success).
func (s *Server) commitWrite(handle uint16, value []byte) att.ErrorCode {
	attr, ok := s.db.Get(handle)
	if !ok {
		return att.ErrInvalidHandle
	}
	if ec := writePermError(attr, s.conn.SecurityLevel()); ec != noError {
		return ec
	}
	old := attr.Value
	if s.WillWrite != nil {
		if ec := s.WillWrite(attr.UUID, handle, old, value); ec != noError {
			return ec
		}
	}
	s.db.Write(handle, value)
	if s.DidWrite != nil {
		s.DidWrite(attr.UUID, handle, value)
	}
	return noError
}

func (s *Server) handleWriteRequest(req *att.WriteRequest) {
	if ec := s.commitWrite(req.Handle, req.Value); ec != noError {
		_ = s.conn.SendError(att.OpWriteReq, req.Handle, ec)
		return
	}
	_ = s.conn.Send(&att.WriteResponse{})
	_ = s.routeSubscriptions(req.Handle, req.Value)
}

func (s *Server) handleWriteCommand(req *att.WriteCommand) {
	// Write Without Response never yields an ErrorResponse, per the BT Core
	// Spec: a rejected command is simply dropped.
	if s.commitWrite(req.Handle, req.Value) == noError {
		_ = s.routeSubscriptions(req.Handle, req.Value)
	}
}

func (s *Server) handlePrepareWrite(req *att.PrepareWriteRequest) {
	attr, ok := s.db.Get(req.Handle)
	if !ok {
		_ = s.conn.SendError(att.OpPrepWriteReq, req.Handle, att.ErrInvalidHandle)
		return
	}
	if ec := writePermError(attr, s.conn.SecurityLevel()); ec != noError {
		_ = s.conn.SendError(att.OpPrepWriteReq, req.Handle, ec)
		return
	}
	if len(s.prepared) >= s.MaximumPreparedWrites {
		_ = s.conn.SendError(att.OpPrepWriteReq, req.Handle, att.ErrPrepareQueueFull)
		return
	}
	s.prepared = append(s.prepared, preparedWrite{
		handle: req.Handle,
		offset: req.Offset,
		value:  append([]byte(nil), req.PartValue...),
	})
	_ = s.conn.Send(&att.PrepareWriteResponse{Handle: req.Handle, Offset: req.Offset, PartValue: req.PartValue})
}

func (s *Server) handleExecuteWrite(req *att.ExecuteWriteRequest) {
	queued := s.prepared
	s.prepared = nil

	if req.Flags == att.ExecuteWriteCancel {
		_ = s.conn.Send(&att.ExecuteWriteResponse{})
		return
	}

	byHandle := make(map[uint16][]byte)
	var handles []uint16
	for _, pw := range queued {
		if _, seen := byHandle[pw.handle]; !seen {
			handles = append(handles, pw.handle)
		}
		byHandle[pw.handle] = append(byHandle[pw.handle], pw.value...)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	for _, h := range handles {
		if ec := s.commitWrite(h, byHandle[h]); ec != noError {
			_ = s.conn.SendError(att.OpExecWriteReq, h, ec)
			return
		}
	}
	_ = s.conn.Send(&att.ExecuteWriteResponse{})
	for _, h := range handles {
		_ = s.routeSubscriptions(h, byHandle[h])
	}
}

// Read performs one socket receive on the server's connection and
// dispatches the decoded PDU, reporting whether one was processed.
func (s *Server) Read() (bool, error) { return s.conn.Read() }

// Write drains one pending outbound PDU and reports whether more remain.
func (s *Server) Write() (bool, error) { return s.conn.Write() }

// MTU reports the connection's current effective MTU.
func (s *Server) MTU() int { return s.conn.MTU() }

// PreferredMTU reports the MTU the server advertises during exchange.
func (s *Server) PreferredMTU() int { return s.serverRxMTU }

// Database returns the attribute database the server serves.
func (s *Server) Database() *Database { return s.db }

// WriteValue commits value to handle's attribute and, if the owning
// characteristic's Client Characteristic Configuration descriptor has the
// Notify and/or Indicate bit set, pushes it to the peer, per spec.md §4.6.
// This is how application code propagates a locally-changed value.
func (s *Server) WriteValue(handle uint16, value []byte) error {
	attr, ok := s.db.Get(handle)
	if !ok {
		return nil
	}
	s.db.Write(handle, value)
	if s.DidWrite != nil {
		s.DidWrite(attr.UUID, handle, value)
	}
	return s.routeSubscriptions(handle, value)
}

// routeSubscriptions pushes a value already committed to handle out to a
// subscribed peer: if the owning characteristic's CCC descriptor has the
// Notify and/or Indicate bit set, the matching PDU is enqueued. Every
// commit, peer- or application-initiated, funnels through here.
func (s *Server) routeSubscriptions(handle uint16, value []byte) error {
	group, _, ok := s.db.AttributeGroup(handle)
	if !ok {
		return nil
	}
	ccc, ok := group.cccFor(handle)
	if !ok || len(ccc.Value) < 2 {
		return nil
	}
	bits := binary.LittleEndian.Uint16(ccc.Value)
	if bits&CCCNotify != 0 {
		notifyValue := value
		if max := s.conn.MTU() - 3; len(notifyValue) > max {
			notifyValue = notifyValue[:max]
		}
		if err := s.conn.Send(&att.HandleValueNotification{Handle: handle, Value: notifyValue}); err != nil {
			return err
		}
	}
	if bits&CCCIndicate != 0 {
		s.conn.SendIndication(handle, value, nil)
	}
	return nil
}

// WriteValueUUID is WriteValue addressed by attribute type instead of
// handle: the first (lowest-handle) attribute whose type equals u receives
// the write. It reports whether such an attribute exists.
func (s *Server) WriteValueUUID(u uuid.UUID, value []byte) (bool, error) {
	for _, a := range s.db.ordered {
		if a.UUID.Equal(u) {
			return true, s.WriteValue(a.Handle, value)
		}
	}
	return false, nil
}
