package gatt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-ble/attgatt/att"
	"github.com/go-ble/attgatt/uuid"
)

// fakeSocket is an in-memory att.Socket: requests are queued onto inbox,
// Read() pops one per call, and every frame the connection sends is
// appended to sent (via drain, which pumps Write until the queue is dry).
type fakeSocket struct {
	inbox []byte
	sent  [][]byte
	sec   att.SecurityLevel
}

func (s *fakeSocket) Recv() ([]byte, error) {
	if s.inbox == nil {
		return nil, errors.New("fakeSocket: no pending frame")
	}
	b := s.inbox
	s.inbox = nil
	return b, nil
}

func (s *fakeSocket) Send(b []byte) error {
	s.sent = append(s.sent, append([]byte(nil), b...))
	return nil
}

func (s *fakeSocket) SecurityLevel() att.SecurityLevel { return s.sec }

// exchange feeds req through the connection and drains every frame the
// handler enqueued in response, returning them in send order.
func exchange(t *testing.T, conn *att.Connection, sock *fakeSocket, req []byte) [][]byte {
	t.Helper()
	sock.inbox = req
	if _, err := conn.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}
	sock.sent = nil
	for {
		more, err := conn.Write()
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if !more {
			break
		}
	}
	return sock.sent
}

func newTestServer() (*Server, *att.Connection, *fakeSocket, *Service, *Characteristic) {
	db := NewDatabase()
	svc, level := buildBatteryService(db)
	sock := &fakeSocket{sec: att.SecurityLow}
	conn := att.NewConnection(sock, 23, nil)
	srv := NewServer(db, conn, 185, nil)
	return srv, conn, sock, svc, level
}

func TestScenarioExchangeMTU(t *testing.T) {
	_, conn, sock, _, _ := newTestServer()
	req := &att.ExchangeMTURequest{ClientRxMTU: 100}
	b, _ := req.MarshalBinary()

	out := exchange(t, conn, sock, b)
	if len(out) != 1 {
		t.Fatalf("expected 1 response frame, got %d", len(out))
	}
	var resp att.ExchangeMTUResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if resp.ServerRxMTU != 185 {
		t.Errorf("ServerRxMTU = %d, want 185", resp.ServerRxMTU)
	}
	if conn.MTU() != 100 {
		t.Errorf("effective MTU = %d, want min(100,185)=100", conn.MTU())
	}
}

func TestScenarioReadRequest(t *testing.T) {
	_, conn, sock, _, level := newTestServer()
	req := &att.ReadRequest{Handle: level.Handle()}
	b, _ := req.MarshalBinary()

	out := exchange(t, conn, sock, b)
	var resp att.ReadResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(resp.Value, []byte{100}) {
		t.Errorf("value = %x, want 64", resp.Value)
	}
}

func TestScenarioWriteRequest(t *testing.T) {
	db := NewDatabase()
	svc := NewService(uuid.UUID16(0x1234))
	c := svc.AddCharacteristic(uuid.UUID16(0x5678))
	c.Permissions = PermRead | PermWrite
	c.Value = []byte{0}
	db.Add(svc)

	sock := &fakeSocket{sec: att.SecurityLow}
	conn := att.NewConnection(sock, 23, nil)
	srv := NewServer(db, conn, 185, nil)
	var gotOld, gotNew []byte
	srv.DidWrite = func(u uuid.UUID, handle uint16, value []byte) { gotNew = value }
	srv.WillWrite = func(u uuid.UUID, handle uint16, old, new []byte) att.ErrorCode {
		gotOld = old
		return 0
	}

	req := &att.WriteRequest{Handle: c.Handle(), Value: []byte{0xAB}}
	b, _ := req.MarshalBinary()
	out := exchange(t, conn, sock, b)

	var resp att.WriteResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotOld, []byte{0}) || !bytes.Equal(gotNew, []byte{0xAB}) {
		t.Errorf("WillWrite/DidWrite saw old=%x new=%x", gotOld, gotNew)
	}
	attr, _ := db.Get(c.Handle())
	if !bytes.Equal(attr.Value, []byte{0xAB}) {
		t.Errorf("committed value = %x, want AB", attr.Value)
	}
}

func TestScenarioReadBlobOnShortValue(t *testing.T) {
	_, conn, sock, _, level := newTestServer()
	req := &att.ReadBlobRequest{Handle: level.Handle(), Offset: 0}
	b, _ := req.MarshalBinary()

	out := exchange(t, conn, sock, b)
	var errResp att.ErrorResponse
	if err := errResp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if errResp.Error != att.ErrAttributeNotLong {
		t.Errorf("error = %v, want AttributeNotLong", errResp.Error)
	}
}

func TestScenarioReadBlobInvalidOffsetOnLongValue(t *testing.T) {
	db := NewDatabase()
	svc := NewService(uuid.UUID16(0x1234))
	c := svc.AddCharacteristic(uuid.UUID16(0x5678))
	c.Permissions = PermRead
	c.Value = bytes.Repeat([]byte{0xAA}, 30) // longer than MTU(23)-1
	db.Add(svc)

	sock := &fakeSocket{sec: att.SecurityLow}
	conn := att.NewConnection(sock, 23, nil)
	srv := NewServer(db, conn, 185, nil)
	_ = srv

	req := &att.ReadBlobRequest{Handle: c.Handle(), Offset: 40}
	b, _ := req.MarshalBinary()
	out := exchange(t, conn, sock, b)
	var errResp att.ErrorResponse
	if err := errResp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if errResp.Error != att.ErrInvalidOffset {
		t.Errorf("error = %v, want InvalidOffset", errResp.Error)
	}
}

func TestScenarioReadByGroupType(t *testing.T) {
	_, conn, sock, svc, _ := newTestServer()
	req := &att.ReadByGroupTypeRequest{StartingHandle: 1, EndingHandle: 0xFFFF, AttributeType: PrimaryServiceUUID}
	b, _ := req.MarshalBinary()

	out := exchange(t, conn, sock, b)
	var resp att.ReadByGroupTypeResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].AttributeHandle != svc.StartHandle() {
		t.Errorf("groups = %+v", resp.Groups)
	}
}

func TestScenarioPrepareAndExecuteWrite(t *testing.T) {
	db := NewDatabase()
	svc := NewService(uuid.UUID16(0x1234))
	c := svc.AddCharacteristic(uuid.UUID16(0x5678))
	c.Permissions = PermRead | PermWrite
	c.Value = make([]byte, 4)
	db.Add(svc)

	sock := &fakeSocket{sec: att.SecurityLow}
	conn := att.NewConnection(sock, 23, nil)
	srv := NewServer(db, conn, 185, nil)

	p1 := &att.PrepareWriteRequest{Handle: c.Handle(), Offset: 0, PartValue: []byte{0x01, 0x02}}
	b1, _ := p1.MarshalBinary()
	exchange(t, conn, sock, b1)

	p2 := &att.PrepareWriteRequest{Handle: c.Handle(), Offset: 2, PartValue: []byte{0x03, 0x04}}
	b2, _ := p2.MarshalBinary()
	exchange(t, conn, sock, b2)

	if len(srv.prepared) != 2 {
		t.Fatalf("expected 2 queued fragments, got %d", len(srv.prepared))
	}

	exec := &att.ExecuteWriteRequest{Flags: att.ExecuteWriteWrite}
	be, _ := exec.MarshalBinary()
	out := exchange(t, conn, sock, be)

	var resp att.ExecuteWriteResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	attr, _ := db.Get(c.Handle())
	if !bytes.Equal(attr.Value, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("committed value = %x, want 01020304", attr.Value)
	}
	if len(srv.prepared) != 0 {
		t.Error("queue must be empty after execute")
	}
}

// newNotifyingWritableServer builds a single writable characteristic whose
// CCC descriptor already has the notify bit set.
func newNotifyingWritableServer(t *testing.T) (*Server, *att.Connection, *fakeSocket, *Characteristic) {
	t.Helper()
	db := NewDatabase()
	svc := NewService(uuid.UUID16(0x1234))
	c := svc.AddCharacteristic(uuid.UUID16(0x5678))
	c.Permissions = PermRead | PermWrite
	c.Properties = PropRead | PropWrite | PropNotify
	ccc := c.AddDescriptor(ClientCharacteristicConfigUUID)
	ccc.Permissions = PermRead | PermWrite
	ccc.Value = []byte{byte(CCCNotify), 0x00}
	db.Add(svc)

	sock := &fakeSocket{sec: att.SecurityLow}
	conn := att.NewConnection(sock, 23, nil)
	srv := NewServer(db, conn, 185, nil)
	return srv, conn, sock, c
}

func TestWriteRequestNotifiesSubscribedPeer(t *testing.T) {
	_, conn, sock, c := newNotifyingWritableServer(t)

	req := &att.WriteRequest{Handle: c.Handle(), Value: []byte{0xBB, 0xCC}}
	b, _ := req.MarshalBinary()
	out := exchange(t, conn, sock, b)

	if len(out) != 2 {
		t.Fatalf("expected write response then notification, got %d frames", len(out))
	}
	var resp att.WriteResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	var notif att.HandleValueNotification
	if err := notif.UnmarshalBinary(out[1]); err != nil {
		t.Fatal(err)
	}
	if notif.Handle != c.Handle() || !bytes.Equal(notif.Value, []byte{0xBB, 0xCC}) {
		t.Errorf("notification = %+v, want handle=%d value=BBCC", notif, c.Handle())
	}
}

func TestExecuteWriteScenario(t *testing.T) {
	// spec.md §8 scenario 6: Prepare(h, 0, "HE"), Prepare(h, 2, "LLO"),
	// Execute(write=1) commits "HELLO" and notifies the subscribed peer.
	srv, conn, sock, c := newNotifyingWritableServer(t)

	for _, pw := range []*att.PrepareWriteRequest{
		{Handle: c.Handle(), Offset: 0, PartValue: []byte("HE")},
		{Handle: c.Handle(), Offset: 2, PartValue: []byte("LLO")},
	} {
		b, _ := pw.MarshalBinary()
		exchange(t, conn, sock, b)
	}

	exec := &att.ExecuteWriteRequest{Flags: att.ExecuteWriteWrite}
	be, _ := exec.MarshalBinary()
	out := exchange(t, conn, sock, be)

	attr, _ := srv.Database().Get(c.Handle())
	if !bytes.Equal(attr.Value, []byte("HELLO")) {
		t.Errorf("committed value = %q, want HELLO", attr.Value)
	}
	if len(out) != 2 {
		t.Fatalf("expected execute response then notification, got %d frames", len(out))
	}
	var resp att.ExecuteWriteResponse
	if err := resp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	var notif att.HandleValueNotification
	if err := notif.UnmarshalBinary(out[1]); err != nil {
		t.Fatal(err)
	}
	if notif.Handle != c.Handle() || !bytes.Equal(notif.Value, []byte("HELLO")) {
		t.Errorf("notification = %+v, want handle=%d value=HELLO", notif, c.Handle())
	}
}

func TestPrepareQueueOverflow(t *testing.T) {
	db := NewDatabase()
	svc := NewService(uuid.UUID16(0x1234))
	c := svc.AddCharacteristic(uuid.UUID16(0x5678))
	c.Permissions = PermRead | PermWrite
	db.Add(svc)

	sock := &fakeSocket{sec: att.SecurityLow}
	conn := att.NewConnection(sock, 23, nil)
	srv := NewServer(db, conn, 185, nil)
	srv.MaximumPreparedWrites = 1

	p := &att.PrepareWriteRequest{Handle: c.Handle(), PartValue: []byte{0x01}}
	b, _ := p.MarshalBinary()
	exchange(t, conn, sock, b)

	out := exchange(t, conn, sock, b)
	var errResp att.ErrorResponse
	if err := errResp.UnmarshalBinary(out[0]); err != nil {
		t.Fatal(err)
	}
	if errResp.Error != att.ErrPrepareQueueFull {
		t.Errorf("error = %v, want PrepareQueueFull", errResp.Error)
	}
}

func TestWriteValueRoutesThroughCCC(t *testing.T) {
	srv, conn, sock, _, level := newTestServer()

	attr, _ := srv.db.Get(level.DeclHandle() + 2) // CCC descriptor handle
	attr.Value = []byte{byte(CCCNotify), 0x00}

	var gotUUID uuid.UUID
	var gotHandle uint16
	var gotValue []byte
	srv.DidWrite = func(u uuid.UUID, handle uint16, value []byte) {
		gotUUID, gotHandle, gotValue = u, handle, value
	}

	sock.sent = nil
	if err := srv.WriteValue(level.Handle(), []byte{42}); err != nil {
		t.Fatal(err)
	}
	for {
		more, err := conn.Write()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	if len(sock.sent) != 1 {
		t.Fatalf("expected 1 notification frame, got %d", len(sock.sent))
	}
	var notif att.HandleValueNotification
	if err := notif.UnmarshalBinary(sock.sent[0]); err != nil {
		t.Fatal(err)
	}
	if notif.Handle != level.Handle() || !bytes.Equal(notif.Value, []byte{42}) {
		t.Errorf("notification = %+v", notif)
	}
	if gotHandle != level.Handle() || !bytes.Equal(gotValue, []byte{42}) || !gotUUID.Equal(level.UUID) {
		t.Errorf("DidWrite not invoked with committed value: uuid=%v handle=%d value=%x", gotUUID, gotHandle, gotValue)
	}
}

func TestNotifyTruncatesToMTUMinus3(t *testing.T) {
	srv, conn, sock, _, level := newTestServer()

	attr, _ := srv.db.Get(level.DeclHandle() + 2) // CCC descriptor handle
	attr.Value = []byte{byte(CCCNotify), 0x00}

	long := bytes.Repeat([]byte{0x7A}, 40)
	sock.sent = nil
	if err := srv.WriteValue(level.Handle(), long); err != nil {
		t.Fatal(err)
	}
	for {
		more, err := conn.Write()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	var notif att.HandleValueNotification
	if err := notif.UnmarshalBinary(sock.sent[0]); err != nil {
		t.Fatal(err)
	}
	want := long[:conn.MTU()-3]
	if !bytes.Equal(notif.Value, want) {
		t.Errorf("notification value len = %d, want truncated to %d", len(notif.Value), len(want))
	}

	attr2, _ := srv.db.Get(level.Handle())
	if !bytes.Equal(attr2.Value, long) {
		t.Errorf("database value must be committed untruncated, got %x", attr2.Value)
	}
}

func drain(t *testing.T, conn *att.Connection) {
	t.Helper()
	for {
		more, err := conn.Write()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
}

func TestWriteValueUUIDAddressesFirstMatch(t *testing.T) {
	srv, _, _, _, level := newTestServer()

	found, err := srv.WriteValueUUID(uuid.UUID16(0x2A19), []byte{55})
	if err != nil || !found {
		t.Fatalf("WriteValueUUID = %v, %v; want found", found, err)
	}
	attr, _ := srv.Database().Get(level.Handle())
	if !bytes.Equal(attr.Value, []byte{55}) {
		t.Errorf("committed value = %x, want 37", attr.Value)
	}

	if found, _ := srv.WriteValueUUID(uuid.UUID16(0xDEAD), nil); found {
		t.Error("an absent attribute type must report found=false")
	}
}

func TestIndicationsSerializeUntilConfirmation(t *testing.T) {
	srv, conn, sock, _, level := newTestServer()

	attr, _ := srv.db.Get(level.DeclHandle() + 2) // CCC descriptor handle
	attr.Value = []byte{byte(CCCIndicate), 0x00}

	sock.sent = nil
	if err := srv.WriteValue(level.Handle(), []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := srv.WriteValue(level.Handle(), []byte{2}); err != nil {
		t.Fatal(err)
	}
	drain(t, conn)
	if len(sock.sent) != 1 {
		t.Fatalf("expected exactly 1 indication before confirmation, got %d frames", len(sock.sent))
	}

	cnf, _ := (&att.HandleValueConfirmation{}).MarshalBinary()
	sock.inbox = cnf
	if _, err := conn.Read(); err != nil {
		t.Fatal(err)
	}
	sock.sent = nil
	drain(t, conn)
	if len(sock.sent) != 1 {
		t.Fatalf("expected the queued indication after confirmation, got %d frames", len(sock.sent))
	}
	var ind att.HandleValueIndication
	if err := ind.UnmarshalBinary(sock.sent[0]); err != nil {
		t.Fatal(err)
	}
	if ind.Handle != level.Handle() || !bytes.Equal(ind.Value, []byte{2}) {
		t.Errorf("second indication = %+v, want handle=%d value=02", ind, level.Handle())
	}
}

func TestQueryHandlersRejectInvalidHandleRange(t *testing.T) {
	_, conn, sock, _, _ := newTestServer()

	cases := []struct {
		name string
		req  att.PDU
	}{
		{"ReadByType zero start", &att.ReadByTypeRequest{StartingHandle: 0, EndingHandle: 0xFFFF, AttributeType: CharacteristicUUID}},
		{"ReadByType start>end", &att.ReadByTypeRequest{StartingHandle: 5, EndingHandle: 4, AttributeType: CharacteristicUUID}},
		{"ReadByGroupType zero start", &att.ReadByGroupTypeRequest{StartingHandle: 0, EndingHandle: 0xFFFF, AttributeType: PrimaryServiceUUID}},
		{"FindInformation start>end", &att.FindInformationRequest{StartingHandle: 9, EndingHandle: 2}},
		{"FindByTypeValue zero start", &att.FindByTypeValueRequest{StartingHandle: 0, EndingHandle: 0xFFFF, AttributeType: 0x2800, AttributeValue: []byte{0x0F, 0x18}}},
	}
	for _, tc := range cases {
		b, err := tc.req.MarshalBinary()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		out := exchange(t, conn, sock, b)
		var errResp att.ErrorResponse
		if err := errResp.UnmarshalBinary(out[0]); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if errResp.Error != att.ErrInvalidHandle {
			t.Errorf("%s: error = %v, want InvalidHandle", tc.name, errResp.Error)
		}
	}
}
