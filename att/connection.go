package att

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Socket is the narrow transport interface the connection is handed,
// per spec.md §6.1: a framed, one-PDU-per-frame datagram channel plus the
// link's reported security level. Implementing a real L2CAP socket is out
// of scope for this core (spec.md §1); Socket is how a caller plugs one in.
type Socket interface {
	Send(b []byte) error
	Recv() ([]byte, error)
	SecurityLevel() SecurityLevel
}

// IndicationConfirmTimeout bounds how long a sent indication waits for its
// confirmation before the connection gives up on it, per spec.md §5's
// "timeout is implementation-defined, spec suggests 30s".
var IndicationConfirmTimeout = 30 * time.Second

// Handler is invoked when a PDU for the opcode it was registered against
// is dispatched off the read path. Per spec.md §5, handlers run
// synchronously on the connection's own cooperative execution context and
// must not themselves call Read or Write.
type Handler func(PDU)

type pendingRequest struct {
	respOpcode Opcode
	callback   func(PDU, error)
}

type pendingIndication struct {
	pdu      *HandleValueIndication
	callback func(error)
	timer    *time.Timer
}

// Connection implements the ATT connection state machine of spec.md §4.4:
// an outbound send queue, request/response continuation pairing, MTU
// tracking, and indication/confirmation serialization, all driven by the
// cooperative Read/Write pump described in spec.md §5.
type Connection struct {
	socket Socket
	logger logrus.FieldLogger

	mu sync.Mutex

	mtu int

	sendQueue [][]byte

	handlers map[Opcode]Handler

	pending *pendingRequest // at most one outstanding local request, per the BT Core Spec

	indicationInFlight *pendingIndication
	indicationQueue    []*pendingIndication

	// WritePending is invoked whenever the send queue transitions from
	// empty to non-empty, so a caller can integrate with its own event
	// loop instead of polling Write.
	WritePending func()
}

// NewConnection constructs a Connection over socket with the given initial
// (pre-exchange) MTU. If logger is nil, a disabled logrus.Logger is used.
func NewConnection(socket Socket, mtu int, logger logrus.FieldLogger) *Connection {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	if mtu < 23 {
		mtu = 23
	}
	return &Connection{
		socket:   socket,
		logger:   logger,
		mtu:      mtu,
		handlers: make(map[Opcode]Handler),
	}
}

// MTU returns the connection's current effective MTU.
func (c *Connection) MTU() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mtu
}

// SetMTU updates the connection's effective MTU, clamped to [23, 517] per
// spec.md §3.6.
func (c *Connection) SetMTU(mtu int) {
	if mtu < 23 {
		mtu = 23
	}
	if mtu > 517 {
		mtu = 517
	}
	c.mu.Lock()
	c.mtu = mtu
	c.mu.Unlock()
}

// SecurityLevel reports the underlying socket's link security level.
func (c *Connection) SecurityLevel() SecurityLevel {
	return c.socket.SecurityLevel()
}

// Register installs h as the handler for inbound PDUs carrying opcode op.
// Registering a handler for a response or confirmation opcode is
// pointless: those are routed to their waiting continuation instead.
func (c *Connection) Register(op Opcode, h Handler) {
	c.mu.Lock()
	c.handlers[op] = h
	c.mu.Unlock()
}

// enqueueLocked must be called with c.mu held. It reports whether the
// queue was empty, so the caller can invoke WritePending once the lock is
// released.
func (c *Connection) enqueueLocked(b []byte) (wasEmpty bool) {
	wasEmpty = len(c.sendQueue) == 0
	c.sendQueue = append(c.sendQueue, b)
	return wasEmpty
}

func (c *Connection) enqueue(b []byte) {
	c.mu.Lock()
	wasEmpty := c.enqueueLocked(b)
	c.mu.Unlock()
	if wasEmpty && c.WritePending != nil {
		c.WritePending()
	}
}

// Send enqueues a PDU that does not expect a response (a command,
// notification, or a response the server is sending back to a request).
func (c *Connection) Send(pdu PDU) error {
	b, err := pdu.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "att: encode outbound pdu")
	}
	c.enqueue(b)
	return nil
}

// SendError enqueues an ErrorResponse for the given failed request opcode
// and handle.
func (c *Connection) SendError(op Opcode, handle uint16, ec ErrorCode) error {
	return c.Send(NewErrorResponse(op, handle, ec))
}

// SendRequest enqueues pdu and registers callback to fire when a PDU with
// opcode expectedResp (or an ErrorResponse) is subsequently received. Only
// one request may be outstanding at a time, matching the BT Core Spec's
// "a client shall not send another request before it has received a
// response" rule; SendRequest returns an error if one is already pending.
func (c *Connection) SendRequest(pdu PDU, expectedResp Opcode, callback func(PDU, error)) error {
	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return errors.New("att: a request is already outstanding on this connection")
	}
	c.pending = &pendingRequest{respOpcode: expectedResp, callback: callback}
	c.mu.Unlock()

	b, err := pdu.MarshalBinary()
	if err != nil {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		return errors.Wrap(err, "att: encode outbound request")
	}
	c.enqueue(b)
	return nil
}

// SendIndication enqueues a HandleValueIndication, serialized per
// spec.md §4.6/§5: if another indication is already awaiting confirmation,
// this one queues and is sent only once the prior one confirms (or times
// out). callback fires with the eventual outcome (nil on confirmation,
// a timeout error otherwise).
func (c *Connection) SendIndication(handle uint16, value []byte, callback func(error)) {
	pi := &pendingIndication{
		pdu:      &HandleValueIndication{Handle: handle, Value: value},
		callback: callback,
	}
	c.mu.Lock()
	if c.indicationInFlight != nil {
		c.indicationQueue = append(c.indicationQueue, pi)
		c.mu.Unlock()
		return
	}
	wasEmpty := c.startIndicationLocked(pi)
	c.mu.Unlock()
	if wasEmpty && c.WritePending != nil {
		c.WritePending()
	}
}

// startIndicationLocked must be called with c.mu held. It reports whether
// the send queue transitioned from empty, so the caller can invoke
// WritePending once the lock is released.
func (c *Connection) startIndicationLocked(pi *pendingIndication) (wasEmpty bool) {
	c.indicationInFlight = pi
	pi.timer = time.AfterFunc(IndicationConfirmTimeout, func() {
		c.resolveIndication(errors.New("att: indication confirmation timed out"))
	})
	b, err := pi.pdu.MarshalBinary()
	if err != nil {
		pi.timer.Stop()
		c.indicationInFlight = nil
		if pi.callback != nil {
			go pi.callback(errors.Wrap(err, "att: encode indication"))
		}
		return false
	}
	return c.enqueueLocked(b)
}

// resolveIndication completes the in-flight indication with err, invokes
// its callback, and starts the next queued indication if any.
func (c *Connection) resolveIndication(err error) {
	c.mu.Lock()
	pi := c.indicationInFlight
	if pi == nil {
		c.mu.Unlock()
		return
	}
	pi.timer.Stop()
	c.indicationInFlight = nil

	wasEmpty := false
	if len(c.indicationQueue) > 0 {
		next := c.indicationQueue[0]
		c.indicationQueue = c.indicationQueue[1:]
		wasEmpty = c.startIndicationLocked(next)
	}
	c.mu.Unlock()

	if wasEmpty && c.WritePending != nil {
		c.WritePending()
	}
	if pi.callback != nil {
		pi.callback(err)
	}
}

// Read performs one socket receive and dispatches the decoded PDU (or
// reports a protocol error to the peer), per spec.md §4.4. It reports
// true if a PDU was processed. Socket errors propagate unchanged, per
// spec.md §7.
func (c *Connection) Read() (bool, error) {
	raw, err := c.socket.Recv()
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}

	pdu, known, err := Decode(raw)
	if err != nil {
		c.logger.WithError(err).Warn("att: discarding malformed pdu")
		_ = c.SendError(Opcode(raw[0]), 0, ErrInvalidPDU)
		return true, nil
	}
	if !known {
		c.logger.WithField("opcode", raw[0]).Warn("att: unsupported opcode")
		_ = c.SendError(Opcode(raw[0]), 0, ErrRequestNotSupported)
		return true, nil
	}

	c.dispatch(pdu)
	return true, nil
}

func (c *Connection) dispatch(pdu PDU) {
	op := pdu.Opcode()

	if op == OpHandleCnf {
		c.resolveIndication(nil)
		return
	}

	c.mu.Lock()
	pending := c.pending
	if pending != nil && (op == pending.respOpcode || op == OpError) {
		c.pending = nil
	} else {
		pending = nil
	}
	handler := c.handlers[op]
	c.mu.Unlock()

	if pending != nil {
		if op == OpError {
			errResp := pdu.(*ErrorResponse)
			pending.callback(nil, errors.Errorf("att: request failed: %s", errResp.Error))
		} else {
			pending.callback(pdu, nil)
		}
		return
	}

	if handler != nil {
		handler(pdu)
		return
	}

	c.logger.WithField("opcode", op).Debug("att: no handler registered for opcode")
}

// Write drains one pending outbound PDU and reports whether more remain
// queued afterward.
func (c *Connection) Write() (bool, error) {
	c.mu.Lock()
	if len(c.sendQueue) == 0 {
		c.mu.Unlock()
		return false, nil
	}
	b := c.sendQueue[0]
	c.sendQueue = c.sendQueue[1:]
	more := len(c.sendQueue) > 0
	c.mu.Unlock()

	if err := c.socket.Send(b); err != nil {
		return more, err
	}
	return more, nil
}
