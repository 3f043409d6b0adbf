// Command gattserver is a demonstration GATT server: it builds a small
// Battery Service database and drives it over an in-process loopback
// socket, since a real L2CAP transport is out of this core's scope. It
// exists to exercise att.Connection and gatt.Server the way a caller
// wiring in a real Socket would, generalizing the teacher's sample.go.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/go-ble/attgatt/att"
	"github.com/go-ble/attgatt/gatt"
	"github.com/go-ble/attgatt/uuid"
)

// loopback is an att.Socket that delivers whatever is enqueued with feed
// on the next Recv call, and logs every Send at debug level. It has no
// peer of its own; main feeds it the client's request bytes directly.
type loopback struct {
	name   string
	sec    att.SecurityLevel
	logger logrus.FieldLogger
	inbox  [][]byte
}

func (l *loopback) feed(b []byte) { l.inbox = append(l.inbox, b) }

func (l *loopback) Recv() ([]byte, error) {
	if len(l.inbox) == 0 {
		return nil, fmt.Errorf("%s: no pending frame", l.name)
	}
	b := l.inbox[0]
	l.inbox = l.inbox[1:]
	return b, nil
}

func (l *loopback) Send(b []byte) error {
	l.logger.WithField("socket", l.name).Debugf("-> %x", b)
	return nil
}

func (l *loopback) SecurityLevel() att.SecurityLevel { return l.sec }

func buildDatabase(deviceName string) *gatt.Database {
	db := gatt.NewDatabase()

	gap := gatt.NewService(uuid.UUID16(0x1800)) // Generic Access
	name := gap.AddCharacteristic(uuid.UUID16(0x2A00))
	name.Properties = gatt.PropRead
	name.Permissions = gatt.PermRead
	name.Value = []byte(deviceName)
	db.Add(gap)

	battery := gatt.NewService(uuid.UUID16(0x180F)) // Battery Service
	level := battery.AddCharacteristic(uuid.UUID16(0x2A19))
	level.Properties = gatt.PropRead | gatt.PropNotify
	level.Permissions = gatt.PermRead
	level.Value = []byte{100}
	ccc := level.AddDescriptor(gatt.ClientCharacteristicConfigUUID)
	ccc.Permissions = gatt.PermRead | gatt.PermWrite
	ccc.Value = []byte{0x00, 0x00}
	db.Add(battery)

	// Nordic UART Service, the customary vendor example for a 128-bit
	// service with a writable RX characteristic.
	uart := gatt.NewService(uuid.MustParse128("6e400001-b5a3-f393-e0a9-e50e24dcca9e"))
	rx := uart.AddCharacteristic(uuid.MustParse128("6e400002-b5a3-f393-e0a9-e50e24dcca9e"))
	rx.Properties = gatt.PropWrite | gatt.PropWriteWithoutResponse
	rx.Permissions = gatt.PermWrite
	db.Add(uart)

	return db
}

func run(c *cli.Context) error {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	db := buildDatabase(c.String("name"))

	sock := &loopback{name: "server", sec: att.SecurityLow, logger: logger}
	conn := att.NewConnection(sock, 23, logger)
	srv := gatt.NewServer(db, conn, c.Int("mtu"), logger)
	srv.MaximumPreparedWrites = c.Int("max-prepared-writes")

	srv.WillRead = func(u uuid.UUID, handle uint16, value []byte, offset int) att.ErrorCode {
		logger.WithFields(logrus.Fields{"uuid": u.String(), "handle": handle}).Debug("read")
		return 0
	}
	srv.DidWrite = func(u uuid.UUID, handle uint16, value []byte) {
		logger.WithFields(logrus.Fields{"uuid": u.String(), "handle": handle, "value": fmt.Sprintf("%x", value)}).Info("write committed")
	}

	mtuReq := &att.ExchangeMTURequest{ClientRxMTU: uint16(c.Int("mtu"))}
	b, err := mtuReq.MarshalBinary()
	if err != nil {
		return err
	}
	sock.feed(b)
	if _, err := srv.Read(); err != nil {
		return err
	}
	for {
		more, err := srv.Write()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	logger.WithField("mtu", srv.MTU()).Info("gattserver: ready")
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "gattserver"
	app.Usage = "run a demonstration GATT server"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "mtu", Value: 185, Usage: "preferred ATT MTU"},
		cli.IntFlag{Name: "max-prepared-writes", Value: 50, Usage: "prepared write queue depth"},
		cli.StringFlag{Name: "name", Value: "attgatt-demo", Usage: "GAP device name"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "logrus level"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
