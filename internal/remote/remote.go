// Package remote puts the bus of an emulator in another process. The
// emulator dials a peripheral host and every Read8, Write8 and trace line
// becomes an event the host answers.
package remote

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/nevisdale/micro6502/internal/bus"
)

var _ bus.Bus = (*Bus)(nil)

// Bus is a bus.Bus backed by a peripheral host. The bus contract has no
// error path, so the first failure is kept and returned by Err, and every
// later access is a no-op reading zero.
type Bus struct {
	conn conn
	err  error
}

// Dial connects to a peripheral host. Supported URLs are ws://, wss:// and
// tcp://host:port.
func Dial(ctx context.Context, rawURL string) (*Bus, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote bus url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		c, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("couldn't dial %s: %w", rawURL, err)
		}
		return newBus(newWSConn(c)), nil

	case "tcp":
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("couldn't dial %s: %w", rawURL, err)
		}
		return newBus(newTCPConn(c)), nil
	}

	return nil, fmt.Errorf("unsupported remote bus scheme %q", u.Scheme)
}

func newBus(c conn) *Bus {
	return &Bus{conn: c}
}

func (b *Bus) Read8(addr uint16) uint8 {
	if b.err != nil {
		return 0
	}
	v, err := b.eventReadBus(addr)
	if err != nil {
		b.err = fmt.Errorf("read $%04X: %w", addr, err)
		return 0
	}
	return v
}

func (b *Bus) Write8(addr uint16, data uint8) {
	if b.err != nil {
		return
	}
	if err := b.eventWriteBus(addr, data); err != nil {
		b.err = fmt.Errorf("write $%04X: %w", addr, err)
	}
}

// Trace forwards one executed instruction to the host. Text longer than
// 255 bytes is cut.
func (b *Bus) Trace(pc uint16, opcode uint8, text string) {
	if b.err != nil {
		return
	}
	if len(text) > maxTraceText {
		text = text[:maxTraceText]
	}
	if err := b.eventTraceExec(pc, opcode, text); err != nil {
		b.err = fmt.Errorf("trace $%04X: %w", pc, err)
	}
}

// Err returns the first failure on the link.
func (b *Bus) Err() error {
	return b.err
}

// Close says bye to the host and drops the connection.
func (b *Bus) Close() error {
	if b.err == nil {
		_ = b.conn.out(newMessage(opbyteBye, 0))
	}
	return b.conn.close()
}

func (b *Bus) eventReadBus(addr uint16) (uint8, error) {
	event := newMessage(opbyteEventReadBus, 2)
	event.appendW(addr)
	if err := b.conn.out(event); err != nil {
		return 0, err
	}
	if err := expectAckOrFail(b.conn); err != nil {
		return 0, err
	}
	return b.conn.inB()
}

func (b *Bus) eventWriteBus(addr uint16, v uint8) error {
	event := newMessage(opbyteEventWriteBus, 3)
	event.appendW(addr)
	event.appendB(v)
	if err := b.conn.out(event); err != nil {
		return err
	}
	return expectAckOrFail(b.conn)
}

func (b *Bus) eventTraceExec(pc uint16, opcode uint8, text string) error {
	event := newMessage(opbyteEventTraceExec, 4+len(text))
	event.appendW(pc)
	event.appendB(opcode)
	event.appendS(text)
	if err := b.conn.out(event); err != nil {
		return err
	}
	return expectAckOrFail(b.conn)
}
