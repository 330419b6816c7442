package remote

import (
	"encoding/binary"
	"fmt"
)

// Every message starts with an opbyte telling what kind of message it is.
// Words are sent big-endian. Events always come from the CPU side and the
// peripheral side answers each of them with ACK or FAIL.
type opbyte uint8

const (
	// 0x - Responses
	opbyteAck  = opbyte(0x00) // Acknowledged, event specific payload follows
	opbyteFail = opbyte(0x01) // Failed, no payload

	// 1x - General commands
	opbyteBye = opbyte(0x10) // Close the connection, no response

	// 8x - CPU events
	opbyteEventReadBus   = opbyte(0x80) // addr16 -> ACK value8
	opbyteEventWriteBus  = opbyte(0x81) // addr16 value8 -> ACK
	opbyteEventTraceExec = opbyte(0x82) // pc16 opcode8 len8 text -> ACK
)

const maxTraceText = 0xff

type sendBuf struct {
	buf  []uint8
	dest []uint8
}

func newMessage(typ opbyte, restLen int) sendBuf {
	buf := make([]uint8, restLen+1)
	buf[0] = uint8(typ)
	return sendBuf{buf: buf, dest: buf[1:]}
}

func newAckResponse(restLen int) sendBuf {
	return newMessage(opbyteAck, restLen)
}

func newFailResponse() sendBuf {
	return newMessage(opbyteFail, 0)
}

func (b *sendBuf) appendB(v uint8) {
	b.dest[0] = v
	b.dest = b.dest[1:]
}

func (b *sendBuf) appendW(v uint16) {
	binary.BigEndian.PutUint16(b.dest[0:2], v)
	b.dest = b.dest[2:]
}

// appendS writes a length-prefixed string. Callers cut it to maxTraceText.
func (b *sendBuf) appendS(s string) {
	b.appendB(uint8(len(s)))
	b.dest = b.dest[copy(b.dest, s):]
}

// conn is one end of a link, over TCP or WebSocket.
type conn interface {
	out(b sendBuf) error
	inB() (uint8, error)
	inW() (uint16, error)
	inS() (string, error)
	close() error
	remoteAddr() string
}

func expectAckOrFail(c conn) error {
	ackByte, err := c.inB()
	if err != nil {
		return err
	}
	switch opbyte(ackByte) {
	case opbyteAck:
		return nil
	case opbyteFail:
		return fmt.Errorf("communication error: expected ACK(%#x) got FAIL(%#x)", opbyteAck, opbyteFail)
	default:
		return fmt.Errorf("communication error: expected ACK(%#x) or FAIL(%#x), got %#x", opbyteAck, opbyteFail, ackByte)
	}
}

func checkSent(b sendBuf) {
	if len(b.dest) != 0 {
		panic("too many bytes were allocated")
	}
}
