package remote

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"
)

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newTCPConn(c net.Conn) *tcpConn {
	return &tcpConn{
		conn:   c,
		reader: bufio.NewReader(c),
	}
}

func (c *tcpConn) out(b sendBuf) error {
	checkSent(b)
	_, err := c.conn.Write(b.buf)
	return err
}

func (c *tcpConn) inB() (uint8, error) {
	return c.reader.ReadByte()
}

func (c *tcpConn) inW() (uint16, error) {
	var buf [2]uint8
	if _, err := io.ReadFull(c.reader, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0])<<8 | uint16(buf[1]), nil
}

func (c *tcpConn) inS() (string, error) {
	n, err := c.inB()
	if err != nil {
		return "", err
	}
	buf := make([]uint8, n)
	if _, err := io.ReadFull(c.reader, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (c *tcpConn) close() error {
	return c.conn.Close()
}

func (c *tcpConn) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// wsConn sends every message as one binary frame. Reads are buffered
// across frames so a message may be split by the peer.
type wsConn struct {
	conn   *websocket.Conn
	msgBuf []uint8
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{conn: c}
}

func (c *wsConn) out(b sendBuf) error {
	checkSent(b)
	return c.conn.WriteMessage(websocket.BinaryMessage, b.buf)
}

func (c *wsConn) recvMsg() error {
	tp, msg, err := c.conn.ReadMessage()
	if err != nil {
		return err
	}
	if tp != websocket.BinaryMessage {
		return errors.New("expected binary message, got something else")
	}
	c.msgBuf = append(c.msgBuf, msg...)
	return nil
}

func (c *wsConn) next(n int) ([]uint8, error) {
	for len(c.msgBuf) < n {
		if err := c.recvMsg(); err != nil {
			return nil, err
		}
	}
	res := c.msgBuf[:n]
	c.msgBuf = c.msgBuf[n:]
	return res, nil
}

func (c *wsConn) inB() (uint8, error) {
	b, err := c.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *wsConn) inW() (uint16, error) {
	b, err := c.next(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (c *wsConn) inS() (string, error) {
	n, err := c.inB()
	if err != nil {
		return "", err
	}
	b, err := c.next(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *wsConn) close() error {
	return c.conn.Close()
}

func (c *wsConn) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}
