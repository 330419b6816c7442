package remote

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nevisdale/micro6502/internal/bus"
)

var wsUpgrader = websocket.Upgrader{} // use default options

// NewHandler serves b to emulators connecting over WebSocket.
// Connections are served concurrently, so b must tolerate that when more
// than one emulator is expected.
func NewHandler(b bus.Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("New client connection from %s", r.RemoteAddr)
		c, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("websocket upgrade error:", err)
			return
		}
		serve(newWSConn(c), b)
	})
}

// Serve accepts raw TCP connections on l until it fails and serves b on
// each of them.
func Serve(l net.Listener, b bus.Bus) error {
	log.Printf("Started TCP server at %s", l.Addr())
	for {
		c, err := l.Accept()
		if err != nil {
			return err
		}
		log.Printf("New client connection from %s", c.RemoteAddr())
		go ServeConn(c, b)
	}
}

// ServeConn serves b on one raw TCP connection until the emulator says bye
// or the link fails. The connection is closed on return.
func ServeConn(c net.Conn, b bus.Bus) {
	serve(newTCPConn(c), b)
}

func serve(c conn, b bus.Bus) {
	s := session{
		conn:   c,
		bus:    b,
		logger: log.New(log.Writer(), fmt.Sprintf("[client/%s] ", c.remoteAddr()), log.Flags()),
	}
	for !s.closed {
		if err := s.serveNext(); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Printf("Closing client connection due to an error: %v", err)
			}
			break
		}
	}
	s.logger.Printf("Closing client connection")
	_ = c.close()
	s.logger.Printf("Closed client connection")
}

type session struct {
	conn   conn
	bus    bus.Bus
	logger *log.Logger
	closed bool
}

func (s *session) serveNext() error {
	hdrByte, err := s.conn.inB()
	if err != nil {
		return err
	}

	switch opbyte(hdrByte) {
	case opbyteBye:
		s.closed = true

	case opbyteEventReadBus:
		addr, err := s.conn.inW()
		if err != nil {
			return err
		}
		res := newAckResponse(1)
		res.appendB(s.bus.Read8(addr))
		return s.conn.out(res)

	case opbyteEventWriteBus:
		addr, err := s.conn.inW()
		if err != nil {
			return err
		}
		v, err := s.conn.inB()
		if err != nil {
			return err
		}
		s.bus.Write8(addr, v)
		return s.conn.out(newAckResponse(0))

	case opbyteEventTraceExec:
		pc, err := s.conn.inW()
		if err != nil {
			return err
		}
		if _, err := s.conn.inB(); err != nil {
			return err
		}
		text, err := s.conn.inS()
		if err != nil {
			return err
		}
		s.logger.Printf("$%04X: %s", pc, text)
		return s.conn.out(newAckResponse(0))

	default:
		s.logger.Printf("Unrecognized message type %x", hdrByte)
		return s.conn.out(newFailResponse())
	}
	return nil
}
