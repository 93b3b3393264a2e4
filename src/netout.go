package vdl2

/*------------------------------------------------------------------
 *
 * Purpose:   	Provide decoded frames to other applications via TCP socket.
 *
 * Description:	Each rendered frame goes to every attached client.
 *		JSON output is one object per line so a client can
 *		split the stream on newlines.
 *
 *		Up to MAX_NET_CLIENTS clients can be attached at the same
 *		time.  A client can go away and come back again without
 *		restarting this application.
 *
 *		Anything the client sends us is read and ignored.  That
 *		is how we find out it went away.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

type TCPSink struct {
	mu       sync.Mutex
	listener net.Listener
	clients  [MAX_NET_CLIENTS]net.Conn
	wg       sync.WaitGroup
	closed   bool
}

// How long a slow client can hold up everyone else.
var tcp_write_timeout = 5 * time.Second

/*-------------------------------------------------------------------
 *
 * Name:        NewTCPSink
 *
 * Purpose:     Start listening for client applications.
 *
 * Inputs:	addr	- Listen address, e.g. ":5555".
 *
 * Description:	The accept loop runs until Close.
 *
 *--------------------------------------------------------------------*/

func NewTCPSink(addr string) (*TCPSink, error) {
	var listener, listenErr = net.Listen("tcp", addr)
	if listenErr != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, listenErr)
	}

	var s = &TCPSink{listener: listener} //nolint:exhaustruct

	s.wg.Add(1)
	go s.connect_listen_thread()

	return s, nil
}

// Actual listen address, useful when the port was 0.
func (s *TCPSink) Addr() net.Addr {
	return s.listener.Addr()
}

// Port number, for announcing.
func (s *TCPSink) Port() int {
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

func (s *TCPSink) free_slot() int {
	for c := range MAX_NET_CLIENTS {
		if s.clients[c] == nil {
			return c
		}
	}
	return -1
}

func (s *TCPSink) connect_listen_thread() {
	defer s.wg.Done()

	for {
		var conn, acceptErr = s.listener.Accept()
		if acceptErr != nil {
			if errors.Is(acceptErr, net.ErrClosed) {
				return
			}
			logger.Warn("Accept failed", "err", acceptErr)
			continue
		}

		s.mu.Lock()
		var client = s.free_slot()
		if client < 0 || s.closed {
			s.mu.Unlock()
			logger.Warn("Too many clients, rejecting", "remote", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}
		s.clients[client] = conn
		s.mu.Unlock()

		logger.Info("Attached to TCP client application", "client", client, "remote", conn.RemoteAddr())

		s.wg.Add(1)
		go s.client_read_thread(client, conn)
	}
}

func (s *TCPSink) client_read_thread(client int, conn net.Conn) {
	defer s.wg.Done()

	var buf = make([]byte, 256)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.drop(client, conn)
}

// Forget a client if it is still in its slot.
func (s *TCPSink) drop(client int, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients[client] == conn {
		s.clients[client] = nil
		_ = conn.Close()
		logger.Info("Closing connection to TCP client application", "client", client)
	}
}

// Number of attached clients.
func (s *TCPSink) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n = 0
	for _, c := range s.clients {
		if c != nil {
			n++
		}
	}
	return n
}

/*-------------------------------------------------------------------
 *
 * Name:        WriteMessage
 *
 * Purpose:     Send a message to all attached clients.
 *
 * Description:	A client that fails to take it is disconnected.
 *		No clients is not an error.
 *
 *--------------------------------------------------------------------*/

func (s *TCPSink) WriteMessage(msg []byte) error {
	s.mu.Lock()
	var conns = s.clients
	s.mu.Unlock()

	for client, conn := range conns {
		if conn == nil {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(tcp_write_timeout))
		if _, err := conn.Write(msg); err != nil {
			logger.Warn("Send to TCP client failed", "client", client, "err", err)
			s.drop(client, conn)
		}
	}

	return nil
}

func (s *TCPSink) Close() error {
	s.mu.Lock()
	s.closed = true
	for c, conn := range s.clients {
		if conn != nil {
			_ = conn.Close()
			s.clients[c] = nil
		}
	}
	s.mu.Unlock()

	var err = s.listener.Close()
	s.wg.Wait()
	return err
}
