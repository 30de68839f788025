package messaging

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
)

// maxMessageSize bounds a single request line
const maxMessageSize = 64 * 1024

// Server answers newline-delimited JSON requests on a listener
type Server struct {
	handler *Handler
	ln      net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewServer creates a server around an existing listener
func NewServer(h *Handler, ln net.Listener) *Server {
	return &Server{handler: h, ln: ln, conns: make(map[net.Conn]struct{})}
}

// Addr is the listening address
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is done. It closes the listener and
// every open connection before returning.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.ln.Close()
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
	})
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			// Shutdown already swept the open connections
			s.mu.Unlock()
			conn.Close()
			continue
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxMessageSize)
	w := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Errors are already encoded into the response
		resp, _ := s.handler.Handle(ctx, line)
		if resp == nil {
			return
		}
		if _, err := w.Write(append(resp, '\n')); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.handler.Log.Debug("Settings connection closed", "error", err)
	}
}
