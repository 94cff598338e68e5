package server

import (
	"context"
	"log"
	"net"
	"os"
	"sync"
)

// Server listens on a Unix domain socket and hands accepted clients
// over to their sessions.
type Server struct {
	addr     string
	manager  *Manager
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

func NewServer(addr string, manager *Manager) *Server {
	if manager == nil {
		manager = NewManager(Options{})
	}
	return &Server{addr: addr, manager: manager, quit: make(chan struct{})}
}

func (s *Server) Start() error {
	if err := os.RemoveAll(s.addr); err != nil {
		return err
	}
	l, err := net.Listen("unix", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			continue
		}

		s.wg.Add(1)
		go func(nc net.Conn) {
			defer s.wg.Done()
			defer nc.Close()

			session, err := handleHandshake(nc, s.manager)
			if err != nil {
				log.Printf("server: handshake failed: %v", err)
				return
			}
			c := newConnection(nc, session)
			if err := session.Attach(c); err != nil {
				return
			}
			if err := c.serve(); err != nil {
				log.Printf("server: connection error: %v", err)
			}
		}(conn)
	}
}

// Stop closes the listener and waits for connections, bounded by ctx.
// Sessions keep running; close them through the Manager.
func (s *Server) Stop(ctx context.Context) error {
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Server) Manager() *Manager {
	return s.manager
}
