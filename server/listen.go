package server

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/decred/slog"
)

// HandleConn reads one request to EOF, runs it through Process, writes the
// reply, and closes the connection. It reports whether the server process
// should now exit (true only for __exit__ in test mode).
func (s *Server) HandleConn(conn net.Conn) bool {
	defer conn.Close()

	data, err := io.ReadAll(conn)
	if err != nil && len(data) == 0 {
		s.log.Debugf("connection read from %s failed: %v", conn.RemoteAddr(), err)
		return false
	}

	reply, shouldExit := s.Process(data)
	if _, err := io.WriteString(conn, reply); err != nil {
		s.log.Debugf("connection write to %s failed: %v", conn.RemoteAddr(), err)
	}
	return shouldExit
}

// ListenAndServe accepts connections on ln, handling each on its own
// goroutine, until ctx is cancelled or a test-mode __exit__ is processed. ln
// is always closed before return.
func ListenAndServe(ctx context.Context, ln net.Listener, s *Server, log slog.Logger) error {
	if log == nil {
		log = slog.Disabled
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}
		go func() {
			if s.HandleConn(conn) {
				log.Infof("received __exit__ in test mode, shutting down")
				os.Exit(0)
			}
		}()
	}
}
