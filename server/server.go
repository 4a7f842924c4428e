// Package server implements the admission engine that keeps a bounded,
// proof-of-work-ranked store of messages, and the one-message-per-connection
// handler that feeds it.
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/p2pim/p2pim/message"
	"github.com/p2pim/p2pim/store"
)

// Reserved payloads handled administratively rather than stored. The set is
// closed; any other payload is subject to ordinary admission.
const (
	controlInfo     = "__info__"
	controlMessages = "__messages__"
	controlExit     = "__exit__"
	controlMemory   = "__memory__"
)

// Server owns the message store and the required_pow watermark. Both are
// mutated only inside the critical section held by Process, which keeps
// admission atomic regardless of how many goroutines call it concurrently.
type Server struct {
	cfg Config
	log slog.Logger

	mu          sync.Mutex
	store       *store.Store
	requiredPow uint32
}

// New constructs a Server. A nil log discards all log output.
func New(cfg Config, log slog.Logger) *Server {
	if log == nil {
		log = slog.Disabled
	}
	return &Server{
		cfg:         cfg,
		log:         log,
		store:       store.New(),
		requiredPow: message.PowMax,
	}
}

// TestMode reports whether the server's clock is pinned, which is also what
// unlocks the __exit__ and __memory__ control payloads.
func (s *Server) TestMode() bool {
	return s.cfg.CurrentTime != nil
}

func (s *Server) now() time.Time {
	if s.cfg.CurrentTime != nil {
		return s.cfg.CurrentTime.UTC()
	}
	return time.Now().UTC()
}

// RequiredPow returns the current admission watermark.
func (s *Server) RequiredPow() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requiredPow
}

// Process runs one message through verification, control-payload handling,
// and admission, and returns the reply to send back (already newline
// terminated) plus whether the caller should now terminate the process
// (only ever true for __exit__ in test mode).
//
// The entire call executes under Server's lock: verification, eviction, and
// the watermark update are one atomic step with respect to every other
// connection.
func (s *Server) Process(data []byte) (reply string, shouldExit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	m, err := message.Parse(string(data), s.requiredPow, now)
	if err != nil {
		return err.Error() + "\n", false
	}

	switch m.Payload {
	case controlInfo:
		return requiredPowLine(s.requiredPow), false
	case controlMessages:
		var b strings.Builder
		for _, stored := range s.store.Iter() {
			b.WriteString(stored.String())
			b.WriteString("\n")
		}
		return b.String(), false
	case controlExit:
		if s.TestMode() {
			return "Exiting...\n", true
		}
		return "Ignoring __exit__\n", false
	case controlMemory:
		if s.TestMode() {
			return fmt.Sprintf("Total memory used by messages: %d\n", s.store.UsedBytes()), false
		}
		return "Ignoring __memory__\n", false
	}

	frame := m.String()
	for s.store.Len() > 0 && len(frame)+s.store.UsedBytes() > s.cfg.MemBytes {
		worstInitial, worstCurrent, ok := s.store.Worst(now)
		if !ok {
			break
		}
		if m.CurrentPow > worstCurrent {
			s.log.Debugf("rejecting message: current_pow=%d weaker than resident worst_current=%d", m.CurrentPow, worstCurrent)
			return fmt.Sprintf("Required pow: 0x%0*x\n", message.PowHexBytes, worstCurrent), false
		}
		s.store.Remove(worstInitial)
	}

	s.store.Insert(m)
	if m.CurrentPow > s.requiredPow {
		s.requiredPow = m.CurrentPow
	}
	s.log.Debugf("admitted message initial_pow=0x%x current_pow=0x%x required_pow=0x%x", m.InitialPow, m.CurrentPow, s.requiredPow)
	return "ok\n", false
}

func requiredPowLine(requiredPow uint32) string {
	return fmt.Sprintf("Required pow: 0x%0*x\n", message.PowHexBytes, requiredPow)
}
