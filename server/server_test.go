package server

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/p2pim/p2pim/message"
)

func mineFrame(t *testing.T, timestampStr, payload string, requiredPow uint32) string {
	t.Helper()
	checksum := message.Checksum(payload)
	indices := make([]int, message.NonceBytes)
	candidate := make([]byte, message.NonceBytes)
	for {
		for i, idx := range indices {
			candidate[i] = message.NonceAlphabet[idx]
		}
		nonce := string(candidate)
		pow, err := message.InitialPow(timestampStr, nonce, checksum)
		if err != nil {
			t.Fatalf("initial pow: %v", err)
		}
		if pow < requiredPow {
			return fmt.Sprintf(`["0","%s","%s","%s","%s"]`, timestampStr, nonce, checksum, payload)
		}
		i := len(indices) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(message.NonceAlphabet) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			t.Fatalf("exhausted nonce space mining test fixture")
		}
	}
}

func newTestServer(t *testing.T, memBytes int, now time.Time) *Server {
	t.Helper()
	cfg := Config{Addr: "127.0.0.1", Port: 8765, MemBytes: memBytes, CurrentTime: &now}
	if err := Validate(cfg); err != nil {
		t.Fatalf("invalid config: %v", err)
	}
	return New(cfg, nil)
}

func TestProcessAdmitsWellFormedMessage(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, 1<<20, now)
	frame := mineFrame(t, "20250101000000", "hello world", message.PowMax)

	reply, exit := s.Process([]byte(frame))
	if exit {
		t.Fatalf("exit = true, want false")
	}
	if reply != "ok\n" {
		t.Fatalf("reply = %q, want %q", reply, "ok\n")
	}
}

func TestProcessRejectsBadFrameWithVerifierError(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, 1<<20, now)

	reply, _ := s.Process([]byte(`["0","bad"]`))
	if !strings.HasPrefix(reply, "Message too short") {
		t.Fatalf("reply = %q, want Message too short prefix", reply)
	}
}

func TestProcessInfoReturnsRequiredPow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, 1<<20, now)
	frame := mineFrame(t, "20250101000000", "__info__", message.PowMax)

	reply, _ := s.Process([]byte(frame))
	want := fmt.Sprintf("Required pow: 0x%0*x\n", message.PowHexBytes, message.PowMax)
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestProcessMessagesListsStoredFrames(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, 1<<20, now)

	stored := mineFrame(t, "20250101000000", "hello world", message.PowMax)
	if reply, _ := s.Process([]byte(stored)); reply != "ok\n" {
		t.Fatalf("insert reply = %q, want ok", reply)
	}

	listFrame := mineFrame(t, "20250101000000", "__messages__", message.PowMax)
	reply, _ := s.Process([]byte(listFrame))
	if !strings.Contains(reply, "hello world") {
		t.Fatalf("__messages__ reply %q does not contain the stored payload", reply)
	}
}

func TestProcessExitOnlyInTestMode(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, 1<<20, now)
	frame := mineFrame(t, "20250101000000", "__exit__", message.PowMax)

	reply, exit := s.Process([]byte(frame))
	if !exit {
		t.Fatalf("exit = false, want true in test mode")
	}
	if reply != "Exiting...\n" {
		t.Fatalf("reply = %q, want %q", reply, "Exiting...\n")
	}
}

func TestProcessMemoryOnlyInTestMode(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, 1<<20, now)
	stored := mineFrame(t, "20250101000000", "hello world", message.PowMax)
	if reply, _ := s.Process([]byte(stored)); reply != "ok\n" {
		t.Fatalf("insert reply = %q, want ok", reply)
	}

	memFrame := mineFrame(t, "20250101000000", "__memory__", message.PowMax)
	reply, _ := s.Process([]byte(memFrame))
	if !strings.HasPrefix(reply, "Total memory used by messages:") {
		t.Fatalf("reply = %q, want memory usage line", reply)
	}
}

func TestProcessEvictsWeakerResidentForStrongerNewcomer(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	weak := mineFrame(t, "20250101000000", "weak", message.PowMax>>1)
	s := newTestServer(t, len(weak), now)
	if reply, _ := s.Process([]byte(weak)); reply != "ok\n" {
		t.Fatalf("insert weak reply = %q, want ok", reply)
	}

	strong := mineFrame(t, "20250101000000", "strong!!", message.PowMax>>8)
	reply, _ := s.Process([]byte(strong))
	if reply != "ok\n" {
		t.Fatalf("insert strong reply = %q, want ok (should evict weak resident)", reply)
	}

	listFrame := mineFrame(t, "20250101000000", "__messages__", message.PowMax)
	list, _ := s.Process([]byte(listFrame))
	if strings.Contains(list, "weak") {
		t.Fatalf("weak message still present after eviction: %q", list)
	}
	if !strings.Contains(list, "strong!!") {
		t.Fatalf("strong message missing after insert: %q", list)
	}
}

func TestProcessRejectsNewcomerWeakerThanResidents(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	strong := mineFrame(t, "20250101000000", "strong!!", message.PowMax>>8)
	s := newTestServer(t, len(strong), now)
	if reply, _ := s.Process([]byte(strong)); reply != "ok\n" {
		t.Fatalf("insert strong reply = %q, want ok", reply)
	}

	weak := mineFrame(t, "20250101000000", "weak", message.PowMax>>1)
	reply, _ := s.Process([]byte(weak))
	if !strings.HasPrefix(reply, "Required pow: 0x") {
		t.Fatalf("reply = %q, want a Required pow rejection", reply)
	}
}
