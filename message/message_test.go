package message

import (
	"strings"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(timestampLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tm.UTC()
}

func TestChecksumKnownVectors(t *testing.T) {
	cases := map[string]string{
		"":            "e3b0c44298fc",
		"hello world": "b94d27b9934d",
	}
	for payload, want := range cases {
		if got := Checksum(payload); got != want {
			t.Fatalf("Checksum(%q) = %s, want %s", payload, got, want)
		}
	}
}

func TestSetPayloadRejectsOversize(t *testing.T) {
	m := New()
	m.SetTimestamp(mustTime(t, "20250101000000"))
	if err := m.SetPayload(strings.Repeat("x", MaxPayloadBytes+1)); err == nil {
		t.Fatalf("expected error for %d byte payload", MaxPayloadBytes+1)
	}
	if err := m.SetPayload(strings.Repeat("x", MaxPayloadBytes)); err != nil {
		t.Fatalf("unexpected error for %d byte payload: %v", MaxPayloadBytes, err)
	}
}

func TestStringRoundTripsThroughParse(t *testing.T) {
	m := New()
	m.SetTimestamp(mustTime(t, "20250101000000"))
	if err := m.SetPayload("hello world"); err != nil {
		t.Fatalf("set payload: %v", err)
	}
	m.Nonce = "aaaaaaaaaa"
	pow, err := InitialPow(m.TimestampStr, m.Nonce, m.Checksum)
	if err != nil {
		t.Fatalf("initial pow: %v", err)
	}
	m.InitialPow = pow

	now := mustTime(t, "20250101000000")
	parsed, err := Parse(m.String(), PowMax, now)
	if err != nil {
		t.Fatalf("parse round trip: %v", err)
	}
	if parsed.Payload != "hello world" {
		t.Fatalf("payload = %q, want %q", parsed.Payload, "hello world")
	}
	if parsed.Checksum != m.Checksum {
		t.Fatalf("checksum = %s, want %s", parsed.Checksum, m.Checksum)
	}
}

func TestCurrentPowGrowsWithAge(t *testing.T) {
	m := New()
	stamp := mustTime(t, "20250101000000")
	m.SetTimestamp(stamp)
	if err := m.SetPayload("hello world"); err != nil {
		t.Fatalf("set payload: %v", err)
	}
	m.Nonce = "aaaaaaaaaa"
	pow, err := InitialPow(m.TimestampStr, m.Nonce, m.Checksum)
	if err != nil {
		t.Fatalf("initial pow: %v", err)
	}
	m.InitialPow = pow

	m.UpdatePow(stamp)
	atMint := m.CurrentPow

	m.UpdatePow(stamp.Add(20 * MinMessageAge))
	later := m.CurrentPow

	if later <= atMint {
		t.Fatalf("current_pow did not grow with age: at_mint=%d later=%d", atMint, later)
	}
}

func TestCurrentPowClampsAtMax(t *testing.T) {
	stamp := mustTime(t, "20250101000000")
	got := currentPow(PowMax, stamp, MaxMessageBytes, stamp.Add(1000*MinMessageAge))
	if got != PowMax {
		t.Fatalf("current_pow = %d, want clamp at %d", got, PowMax)
	}
}
