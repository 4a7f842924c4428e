// Package message implements the version 0 p2pim wire message: its textual
// codec, checksum and proof-of-work formulas, and the verifier that admits
// or rejects a candidate frame.
package message

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Message is the sole protocol entity: a timestamped, checksummed, UTF-8
// payload carrying a nonce that makes its proof of work acceptable.
//
// A Message is constructed empty, stamped with SetTimestamp, paid with
// SetPayload (which fixes Checksum), mined to obtain a Nonce and
// InitialPow, and optionally re-evaluated with UpdatePow. Every field
// except CurrentPow is immutable once mining has produced a Nonce.
type Message struct {
	TimestampStr string
	TimestampObj time.Time
	Nonce        string
	Payload      string
	Checksum     string
	InitialPow   uint32
	CurrentPow   uint32
}

// New returns an empty, unstamped message.
func New() *Message {
	return &Message{}
}

// SetTimestamp stamps the message with now, truncated to second precision
// in UTC. Changing the timestamp of a previously-paid message invalidates
// its InitialPow until the nonce is re-mined.
func (m *Message) SetTimestamp(now time.Time) {
	m.TimestampObj = now.UTC().Truncate(time.Second)
	m.TimestampStr = m.TimestampObj.Format(timestampLayout)
}

// SetPayload fixes the message's payload and checksum. If no nonce has been
// mined yet it seeds one with the alphabet's first symbol so InitialPow is
// at least defined; callers almost always follow with a real mining pass.
func (m *Message) SetPayload(payload string) error {
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("payload too large: %d > %d bytes", len(payload), MaxPayloadBytes)
	}
	m.Payload = payload
	m.Checksum = Checksum(payload)
	if m.Nonce == "" {
		m.Nonce = strings.Repeat(string(NonceAlphabet[0]), NonceBytes)
	}
	pow, err := InitialPow(m.TimestampStr, m.Nonce, m.Checksum)
	if err != nil {
		return err
	}
	m.InitialPow = pow
	return nil
}

// Checksum returns the first ChecksumBytes hex characters of SHA-256(payload).
func Checksum(payload string) string {
	return digestHex([]byte(payload))[:ChecksumBytes]
}

// InitialPow computes |PowTarget - H| where H is the first PowHexBytes hex
// characters of SHA-256(timestampStr + nonce + checksum), interpreted as a
// base-16 integer. The hash runs over the hex text of the fields, never
// over any binary form.
func InitialPow(timestampStr, nonce, checksum string) (uint32, error) {
	hex := digestHex([]byte(timestampStr + nonce + checksum))
	h, err := strconv.ParseUint(hex[:PowHexBytes], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("pow hash decode: %w", err)
	}
	diff := int64(PowTarget) - int64(uint32(h))
	if diff < 0 {
		diff = -diff
	}
	return uint32(diff), nil
}

// String renders the message's wire form.
func (m *Message) String() string {
	return fmt.Sprintf(`["%s","%s","%s","%s","%s"]`, Version, m.TimestampStr, m.Nonce, m.Checksum, m.Payload)
}

// UpdatePow recomputes CurrentPow from InitialPow, the message's current
// wire-frame size, and its age relative to now. It is the only mutation a
// stored message ever undergoes.
func (m *Message) UpdatePow(now time.Time) {
	m.CurrentPow = currentPow(m.InitialPow, m.TimestampObj, len(m.String()), now)
}

func currentPow(initialPow uint32, timestampObj time.Time, frameBytes int, now time.Time) uint32 {
	age := now.Sub(timestampObj).Seconds()
	minAge := MinMessageAge.Seconds()
	if age < minAge {
		age = minAge
	}
	ageFactor := age / minAge

	size := float64(frameBytes)
	if size < float64(MinMessageBytes) {
		size = float64(MinMessageBytes)
	}
	sizeFactor := size / float64(MinMessageBytes)

	val := math.Floor(float64(initialPow) * ageFactor * sizeFactor)
	if val > float64(PowMax) {
		return PowMax
	}
	if val < 0 {
		return 0
	}
	return uint32(val)
}
