package message

import (
	"fmt"
	"time"
)

const (
	prefix = `["` + Version + `","`
	suffix = `"]`
)

// Parse validates a candidate wire frame and, on success, returns a fully
// populated Message with InitialPow and CurrentPow set against requiredPow
// and now. On failure it returns a nil Message and a single-line diagnostic
// error; callers send that diagnostic verbatim (plus a trailing newline) to
// the client.
//
// Checks run in order and the first failure wins: length, framing, the
// timestamp's shape, the timestamp's relation to now, InitialPow against
// requiredPow, the timestamp's calendar validity, the checksum, and finally
// CurrentPow against requiredPow.
func Parse(s string, requiredPow uint32, now time.Time) (*Message, error) {
	if len(s) < OverheadBytes {
		return nil, fmt.Errorf("Message too short: %d<%d", len(s), OverheadBytes)
	}
	if s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("Wrong format/version")
	}
	if s[len(s)-len(suffix):] != suffix {
		return nil, fmt.Errorf("Wrong format/payload")
	}

	timestampStr := s[6 : 6+TimestampBytes]
	if !allDigits(timestampStr) {
		return nil, fmt.Errorf("Wrong format/datetime")
	}

	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	if timestampStr > now.Format(timestampLayout) {
		return nil, fmt.Errorf("Datetime in future")
	}

	nonceStart := 3 + (6 + TimestampBytes)
	nonce := s[nonceStart : nonceStart+NonceBytes]
	checksumStart := 3 + (nonceStart + NonceBytes)
	checksum := s[checksumStart : checksumStart+ChecksumBytes]

	initialPow, err := InitialPow(timestampStr, nonce, checksum)
	if err != nil {
		return nil, err
	}
	if initialPow > requiredPow {
		return nil, fmt.Errorf("Required PoW: 0x%0*x", PowHexBytes, requiredPow)
	}

	timestampObj, err := time.Parse(timestampLayout, timestampStr)
	if err != nil {
		return nil, fmt.Errorf("Wrong format/datetime")
	}
	timestampObj = timestampObj.UTC()

	payloadStart := 3 + (checksumStart + ChecksumBytes)
	payload := s[payloadStart : len(s)-2]
	if Checksum(payload) != checksum {
		return nil, fmt.Errorf("Wrong checksum")
	}

	currentPow := currentPow(initialPow, timestampObj, len(s), now)
	if currentPow > requiredPow {
		return nil, fmt.Errorf("Required PoW: 0x%0*x", PowHexBytes, requiredPow)
	}

	return &Message{
		TimestampStr: timestampStr,
		TimestampObj: timestampObj,
		Nonce:        nonce,
		Checksum:     checksum,
		Payload:      payload,
		InitialPow:   initialPow,
		CurrentPow:   currentPow,
	}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
