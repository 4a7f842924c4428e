// Package miner searches the nonce space of a message.Message for a nonce
// that makes its InitialPow beat a given upper bound.
package miner

import (
	"context"
	"errors"
	"time"

	"github.com/p2pim/p2pim/message"
)

// ErrPowUnreachable is returned when the entire nonce space has been
// enumerated without finding a candidate under requiredPow.
var ErrPowUnreachable = errors.New("miner: required pow unreachable across full nonce space")

// Mine enumerates NonceBytes-character nonces over message.NonceAlphabet in
// lexicographic order (lowercase before uppercase before digits), starting
// at the all-"a" nonce, until it finds one whose InitialPow is strictly
// less than requiredPow. On success it stamps msg's Nonce and InitialPow
// and refreshes CurrentPow against now, then returns the number of
// candidates tried, winner included.
//
// msg must already be stamped (SetTimestamp) and paid (SetPayload).
func Mine(ctx context.Context, msg *message.Message, requiredPow uint32, now time.Time) (uint64, error) {
	if msg == nil {
		return 0, errors.New("miner: nil message")
	}

	indices := make([]int, message.NonceBytes)
	candidate := make([]byte, message.NonceBytes)
	var tries uint64

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return tries, ctx.Err()
			default:
			}
		}

		for i, idx := range indices {
			candidate[i] = message.NonceAlphabet[idx]
		}
		tries++

		nonce := string(candidate)
		pow, err := message.InitialPow(msg.TimestampStr, nonce, msg.Checksum)
		if err != nil {
			return tries, err
		}
		if pow < requiredPow {
			msg.Nonce = nonce
			msg.InitialPow = pow
			msg.UpdatePow(now)
			return tries, nil
		}

		if !increment(indices) {
			return tries, ErrPowUnreachable
		}
	}
}

// increment advances a mixed-radix counter over len(message.NonceAlphabet)
// symbols, rightmost digit fastest. It reports whether the counter advanced
// to a new value; false means it rolled over all the way back to zero.
func increment(indices []int) bool {
	for i := len(indices) - 1; i >= 0; i-- {
		indices[i]++
		if indices[i] < len(message.NonceAlphabet) {
			return true
		}
		indices[i] = 0
	}
	return false
}
