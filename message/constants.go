package message

import "time"

// Wire-format byte widths for a version 0 message. These are bit-exact parts
// of the protocol: changing any of them breaks compatibility with every
// message already mined or stored.
const (
	Version = "0"

	formatBytes   = 16 // quoting, commas, brackets: ["","","","",""]
	versionBytes  = 1
	TimestampBytes = 14 // YYYYMMDDhhmmss
	NonceBytes     = 10
	ChecksumBytes  = 12 // hex
	PowHexBytes    = 8  // hex chars of a pow value

	// OverheadBytes is the wire length of a message with an empty payload.
	OverheadBytes = formatBytes + TimestampBytes + NonceBytes + versionBytes + ChecksumBytes

	// MinMessageBytes is the size floor used by the size factor: messages
	// smaller than this are billed as if they were this large.
	MinMessageBytes = 8 + OverheadBytes

	MaxPayloadBytes = 128
	MaxMessageBytes = MaxPayloadBytes + OverheadBytes
)

// MinMessageAge is the age floor used by the age factor.
const MinMessageAge = 10 * time.Second

// PowTarget is the target used by the PoW formula. PowMax is the clamp
// ceiling for current_pow.
const (
	PowTarget uint32 = 0xFFFFFFFF
	PowMax    uint32 = 0xFFFFFFFF
)

// NonceAlphabet is the 62-symbol alphabet nonces are drawn from, in the
// order the miner enumerates them: lowercase, then uppercase, then digits.
const NonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const timestampLayout = "20060102150405"
