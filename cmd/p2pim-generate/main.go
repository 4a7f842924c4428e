// Command p2pim-generate mines and prints wire-format messages to stdout,
// one per positional argument payload.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/p2pim/p2pim/message"
	"github.com/p2pim/p2pim/miner"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("p2pim-generate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	currentTimeFlag := fs.String("current-time", "", "pretend current UTC time is this (YYYYMMDDhhmmss)")
	messageTimeFlag := fs.String("message-time", "", "stamp messages with this time instead of now (YYYYMMDDhhmmss)")
	powFlag := fs.String("pow", fmt.Sprintf("%0*x", message.PowHexBytes, message.PowMax), "mine to at most this hex distance from target")
	durationSeconds := fs.Int("duration", 10, "aim for this message lifetime in seconds before scaling --pow")
	debug := fs.Bool("debug", false, "print initial and current pow alongside each message")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	payloads := fs.Args()
	if len(payloads) == 0 {
		payloads = []string{"__info__"}
	}

	if *durationSeconds <= 0 {
		fmt.Fprintln(stderr, "Message duration must be > 0")
		return 1
	}
	duration := time.Duration(*durationSeconds) * time.Second

	requestedPow, err := strconv.ParseUint(*powFlag, 16, 32)
	if err != nil {
		fmt.Fprintf(stderr, "Couldn't parse minimum proof of work: %v\n", err)
		return 1
	}

	var currentTime *time.Time
	if *currentTimeFlag != "" {
		t, err := parseTimestamp(*currentTimeFlag)
		if err != nil {
			fmt.Fprintf(stderr, "Couldn't parse current-time: %v\n", err)
			return 1
		}
		currentTime = &t
	}
	var messageTime *time.Time
	if *messageTimeFlag != "" {
		t, err := parseTimestamp(*messageTimeFlag)
		if err != nil {
			fmt.Fprintf(stderr, "Couldn't parse message-time: %v\n", err)
			return 1
		}
		messageTime = &t
	}

	age := duration.Seconds()
	if minAge := message.MinMessageAge.Seconds(); age < minAge {
		age = minAge
	}
	ageRatio := age / message.MinMessageAge.Seconds()
	requiredPow := uint32(float64(requestedPow) / ageRatio)

	for _, payload := range payloads {
		now := time.Now().UTC()
		if currentTime != nil {
			now = *currentTime
		}
		stamp := time.Now().UTC()
		if messageTime != nil {
			stamp = *messageTime
		}

		m := message.New()
		m.SetTimestamp(stamp)
		if err := m.SetPayload(payload); err != nil {
			fmt.Fprintf(stderr, "invalid payload %q: %v\n", payload, err)
			return 1
		}
		if _, err := miner.Mine(context.Background(), m, requiredPow, now); err != nil {
			fmt.Fprintf(stderr, "mining %q failed: %v\n", payload, err)
			return 1
		}

		fmt.Fprint(stdout, m.String())
		if *debug {
			fmt.Fprintf(stdout, ", init PoW: %0*x  current PoW: %0*x",
				message.PowHexBytes, m.InitialPow, message.PowHexBytes, m.CurrentPow)
		}
		fmt.Fprintln(stdout)
	}
	return 0
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("20060102150405", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
