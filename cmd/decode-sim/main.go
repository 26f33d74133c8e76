package main

import (
	"context"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"ft8spotter/go-spotter/internal/wsjtx"
)

var defaultMessages = []string{
	"CQ K1ABC FN42",
	"CQ DX EA8BQM IL18",
	"EC1AIJ US2YW KN28",
	"K1ABC GD4XYZ IO74",
	"CQ 4W6A PI20",
	"VE3XYZ 1A0KM -15",
	"CQ POTA KG4ABC FK29",
}

func main() {
	target := flag.StringP("target", "t", "127.0.0.1:2237", "UDP address the spotter listens on")
	clientID := flag.String("id", "WSJT-X", "client id written into each datagram")
	interval := flag.Duration("interval", 15*time.Second, "time between decode periods")
	perPeriod := flag.Int("decodes", 3, "decodes sent per period")
	dialHz := flag.Uint64("dial", 14_074_000, "dial frequency reported in Status messages, in Hz")
	mode := flag.String("mode", "FT8", "mode reported in Status messages")
	messages := flag.StringSlice("message", nil, "decoded message text to cycle through (repeatable)")
	flag.Parse()

	if len(*messages) == 0 {
		*messages = defaultMessages
	}

	conn, err := net.Dial("udp", *target)
	if err != nil {
		log.Fatalf("failed to dial %s: %v", *target, err)
	}
	defer conn.Close()
	log.Printf("sending WSJT-X datagrams to %s as %s", *target, *clientID)

	enc := wsjtx.NewEncoder(*clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	send := func(datagram []byte) {
		if _, err := conn.Write(datagram); err != nil {
			log.Printf("send error: %v", err)
		}
	}

	next := 0
	period := func() {
		now := time.Now().UTC()
		send(enc.Status(*dialHz, strings.ToUpper(*mode)))
		for i := 0; i < *perPeriod; i++ {
			msg := (*messages)[next%len(*messages)]
			next++
			send(enc.Decode(wsjtx.DecodeEvent{
				New:            true,
				SinceMidnight:  wsjtx.SinceMidnight(now),
				SNR:            int32(rand.Intn(35) - 24),
				DeltaTime:      float64(rand.Intn(11)-5) / 10,
				DeltaFrequency: uint32(200 + rand.Intn(2800)),
				Mode:           wsjtx.NewText("~"),
				Message:        wsjtx.NewText(msg),
			}))
			log.Printf("sent decode %q", msg)
		}
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	period()

	for {
		select {
		case <-ctx.Done():
			log.Print("received shutdown signal, stopping")
			return
		case <-ticker.C:
			period()
		}
	}
}
