package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/akbargherbal/gemini-fusion/internal/ai"
)

// RelayStatus is the terminal state of one relayed stream.
type RelayStatus int

const (
	// RelayCompleted: the upstream sequence ended normally.
	RelayCompleted RelayStatus = iota
	// RelayPartial: the stream ended early after at least one fragment
	// reached the client (upstream failure or client disconnect).
	RelayPartial
	// RelayTotalFailure: the stream failed before any fragment reached
	// the client.
	RelayTotalFailure
)

// RelayOutcome is the result of one relay. Text is the exact
// concatenation of the fragments delivered to the client, in order.
// Err is nil only for RelayCompleted.
type RelayOutcome struct {
	Text   string
	Status RelayStatus
	Err    error
}

// Relay pumps the token stream to onFragment one fragment at a time,
// strictly in upstream order, accumulating the delivered text. Each
// fragment is forwarded before the next upstream read, so the client
// sees fragments exactly as they were produced.
//
// An onFragment error means the client is gone: the relay stops reading
// from the upstream immediately and reports what was delivered so far.
// Cancellation of ctx is checked before every upstream read. The stream
// is always closed before returning.
func Relay(ctx context.Context, stream ai.TokenStream, onFragment func(string) error) RelayOutcome {
	defer stream.Close()

	var buf strings.Builder
	delivered := 0

	for {
		if err := ctx.Err(); err != nil {
			return earlyOutcome(&buf, delivered, err)
		}

		frag, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return RelayOutcome{Text: buf.String(), Status: RelayCompleted}
			}
			return earlyOutcome(&buf, delivered, err)
		}

		if err := onFragment(frag); err != nil {
			return earlyOutcome(&buf, delivered, err)
		}
		buf.WriteString(frag)
		delivered++
	}
}

func earlyOutcome(buf *strings.Builder, delivered int, err error) RelayOutcome {
	status := RelayTotalFailure
	if delivered > 0 {
		status = RelayPartial
	}
	return RelayOutcome{Text: buf.String(), Status: status, Err: err}
}
