package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/akbargherbal/gemini-fusion/internal/ai"
	"github.com/akbargherbal/gemini-fusion/internal/model"
)

// fakeStream plays back fragments, then ends with io.EOF or a given
// error. It counts Recv calls so tests can prove the relay stopped
// reading.
type fakeStream struct {
	fragments []string
	finalErr  error
	recvs     int
	closed    bool
}

func (f *fakeStream) Recv() (string, error) {
	f.recvs++
	if len(f.fragments) == 0 {
		if f.finalErr != nil {
			return "", f.finalErr
		}
		return "", io.EOF
	}
	frag := f.fragments[0]
	f.fragments = f.fragments[1:]
	return frag, nil
}

func (f *fakeStream) Close() {
	f.closed = true
}

func TestRelay(t *testing.T) {
	Convey("Relay forwards fragments in order and reports the outcome", t, func() {
		ctx := context.Background()

		Convey("a normally terminated sequence completes with the full text", func() {
			stream := &fakeStream{fragments: []string{"Hello", ", ", "world", "!"}}
			var got []string

			outcome := Relay(ctx, stream, func(frag string) error {
				got = append(got, frag)
				return nil
			})

			So(outcome.Status, ShouldEqual, RelayCompleted)
			So(outcome.Err, ShouldBeNil)
			So(got, ShouldResemble, []string{"Hello", ", ", "world", "!"})
			So(outcome.Text, ShouldEqual, strings.Join(got, ""))
			So(stream.closed, ShouldBeTrue)
		})

		Convey("a mid-stream failure after delivered fragments is partial", func() {
			upErr := &ai.UpstreamError{Kind: model.StatusTransportError, Err: errors.New("connection reset")}
			stream := &fakeStream{fragments: []string{"a", "b"}, finalErr: upErr}

			outcome := Relay(ctx, stream, func(string) error { return nil })

			So(outcome.Status, ShouldEqual, RelayPartial)
			So(outcome.Text, ShouldEqual, "ab")
			So(errors.Is(outcome.Err, upErr), ShouldBeTrue)
			So(stream.closed, ShouldBeTrue)
		})

		Convey("a failure before any fragment is a total failure with empty text", func() {
			upErr := &ai.UpstreamError{Kind: model.StatusAuthError, Err: errors.New("401 unauthorized")}
			stream := &fakeStream{finalErr: upErr}

			called := false
			outcome := Relay(ctx, stream, func(string) error {
				called = true
				return nil
			})

			So(outcome.Status, ShouldEqual, RelayTotalFailure)
			So(outcome.Text, ShouldBeEmpty)
			So(called, ShouldBeFalse)
		})

		Convey("a forward failure stops upstream reads immediately", func() {
			stream := &fakeStream{fragments: []string{"a", "b", "c", "d"}}
			delivered := 0

			outcome := Relay(ctx, stream, func(string) error {
				if delivered == 2 {
					return errors.New("client gone")
				}
				delivered++
				return nil
			})

			So(outcome.Status, ShouldEqual, RelayPartial)
			// only the two delivered fragments are accumulated
			So(outcome.Text, ShouldEqual, "ab")
			// two successful forwards plus the failed one, no reads after
			So(stream.recvs, ShouldEqual, 3)
			So(stream.closed, ShouldBeTrue)
		})

		Convey("cancellation between fragments ends the relay with what was delivered", func() {
			cancelCtx, cancel := context.WithCancel(ctx)
			stream := &fakeStream{fragments: []string{"x", "y", "z"}}
			var got []string

			outcome := Relay(cancelCtx, stream, func(frag string) error {
				got = append(got, frag)
				if len(got) == 2 {
					cancel()
				}
				return nil
			})

			So(outcome.Status, ShouldEqual, RelayPartial)
			So(outcome.Text, ShouldEqual, "xy")
			So(errors.Is(outcome.Err, context.Canceled), ShouldBeTrue)
			// the read for "z" never happened
			So(stream.recvs, ShouldEqual, 2)
		})

		Convey("cancellation before the first fragment is a total failure", func() {
			cancelCtx, cancel := context.WithCancel(ctx)
			cancel()
			stream := &fakeStream{fragments: []string{"never"}}

			outcome := Relay(cancelCtx, stream, func(string) error { return nil })

			So(outcome.Status, ShouldEqual, RelayTotalFailure)
			So(outcome.Text, ShouldBeEmpty)
			So(stream.recvs, ShouldEqual, 0)
			So(stream.closed, ShouldBeTrue)
		})
	})
}
