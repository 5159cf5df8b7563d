package ctxutil

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRequestID(t *testing.T) {
	Convey("request ids round-trip through the context", t, func() {
		ctx := WithRequestID(context.Background(), "req-1")

		id, ok := GetRequestID(ctx)
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, "req-1")

		Convey("a context without an id reports none", func() {
			_, ok := GetRequestID(context.Background())
			So(ok, ShouldBeFalse)
		})

		Convey("an empty id reports none", func() {
			_, ok := GetRequestID(WithRequestID(context.Background(), ""))
			So(ok, ShouldBeFalse)
		})
	})
}
