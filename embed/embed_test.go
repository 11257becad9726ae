package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHostOf(t *testing.T) {
	Convey("HostOf", t, func() {
		So(HostOf("https://WWW.Sendvid.com/embed/abc"), ShouldEqual, "sendvid.com")
		So(HostOf("https://video.sibnet.ru/shell.php?videoid=1"), ShouldEqual, "video.sibnet.ru")
		So(HostOf("::not a url"), ShouldEqual, "")
	})
}

func TestHostMatches(t *testing.T) {
	Convey("HostMatches", t, func() {
		So(HostMatches("sibnet.ru", "sibnet.ru"), ShouldBeTrue)
		So(HostMatches("video.sibnet.ru", "sibnet.ru"), ShouldBeTrue)
		So(HostMatches("notsibnet.ru", "sibnet.ru"), ShouldBeFalse)
	})
}

func TestOrigin(t *testing.T) {
	Convey("Origin", t, func() {
		So(Origin("https://vidmoly.net/embed-x.html?a=1"), ShouldEqual, "https://vidmoly.net/")
		So(Origin("relative/path"), ShouldEqual, "")
	})
}

func TestFormatOf(t *testing.T) {
	Convey("FormatOf", t, func() {
		So(FormatOf("https://cdn.example/master.m3u8?token=x"), ShouldEqual, FormatHLS)
		So(FormatOf("https://cdn.example/manifest.mpd"), ShouldEqual, FormatDash)
		So(FormatOf("https://cdn.example/v/1.mp4"), ShouldEqual, FormatFile)
	})
}

func TestIsAbsoluteHTTP(t *testing.T) {
	Convey("IsAbsoluteHTTP", t, func() {
		So(IsAbsoluteHTTP("https://a.example/x.mp4"), ShouldBeTrue)
		So(IsAbsoluteHTTP("/v/1.mp4"), ShouldBeFalse)
		So(IsAbsoluteHTTP("ftp://a.example/x.mp4"), ShouldBeFalse)
	})
}

func TestErrors(t *testing.T) {
	Convey("Given taxonomy errors", t, func() {
		Convey("KindOf unwraps wrapped errors", func() {
			err := fmt.Errorf("sibnet: %w", ErrNoPatternMatch)
			So(KindOf(err), ShouldEqual, NoPatternMatch)
		})

		Convey("Deadline errors are timeouts", func() {
			err := fmt.Errorf("fetch: %w", context.DeadlineExceeded)
			So(KindOf(err), ShouldEqual, Timeout)
		})

		Convey("Unclassified errors are fetch failures", func() {
			So(KindOf(errors.New("connection reset")), ShouldEqual, FetchFailure)
		})

		Convey("Errorf keeps the wrapped cause", func() {
			cause := errors.New("status 503")
			err := Errorf(FetchFailure, "GET page: %w", cause)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "GET page: status 503")
		})

		Convey("Wrap does not override an existing kind", func() {
			err := Wrap(FetchFailure, ErrAllExpired)
			So(KindOf(err), ShouldEqual, AllCandidatesExpired)
		})
	})
}

func TestResults(t *testing.T) {
	Convey("Failed results always carry an error", t, func() {
		r := Failed("https://x.example/e", HostOther, ErrUnsupportedHost)
		So(r.Success, ShouldBeFalse)
		So(r.Error, ShouldEqual, "unsupported host")
		So(r.ErrorKind, ShouldEqual, UnsupportedHost)

		r = Failed("https://x.example/e", HostOther, nil)
		So(r.Error, ShouldNotBeEmpty)
	})

	Convey("Batch.Find matches by embed URL", t, func() {
		b := Batch{Results: []Result{
			Succeeded("https://a/1", "sibnet", "https://cdn/1.mp4", FormatFile, false),
		}}
		r, ok := b.Find("https://a/1")
		So(ok, ShouldBeTrue)
		So(r.DirectURL, ShouldEqual, "https://cdn/1.mp4")

		_, ok = b.Find("https://a/2")
		So(ok, ShouldBeFalse)
	})

	Convey("Batch.Tally counts outcomes and supported hosts", t, func() {
		b := Batch{
			Results: []Result{
				Succeeded("https://video.sibnet.ru/shell.php?videoid=1", "sibnet", "https://cdn/1.mp4", FormatFile, false),
				Failed("https://x.example/e", HostOther, ErrUnsupportedHost),
				Failed("", HostOther, ErrInvalidURL),
			},
			Stats: Stats{DurationMs: 12},
		}
		b.Tally(func(u string) bool { return HostMatches(HostOf(u), "sibnet.ru") })

		So(b.Stats, ShouldResemble, Stats{Total: 3, Supported: 1, Successful: 1, Failed: 2, DurationMs: 12})
	})
}
