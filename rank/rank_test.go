package rank

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidresolve/vidresolve/embed"
)

var now = time.Unix(1_700_000_000, 0)

func urls(cands []embed.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.URL
	}
	return out
}

func TestExpiryOf(t *testing.T) {
	Convey("ExpiryOf", t, func() {
		Convey("parses second timestamps", func() {
			exp, ok := ExpiryOf("https://cdn/v.mp4?e=1700003600").Get()
			So(ok, ShouldBeTrue)
			So(exp.Unix(), ShouldEqual, 1700003600)
		})

		Convey("parses millisecond timestamps", func() {
			exp, ok := ExpiryOf("https://cdn/v.mp4?expires=1700003600000&x=1").Get()
			So(ok, ShouldBeTrue)
			So(exp.Unix(), ShouldEqual, 1700003600)
		})

		Convey("derives presigned S3 expiry", func() {
			exp, ok := ExpiryOf("https://bucket.s3.amazonaws.com/v.mp4?X-Amz-Date=20231114T221320Z&X-Amz-Expires=600").Get()
			So(ok, ShouldBeTrue)
			So(exp.Equal(time.Date(2023, 11, 14, 22, 23, 20, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("returns nothing without a token", func() {
			So(ExpiryOf("https://cdn/v.mp4").IsAbsent(), ShouldBeTrue)
		})
	})
}

func TestHasExpiryToken(t *testing.T) {
	Convey("HasExpiryToken", t, func() {
		So(HasExpiryToken("https://cdn/v.mp4?e=1700003600"), ShouldBeTrue)
		So(HasExpiryToken("https://cdn/v.mp4?token=abcdefgh12"), ShouldBeTrue)
		So(HasExpiryToken("https://cdn/v.mp4?signature=abcdefgh12&x=1"), ShouldBeTrue)
		So(HasExpiryToken("https://cdn/v.mp4?X-Amz-Signature=zz"), ShouldBeTrue)
		So(HasExpiryToken("https://cdn/v.mp4?e=12"), ShouldBeFalse)
		So(HasExpiryToken("https://cdn/v.mp4"), ShouldBeFalse)
	})
}

func TestFilterAndRank(t *testing.T) {
	Convey("Given candidates from an embed page", t, func() {
		page := "https://video.sibnet.ru/shell.php?videoid=1"

		Convey("Relative URLs are resolved against the page", func() {
			got, err := FilterAndRank(page, embed.NewCandidates("/v/abc/1.mp4"), now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://video.sibnet.ru/v/abc/1.mp4"})
			So(got[0].Format, ShouldEqual, embed.FormatFile)
		})

		Convey("Duplicates, blocked hosts and non-media are dropped", func() {
			got, err := FilterAndRank(page, embed.NewCandidates(
				"https://cdn.example/a.mp4",
				"https://cdn.example/a.mp4",
				"https://mc.yandex.ru/watch.mp4",
				"https://cdn.example/poster.jpg",
				"javascript:void(0)",
			), now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://cdn.example/a.mp4"})
		})

		Convey("MIME and redirect status make a candidate playable", func() {
			got, err := FilterAndRank(page, []embed.Candidate{
				{URL: "https://cdn.example/stream", MIME: "video/mp4"},
				{URL: "https://cdn.example/redirect", Status: 302},
				{URL: "https://cdn.example/blob", MIME: "application/octet-stream"},
			}, now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://cdn.example/redirect", "https://cdn.example/stream"})
		})

		Convey("Expired candidates are never returned", func() {
			got, err := FilterAndRank(page, embed.NewCandidates(
				"https://cdn.example/old.mp4?e=1600000000",
				"https://cdn.example/new.mp4?e=1800000000",
			), now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://cdn.example/new.mp4?e=1800000000"})
		})

		Convey("Only expired candidates yield AllCandidatesExpired", func() {
			_, err := FilterAndRank(page, embed.NewCandidates("https://cdn.example/old.mp4?e=1600000000"), now)
			So(embed.KindOf(err), ShouldEqual, embed.AllCandidatesExpired)
		})

		Convey("Nothing playable yields NoPatternMatch", func() {
			_, err := FilterAndRank(page, embed.NewCandidates("https://cdn.example/index.html"), now)
			So(embed.KindOf(err), ShouldEqual, embed.NoPatternMatch)

			_, err = FilterAndRank(page, nil, now)
			So(embed.KindOf(err), ShouldEqual, embed.NoPatternMatch)
		})

		Convey("Tokened candidates are preferred exclusively", func() {
			got, err := FilterAndRank(page, embed.NewCandidates(
				"https://cdn.example/plain.mp4",
				"https://cdn.example/signed.m3u8?token=abcdefgh12",
			), now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://cdn.example/signed.m3u8?token=abcdefgh12"})
			So(got[0].HasExpiryToken, ShouldBeTrue)
			So(got[0].Format, ShouldEqual, embed.FormatHLS)
		})

		Convey("Format comes from the path, never the host", func() {
			got, err := FilterAndRank(page, []embed.Candidate{
				{URL: "https://movies.example/stream", MIME: "video/mp4"},
				{URL: "https://cdn.tsuki.net/stream", MIME: "video/mp4"},
				{URL: "https://cdn.example/stream", MIME: "video/mp4"},
			}, now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{
				"https://cdn.example/stream",
				"https://cdn.tsuki.net/stream",
				"https://movies.example/stream",
			})
		})

		Convey("Duplicates merge to the same ranking in any order", func() {
			plain := embed.Candidate{URL: "https://cdn.example/z.mp4"}
			redirected := embed.Candidate{URL: "https://cdn.example/z.mp4", Status: 302, MIME: "video/mp4"}
			other := embed.Candidate{URL: "https://cdn.example/a.mp4"}

			first, err := FilterAndRank(page, []embed.Candidate{plain, redirected, other}, now)
			So(err, ShouldBeNil)
			second, err := FilterAndRank(page, []embed.Candidate{redirected, other, plain}, now)
			So(err, ShouldBeNil)

			So(first, ShouldResemble, second)
			So(urls(first), ShouldResemble, []string{"https://cdn.example/z.mp4", "https://cdn.example/a.mp4"})
			So(first[0].Status, ShouldEqual, 302)
			So(first[0].MIME, ShouldEqual, "video/mp4")
		})

		Convey("Format then resolution then URL order the rest", func() {
			in := embed.NewCandidates(
				"https://cdn.example/b/master.m3u8",
				"https://cdn.example/b/480p.mp4",
				"https://cdn.example/b/1080p.mp4",
				"https://cdn.example/a/1080p.mp4",
				"https://cdn.example/b/clip.webm",
			)
			want := []string{
				"https://cdn.example/a/1080p.mp4",
				"https://cdn.example/b/1080p.mp4",
				"https://cdn.example/b/480p.mp4",
				"https://cdn.example/b/clip.webm",
				"https://cdn.example/b/master.m3u8",
			}

			got, err := FilterAndRank(page, in, now)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, want)

			reversed := make([]embed.Candidate, len(in))
			for i := range in {
				reversed[len(in)-1-i] = in[i]
			}
			again, _ := FilterAndRank(page, reversed, now)
			So(urls(again), ShouldResemble, want)
		})
	})
}
