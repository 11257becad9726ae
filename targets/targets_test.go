package targets

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestTargets(t *testing.T) {
	Convey("Given an empty store", t, func() {
		So(Clear(), ShouldBeNil)

		Convey("When adding urls", func() {
			added, err := Add("https://video.sibnet.ru/shell.php?videoid=1", " ", "https://sendvid.com/abc")
			So(err, ShouldBeNil)
			So(added, ShouldEqual, 2)

			Convey("Then they are listed", func() {
				urls, err := URLs()
				So(err, ShouldBeNil)
				So(urls, ShouldHaveLength, 2)
				So(urls, ShouldContain, "https://sendvid.com/abc")
			})

			Convey("And adding them again is a no-op", func() {
				added, err := Add("https://sendvid.com/abc")
				So(err, ShouldBeNil)
				So(added, ShouldEqual, 0)
			})

			Convey("And removing one leaves the other", func() {
				removed, err := Remove("https://sendvid.com/abc", "https://unknown.example/x")
				So(err, ShouldBeNil)
				So(removed, ShouldEqual, 1)

				urls, _ := URLs()
				So(urls, ShouldResemble, []string{"https://video.sibnet.ru/shell.php?videoid=1"})
			})

			Convey("And recording outcomes updates them", func() {
				at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
				err := Record([]embed.Result{
					embed.Succeeded("https://sendvid.com/abc", "sendvid", "https://cdn/1.mp4", embed.FormatFile, false),
					embed.Failed("https://video.sibnet.ru/shell.php?videoid=1", "sibnet", errors.New("status 503")),
					embed.Failed("https://not.stored/x", embed.HostOther, embed.ErrUnsupportedHost),
				}, at)
				So(err, ShouldBeNil)

				list, err := List()
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 2)

				for _, target := range list {
					So(target.LastRunAt.Equal(at), ShouldBeTrue)
					switch target.URL {
					case "https://sendvid.com/abc":
						So(target.LastOK, ShouldBeTrue)
						So(target.DirectURL, ShouldEqual, "https://cdn/1.mp4")
						So(target.Failures, ShouldEqual, 0)
					default:
						So(target.LastOK, ShouldBeFalse)
						So(target.LastError, ShouldEqual, "status 503")
						So(target.Failures, ShouldEqual, 1)
					}
				}
			})
		})
	})
}
