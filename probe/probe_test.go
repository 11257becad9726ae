package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// a minimal MP4 "ftyp" box
var mp4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2'}

func TestProbe(t *testing.T) {
	Convey("Given a media host", t, func() {
		var lastReferer, lastRange string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReferer = r.Header.Get("Referer")
			lastRange = r.Header.Get("Range")
			switch r.URL.Path {
			case "/ok.mp4":
				w.Header().Set("Content-Type", "video/mp4; charset=binary")
				w.WriteHeader(http.StatusOK)
			case "/nohead.mp4":
				if r.Method == http.MethodHead {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
				w.WriteHeader(http.StatusPartialContent)
				_, _ = w.Write(mp4Header)
			case "/moved.mp4":
				http.Redirect(w, r, "/ok.mp4", http.StatusFound)
			default:
				w.WriteHeader(http.StatusForbidden)
			}
		}))
		defer srv.Close()

		p := New(Options{Timeout: 2 * time.Second})
		ctx := context.Background()

		Convey("HEAD answers are used as is", func() {
			res := p.Probe(ctx, srv.URL+"/ok.mp4", "")
			So(res, ShouldResemble, Result{Status: http.StatusOK, MIME: "video/mp4"})
			So(lastReferer, ShouldEqual, srv.URL+"/")
		})

		Convey("Refused HEAD falls back to a ranged GET with sniffing", func() {
			res := p.Probe(ctx, srv.URL+"/nohead.mp4", "https://embed.example/")
			So(res.Status, ShouldEqual, http.StatusPartialContent)
			So(res.MIME, ShouldEqual, "video/mp4")
			So(lastRange, ShouldEqual, "bytes=0-1023")
			So(lastReferer, ShouldEqual, "https://embed.example/")
		})

		Convey("Redirects are reported, not followed", func() {
			So(p.Probe(ctx, srv.URL+"/moved.mp4", "").Status, ShouldEqual, http.StatusFound)
		})

		Convey("Unreachable hosts give status 0", func() {
			So(p.Probe(ctx, "http://127.0.0.1:1/x.mp4", "").Status, ShouldEqual, 0)
		})

		Convey("MakePlayableLink", func() {
			link, proxied := p.MakePlayableLink(ctx, srv.URL+"/ok.mp4", "", "http://localhost:8787")
			So(link, ShouldEqual, srv.URL+"/ok.mp4")
			So(proxied, ShouldBeFalse)

			link, proxied = p.MakePlayableLink(ctx, srv.URL+"/denied.mp4", "", "http://localhost:8787/")
			So(proxied, ShouldBeTrue)
			So(link, ShouldStartWith, "http://localhost:8787/stream?u=")
			So(link, ShouldContainSubstring, "%2Fdenied.mp4")
		})
	})
}

func TestProxyLink(t *testing.T) {
	Convey("ProxyLink escapes the target", t, func() {
		So(ProxyLink("", "https://cdn/v.mp4?e=1&t=2"), ShouldEqual, "/stream?u=https%3A%2F%2Fcdn%2Fv.mp4%3Fe%3D1%26t%3D2")
	})
}
