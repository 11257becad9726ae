package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidresolve/vidresolve/embed"
)

func TestPage(t *testing.T) {
	Convey("Given an embed host", t, func() {
		var hits atomic.Int32
		var seen http.Header
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := hits.Add(1)
			seen = r.Header.Clone()
			switch r.URL.Path {
			case "/flaky":
				if n == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				_, _ = io.WriteString(w, "recovered")
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
			case "/slow":
				time.Sleep(200 * time.Millisecond)
				_, _ = io.WriteString(w, "late")
			case "/big":
				_, _ = io.WriteString(w, strings.Repeat("a", 64))
			default:
				_, _ = io.WriteString(w, "<video src='/v/1.mp4'></video>")
			}
		}))
		defer srv.Close()

		f := New(Options{Attempts: 2, RetryDelay: time.Millisecond, PageTTL: time.Hour, UserAgent: "test-agent"})
		ctx := context.Background()

		Convey("Pages are fetched with browser headers", func() {
			body, err := f.Page(ctx, srv.URL+"/embed/1")
			So(err, ShouldBeNil)
			So(body, ShouldContainSubstring, "/v/1.mp4")
			So(seen.Get("User-Agent"), ShouldEqual, "test-agent")
			So(seen.Get("Referer"), ShouldEqual, srv.URL+"/")
			So(seen.Get("Accept-Language"), ShouldNotBeEmpty)
		})

		Convey("Repeated fetches are served from the page cache", func() {
			_, _ = f.Page(ctx, srv.URL+"/embed/1")
			_, _ = f.Page(ctx, srv.URL+"/embed/1")
			So(hits.Load(), ShouldEqual, 1)
			So(f.CachedPages(), ShouldEqual, 1)
		})

		Convey("5xx responses are retried", func() {
			body, err := f.Page(ctx, srv.URL+"/flaky")
			So(err, ShouldBeNil)
			So(body, ShouldEqual, "recovered")
			So(hits.Load(), ShouldEqual, 2)
		})

		Convey("4xx responses fail without retry", func() {
			_, err := f.Page(ctx, srv.URL+"/missing")
			So(err, ShouldNotBeNil)
			So(embed.KindOf(err), ShouldEqual, embed.FetchFailure)
			So(err.Error(), ShouldContainSubstring, "status 404")
			So(hits.Load(), ShouldEqual, 1)
		})

		Convey("Deadlines surface as timeouts", func() {
			short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_, err := f.Page(short, srv.URL+"/slow")
			So(embed.KindOf(err), ShouldEqual, embed.Timeout)
		})

		Convey("Bodies are capped", func() {
			capped := New(Options{BodyLimit: 10})
			body, err := capped.Page(ctx, srv.URL+"/big")
			So(err, ShouldBeNil)
			So(body, ShouldHaveLength, 10)
		})
	})
}

func TestDo(t *testing.T) {
	Convey("Given a host redirecting to a signed URL", t, func() {
		var gotRange, gotReferer string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v/1.mp4":
				gotRange = r.Header.Get("Range")
				gotReferer = r.Header.Get("Referer")
				w.Header().Set("Location", "//cdn.example/signed.mp4?e=1")
				w.WriteHeader(http.StatusFound)
			case "/hop":
				http.Redirect(w, r, "/final", http.StatusMovedPermanently)
			default:
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, "0123456789")
			}
		}))
		defer srv.Close()

		f := New(Options{})
		ctx := context.Background()

		Convey("Redirects are not followed by default", func() {
			resp, err := f.Do(ctx, Request{URL: srv.URL + "/v/1.mp4", Range: "bytes=0-1023", Referer: "https://video.sibnet.ru/shell.php"})
			So(err, ShouldBeNil)
			So(resp.Status, ShouldEqual, http.StatusFound)
			So(resp.Location, ShouldEqual, "https://cdn.example/signed.mp4?e=1")
			So(gotRange, ShouldEqual, "bytes=0-1023")
			So(gotReferer, ShouldEqual, "https://video.sibnet.ru/shell.php")
		})

		Convey("Followed redirects report the effective URL", func() {
			resp, err := f.Do(ctx, Request{Method: http.MethodHead, URL: srv.URL + "/hop", FollowRedirects: true})
			So(err, ShouldBeNil)
			So(resp.Status, ShouldEqual, http.StatusOK)
			So(resp.URL, ShouldEqual, srv.URL+"/final")
		})

		Convey("Bodies are read up to the limit", func() {
			resp, err := f.Do(ctx, Request{URL: srv.URL + "/body", Limit: 4})
			So(err, ShouldBeNil)
			So(string(resp.Body), ShouldEqual, "0123")
		})
	})
}
