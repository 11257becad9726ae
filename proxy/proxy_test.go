package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const payload = "0123456789abcdefghij"

func origin() (*httptest.Server, *http.Header) {
	seen := &http.Header{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = r.Header.Clone()
		switch r.URL.Path {
		case "/moved.mp4":
			http.Redirect(w, r, "/v.mp4", http.StatusFound)
			return
		case "/v.mp4":
			http.ServeContent(w, r, "v.mp4", time.Time{}, strings.NewReader(payload))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv, seen
}

func streamURL(target string) string {
	return "/stream?u=" + url.QueryEscape(target)
}

func TestProxy(t *testing.T) {
	Convey("Given an origin serving ranged media", t, func() {
		srv, seen := origin()
		defer srv.Close()
		p := New(Options{UserAgent: "proxy-test"})

		Convey("Range requests are forwarded and answered with 206", func() {
			req := httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/v.mp4"), nil)
			req.Header.Set("Range", "bytes=0-9")
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusPartialContent)
			So(rec.Body.String(), ShouldEqual, "0123456789")
			So(rec.Header().Get("Content-Range"), ShouldEqual, "bytes 0-9/20")
			So(rec.Header().Get("Content-Length"), ShouldEqual, "10")
			So(rec.Header().Get("Accept-Ranges"), ShouldEqual, "bytes")
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			So(rec.Header().Get("Access-Control-Allow-Headers"), ShouldEqual, "range")

			So(seen.Get("Range"), ShouldEqual, "bytes=0-9")
			So(seen.Get("Referer"), ShouldEqual, srv.URL+"/")
			So(seen.Get("User-Agent"), ShouldEqual, "proxy-test")
			So(seen.Get("Accept-Encoding"), ShouldEqual, "identity")
		})

		Convey("Redirects are followed", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/moved.mp4"), nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, payload)
		})

		Convey("HEAD mirrors headers without a body", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, streamURL(srv.URL+"/v.mp4"), nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Length"), ShouldEqual, "20")
			So(rec.Body.Len(), ShouldEqual, 0)
		})

		Convey("Origin statuses pass through", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL(srv.URL+"/missing.mp4"), nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("OPTIONS answers the preflight", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, streamURL(srv.URL+"/v.mp4"), nil))
			So(rec.Code, ShouldEqual, http.StatusNoContent)
			So(rec.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})

	Convey("Given bad input", t, func() {
		p := New(Options{})

		Convey("A missing u is a 400", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A relative u is a 400", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL("/v.mp4"), nil))
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unreachable origin is a 502 with the taxonomy code", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, streamURL("http://127.0.0.1:1/v.mp4"), nil))
			So(rec.Code, ShouldEqual, http.StatusBadGateway)

			var body errorBody
			So(json.NewDecoder(rec.Body).Decode(&body), ShouldBeNil)
			So(body.Error.Code, ShouldEqual, "ProxyUpstreamFailure")
		})

		Convey("Other methods are refused", func() {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, streamURL("https://cdn.example/v.mp4"), io.NopCloser(strings.NewReader(""))))
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}
