package strategy

import (
	"context"
	"errors"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/fetch"
)

// fakeFetcher serves canned pages and exchanges keyed by URL.
type fakeFetcher struct {
	pages     map[string]string
	responses map[string]*fetch.Response
	requests  []fetch.Request
	fetched   []string
}

func (f *fakeFetcher) Page(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	body, ok := f.pages[url]
	if !ok {
		return "", embed.Errorf(embed.FetchFailure, "GET %s: status 404", url)
	}
	return body, nil
}

func (f *fakeFetcher) Do(_ context.Context, req fetch.Request) (*fetch.Response, error) {
	f.requests = append(f.requests, req)
	key := req.Method + " " + req.URL
	if resp, ok := f.responses[key]; ok {
		return resp, nil
	}
	return nil, errors.New("connection refused")
}

func urls(cands []embed.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.URL
	}
	return out
}

func TestRules(t *testing.T) {
	Convey("Given ordered rules", t, func() {
		rules := []Rule{
			Regex(`file\s*:\s*["']([^"']+\.mp4)`),
			Query("video source[src]", "src"),
		}

		Convey("The first rule yielding URLs wins with all of its matches", func() {
			body := `<script>file: "https://a/1.mp4"; FILE: 'https://a/2.mp4'</script><video><source src="https://b/3.mp4"></video>`
			So(Apply(rules, body), ShouldResemble, []string{"https://a/1.mp4", "https://a/2.mp4"})
		})

		Convey("Later rules run when earlier ones find nothing", func() {
			body := `<video><source src="https://b/3.mp4?a=1&amp;b=2"></video>`
			So(Apply(rules, body), ShouldResemble, []string{"https://b/3.mp4?a=1&b=2"})
		})

		Convey("Nothing matches", func() {
			So(Apply(rules, "<html></html>"), ShouldBeEmpty)
		})
	})

	Convey("CleanURL undoes escaping", t, func() {
		So(CleanURL(` https:\/\/cdn\/v.mp4?a=1&b=2 `), ShouldEqual, "https://cdn/v.mp4?a=1&b=2")
	})

	Convey("CompileRegex rejects invalid patterns", t, func() {
		_, err := CompileRegex(`(`)
		So(err, ShouldNotBeNil)
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := Default()

		Convey("Hosts map to their strategies", func() {
			So(r.StrategyFor("video.sibnet.ru").Name(), ShouldEqual, "sibnet")
			So(r.StrategyFor("sendvid.com").Name(), ShouldEqual, "sendvid")
			So(r.StrategyFor("sandvide.com").Name(), ShouldEqual, "sendvid")
			So(r.StrategyFor("vidmoly.net").Name(), ShouldEqual, "vidmoly")
			So(r.StrategyFor("cdn.streamtape.com").Name(), ShouldEqual, "streamtape")
		})

		Convey("Unknown hosts fall back to generic", func() {
			s := r.StrategyFor("unknown.example")
			So(s.Kind(), ShouldEqual, KindGeneric)
			So(HostType(s), ShouldEqual, embed.HostOther)
			So(r.Supported("unknown.example"), ShouldBeFalse)
			So(r.Supported("doodstream.com"), ShouldBeTrue)
		})

		Convey("Rules are returned in order", func() {
			rules := r.RulesFor("smoothpre.com")
			So(rules, ShouldHaveLength, 2)
			So(rules[1].Pattern, ShouldStartWith, "video")
		})

		Convey("Names lists generic last", func() {
			names := r.Names()
			So(names[0], ShouldEqual, "sibnet")
			So(names[len(names)-1], ShouldEqual, "generic")
		})

		Convey("Lookalike hosts are not subdomains", func() {
			So(r.Supported("notsibnet.ru"), ShouldBeFalse)
		})

		Convey("Find matches names and domains fuzzily", func() {
			found := r.Find("sndvd")
			So(found, ShouldNotBeEmpty)
			So(found[0].Name(), ShouldEqual, "sendvid")

			found = r.Find("sandvide")
			So(found, ShouldNotBeEmpty)
			So(found[0].Name(), ShouldEqual, "sendvid")

			So(r.Find("  "), ShouldBeEmpty)
			So(r.Find("zzzzqq"), ShouldBeEmpty)
		})

		Convey("DomainsOf reports declared domains", func() {
			So(DomainsOf(r.StrategyFor("sendvid.com")), ShouldContain, "sendvid.com")
			So(DomainsOf(r.StrategyFor("unknown.example")), ShouldBeNil)
		})
	})
}

func TestPattern(t *testing.T) {
	Convey("Given a vidmoly page", t, func() {
		f := &fakeFetcher{pages: map[string]string{
			"https://vidmoly.net/embed-abc.html": `sources: [{file:"https://box.vidmoly.net/hls/x/master.m3u8?token=abcdefgh"}]`,
			"https://vidmoly.net/embed-empty.html": `<p>removed</p>`,
		}}
		s := vidmoly()

		Convey("The tokened playlist is extracted", func() {
			got, err := s.Extract(context.Background(), "https://vidmoly.net/embed-abc.html", f)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://box.vidmoly.net/hls/x/master.m3u8?token=abcdefgh"})
		})

		Convey("No match is NoPatternMatch", func() {
			_, err := s.Extract(context.Background(), "https://vidmoly.net/embed-empty.html", f)
			So(embed.KindOf(err), ShouldEqual, embed.NoPatternMatch)
		})

		Convey("Fetch failures pass through", func() {
			_, err := s.Extract(context.Background(), "https://vidmoly.net/embed-gone.html", f)
			So(embed.KindOf(err), ShouldEqual, embed.FetchFailure)
		})
	})

	Convey("Given a page only a structured query can read", t, func() {
		f := &fakeFetcher{pages: map[string]string{
			"https://unknown.example/e/1": `<video controls><source type=video/mp4 src=/media/1.mp4></video>`,
		}}
		got, err := Generic().Extract(context.Background(), "https://unknown.example/e/1", f)
		So(err, ShouldBeNil)
		So(urls(got), ShouldResemble, []string{"/media/1.mp4"})
	})
}

func TestSibnet(t *testing.T) {
	Convey("SibnetID", t, func() {
		So(SibnetID("https://video.sibnet.ru/shell.php?videoid=4935158"), ShouldEqual, "4935158")
		So(SibnetID("https://video.sibnet.ru/video4935158-Episode_1/"), ShouldEqual, "4935158")
		So(SibnetID("https://video.sibnet.ru/4935158"), ShouldEqual, "4935158")
		So(SibnetID("https://video.sibnet.ru/v/abc"), ShouldEqual, "abc")
	})

	Convey("Given the sibnet player page", t, func() {
		shell := sibnetBase + "/shell.php?videoid=4935158"
		mp4 := sibnetBase + "/v/0a1b2c/4935158.mp4"
		f := &fakeFetcher{
			pages: map[string]string{
				shell: `player.src([{src: "/v/0a1b2c/4935158.mp4", type: "video/mp4"}]);`,
			},
			responses: map[string]*fetch.Response{},
		}
		s := NewSibnet()

		Convey("A redirect yields the signed URL first", func() {
			f.responses[" "+mp4] = &fetch.Response{Status: http.StatusFound, Location: "https://dv98.sibnet.ru/41/4935158.mp4?st=abc&e=1800000000"}

			got, err := s.Extract(context.Background(), shell, f)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://dv98.sibnet.ru/41/4935158.mp4?st=abc&e=1800000000", mp4})
			So(got[0].Status, ShouldEqual, http.StatusFound)
			So(f.requests[0].Range, ShouldEqual, "bytes=0-1023")
			So(f.requests[0].Referer, ShouldEqual, shell)
			So(f.requests[0].FollowRedirects, ShouldBeFalse)
		})

		Convey("Without a redirect HEAD reports the effective URL", func() {
			f.responses[" "+mp4] = &fetch.Response{Status: http.StatusOK}
			f.responses["HEAD "+mp4] = &fetch.Response{Status: http.StatusOK, URL: "https://dv1.sibnet.ru/4935158.mp4"}

			got, err := s.Extract(context.Background(), shell, f)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{"https://dv1.sibnet.ru/4935158.mp4", mp4})
		})

		Convey("When the CDN cannot be reached the unsigned URL remains", func() {
			got, err := s.Extract(context.Background(), shell, f)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{mp4})
		})

		Convey("The secondary page is tried when the player page has no match", func() {
			f.pages[shell] = "<html></html>"
			f.pages[sibnetBase+"/video4935158.html"] = `"file": "/v/0a1b2c/4935158.mp4"`

			got, err := s.Extract(context.Background(), shell, f)
			So(err, ShouldBeNil)
			So(urls(got), ShouldResemble, []string{mp4})
			So(f.fetched, ShouldResemble, []string{shell, sibnetBase + "/video4935158.html"})
		})

		Convey("Pages that load without a match give NoPatternMatch", func() {
			f.pages[shell] = "<html></html>"
			_, err := s.Extract(context.Background(), shell, f)
			So(embed.KindOf(err), ShouldEqual, embed.NoPatternMatch)
		})

		Convey("Pages that never load give FetchFailure", func() {
			delete(f.pages, shell)
			_, err := s.Extract(context.Background(), shell, f)
			So(embed.KindOf(err), ShouldEqual, embed.FetchFailure)
		})
	})
}

func TestSendvid(t *testing.T) {
	Convey("SendvidID", t, func() {
		So(SendvidID("https://sendvid.com/embed/spd4k5mz"), ShouldEqual, "spd4k5mz")
		So(SendvidID("https://sendvid.com/spd4k5mz"), ShouldEqual, "spd4k5mz")
		So(SendvidID("https://sandvid.com/e/xyz"), ShouldEqual, "xyz")
	})

	Convey("Given a sendvid page", t, func() {
		f := &fakeFetcher{pages: map[string]string{
			sendvidBase + "/spd4k5mz": "<video id=\"player\">\n  <source src=\"//videos2.sendvid.com/ab/cd/spd4k5mz.mp4?validfrom=1&amp;validto=1800000000\" type=\"video/mp4\">\n</video>",
		}}

		got, err := NewSendvid().Extract(context.Background(), "https://sendvid.com/embed/spd4k5mz", f)
		So(err, ShouldBeNil)
		So(urls(got), ShouldResemble, []string{"https://videos2.sendvid.com/ab/cd/spd4k5mz.mp4?validfrom=1&validto=1800000000"})
	})

	Convey("Given only the embed page carries the video", t, func() {
		f := &fakeFetcher{pages: map[string]string{
			sendvidBase + "/abc":       "<p>nothing</p>",
			sendvidBase + "/embed/abc": `var videoUrl = "/media/abc.mp4";`,
		}}

		got, err := NewSendvid().Extract(context.Background(), "https://sendvid.com/abc", f)
		So(err, ShouldBeNil)
		So(urls(got), ShouldResemble, []string{sendvidBase + "/media/abc.mp4"})
	})
}
