package script

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/fetch"
	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/strategy"
)

type pageFetcher map[string]string

func (p pageFetcher) Page(_ context.Context, url string) (string, error) {
	body, ok := p[url]
	if !ok {
		return "", embed.Errorf(embed.FetchFailure, "GET %s: status 404", url)
	}
	return body, nil
}

func (pageFetcher) Do(context.Context, fetch.Request) (*fetch.Response, error) {
	return nil, embed.ErrNoPatternMatch
}

const demoScript = `
function Hosts()
	return { "filemoon.example", "fm.example" }
end

function Rules()
	return {
		{ pattern = [[file:"([^"]+)"]] },
		{ kind = "query", pattern = "video source", attr = "src" },
	}
end

function Extract(url, html)
	local found = {}
	for src in html:gmatch('file:"([^"]+)"') do
		table.insert(found, { url = src, format = "hls" })
	end
	return found
end
`

func writeScript(path, body string) {
	So(filesystem.API().WriteFile(path, []byte(body), 0o644), ShouldBeNil)
}

func TestLoad(t *testing.T) {
	Convey("Given scripts on an in-memory filesystem", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()

		writeScript("/strategies/filemoon.lua", demoScript)
		writeScript("/strategies/broken.lua", `function Hosts() return {} end`)
		writeScript("/strategies/notes.txt", `not a script`)
		writeScript("/strategies/future.lua", "MinVersion = \"999.0.0\"\n"+demoScript)

		Convey("A valid script loads with its hosts and rules", func() {
			s, err := Load("/strategies/filemoon.lua")
			So(err, ShouldBeNil)
			defer s.Close()

			So(s.Name(), ShouldEqual, "filemoon")
			So(s.Kind(), ShouldEqual, strategy.KindScripted)
			So(s.Domains(), ShouldResemble, []string{"filemoon.example", "fm.example"})
			So(s.Matches("cdn.fm.example"), ShouldBeTrue)
			So(s.Matches("other.example"), ShouldBeFalse)
			So(s.Rules(), ShouldHaveLength, 2)
			So(s.Rules()[1].Kind, ShouldEqual, strategy.RuleQuery)
		})

		Convey("Scripts missing functions or hosts are rejected", func() {
			_, err := Load("/strategies/broken.lua")
			So(err, ShouldNotBeNil)
		})

		Convey("Scripts requiring a newer build are rejected", func() {
			_, err := Load("/strategies/future.lua")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "999.0.0")
		})

		Convey("LoadAll skips broken scripts and other files", func() {
			loaded, err := LoadAll("/strategies")
			So(err, ShouldBeNil)
			So(loaded, ShouldHaveLength, 1)
			So(loaded[0].Name(), ShouldEqual, "filemoon")
		})

		Convey("Loaded scripts register after the builtins", func() {
			loaded, _ := LoadAll("/strategies")
			registry := strategy.Default(loaded...)
			So(registry.StrategyFor("filemoon.example").Name(), ShouldEqual, "filemoon")
			So(registry.StrategyFor("sendvid.com").Name(), ShouldEqual, "sendvid")
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Given a loaded script", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()
		writeScript("/strategies/filemoon.lua", demoScript)

		s, err := Load("/strategies/filemoon.lua")
		So(err, ShouldBeNil)
		defer s.Close()

		f := pageFetcher{
			"https://filemoon.example/e/1": `jwplayer().setup({file:"https://cdn.fm.example/hls/master.m3u8?t=1"})`,
			"https://filemoon.example/e/2": `<p>gone</p>`,
		}

		Convey("Candidates come from the script", func() {
			got, err := s.Extract(context.Background(), "https://filemoon.example/e/1", f)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []embed.Candidate{{URL: "https://cdn.fm.example/hls/master.m3u8?t=1", Format: embed.FormatHLS}})
		})

		Convey("An empty result is NoPatternMatch", func() {
			_, err := s.Extract(context.Background(), "https://filemoon.example/e/2", f)
			So(embed.KindOf(err), ShouldEqual, embed.NoPatternMatch)
		})

		Convey("Page failures pass through", func() {
			_, err := s.Extract(context.Background(), "https://filemoon.example/e/3", f)
			So(embed.KindOf(err), ShouldEqual, embed.FetchFailure)
		})
	})
}
