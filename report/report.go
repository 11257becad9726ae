// Package report renders resolution responses for the command line, as text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wrap"
	"github.com/vidresolve/vidresolve/embed"
	"github.com/vidresolve/vidresolve/icon"
	"github.com/vidresolve/vidresolve/resolver"
	"github.com/vidresolve/vidresolve/style"
	"github.com/vidresolve/vidresolve/util"
)

// Options controls rendering.
type Options struct {
	Out  io.Writer
	JSON bool
	// Width of zero uses the terminal width.
	Width int
}

// Output is the JSON document written by Write.
type Output struct {
	URLs     []string           `json:"urls" jsonschema:"description=Embed URLs as given on the command line."`
	Response *resolver.Response `json:"response" jsonschema:"description=One result per URL with cache status and stats."`
}

// Write renders resp for the given inputs.
func Write(urls []string, resp *resolver.Response, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.JSON {
		return writeJSON(opts.Out, urls, resp)
	}
	if opts.Width <= 0 {
		opts.Width = util.TerminalWidth(80)
	}
	return writeText(opts.Out, resp, opts.Width)
}

func writeJSON(out io.Writer, urls []string, resp *resolver.Response) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(&Output{URLs: urls, Response: resp})
}

func writeText(out io.Writer, resp *resolver.Response, width int) error {
	var b strings.Builder

	for _, r := range resp.Results {
		b.WriteString(line(r, width))
		b.WriteByte('\n')
	}

	cacheIcon := icon.Get(icon.Miss)
	if resp.Cache == resolver.CacheHit {
		cacheIcon = icon.Get(icon.Hit)
	}
	fmt.Fprintf(&b, "\n%s %s  %s, %s  %s\n",
		cacheIcon,
		style.Tag(style.Gray, style.Accent)(string(resp.Cache)),
		style.Fg(style.Green)(util.Quantify(resp.Stats.Successful, "link", "links")+" resolved"),
		style.Fg(style.Red)(fmt.Sprintf("%d failed", resp.Stats.Failed)),
		style.Faint(fmt.Sprintf("%dms", resp.Stats.DurationMs)),
	)

	_, err := io.WriteString(out, b.String())
	return err
}

func line(r embed.Result, width int) string {
	head := fmt.Sprintf("%s %s %s",
		icon.Get(outcomeIcon(r)),
		style.Bold(string(r.HostType)),
		style.Faint(util.Ellipsis(r.EmbedURL, max(width/2, 16))),
	)

	if !r.Success {
		msg := style.Outcome(false)(string(r.ErrorKind)) + " " + r.Error
		return head + "\n" + indent.String(wrap.String(msg, max(width-4, 20)), 4)
	}

	direct := r.DirectURL
	if r.Proxied {
		direct += " " + style.Fg(style.Yellow)("(proxied)")
	}
	return head + "\n" + indent.String(style.Outcome(true)(util.Ellipsis(direct, max(width-4, 20))), 4)
}

func outcomeIcon(r embed.Result) icon.Icon {
	switch {
	case !r.Success:
		return icon.Fail
	case r.Proxied:
		return icon.Proxy
	default:
		return icon.Success
	}
}

// Schema returns the JSON Schema of Output.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.Namer = func(t reflect.Type) string {
		switch name := t.Name(); strings.ToLower(name) {
		case "result", "response", "stats", "output":
			return t.PkgPath()[strings.LastIndex(t.PkgPath(), "/")+1:] + "." + name
		default:
			return name
		}
	}
	return reflector.Reflect(&Output{})
}
