package constant

// Global functions of a Lua strategy script. Rules is optional.
const (
	StrategyHostsFn   = "Hosts"
	StrategyExtractFn = "Extract"
	StrategyRulesFn   = "Rules"
)

// StrategyMinVersionVar is an optional global naming the oldest build a script runs on.
const StrategyMinVersionVar = "MinVersion"

// StrategyExtension is the file extension of scripted strategies.
const StrategyExtension = ".lua"

// StrategyTemplate is a Go text/template used to scaffold new Lua strategy files.
const StrategyTemplate = `{{ $divider := repeat "-" (plus (max (len .Host) (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @host    {{ .Host }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}

{{ .MinVersionVar }} = "{{ .Version }}"

---@alias candidate { url: string, status: number|nil, mime: string|nil }


----- IMPORTS -----
-- http_tls is injected by the resolver: http_tls.get(url [, headers]) / http_tls.request{...}
--- END IMPORTS ---



----- MAIN -----

--- Hostnames served by this strategy. Subdomains match automatically.
-- @return string[]
function {{ .HostsFn }}()
	return { "{{ .Host }}" }
end


--- Extracts candidate media URLs from an embed page.
-- @param url string Embed URL
-- @param html string Page body fetched with browser headers
-- @return candidate[]|string[] Candidates, best effort
function {{ .ExtractFn }}(url, html)
	local found = {}
	for src in html:gmatch([[file%s*:%s*["']([^"']+%.mp4[^"']*)]]) do
		table.insert(found, src)
	end
	return found
end

--- END MAIN ---

-- ex: ts=4 sw=4 et filetype=lua
`
