package version

import (
	"runtime"
	"strings"

	"github.com/vidresolve/vidresolve/constant"
)

// Info is the build metadata shown by the version command and the status endpoint.
type Info struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	BuiltAt   string `json:"builtAt"`
	BuiltBy   string `json:"builtBy"`
	Platform  string `json:"platform"`
	GoVersion string `json:"goVersion"`
	// Extractor tags cached results; bumping it invalidates them.
	Extractor string `json:"extractor"`
}

// Current returns the metadata of this build.
func Current() Info {
	return Info{
		App:       constant.App,
		Version:   constant.Version,
		Revision:  constant.Revision,
		BuiltAt:   strings.TrimSpace(constant.BuiltAt),
		BuiltBy:   constant.BuiltBy,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
		Extractor: constant.ExtractorVersion,
	}
}
