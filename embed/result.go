package embed

// Result is the outcome for one embed URL. A failed result always carries Error and ErrorKind.
type Result struct {
	EmbedURL  string   `json:"embedUrl"`
	Success   bool     `json:"success"`
	DirectURL string   `json:"directUrl,omitempty"`
	Format    Format   `json:"format,omitempty"`
	HostType  HostType `json:"hostType"`
	Proxied   bool     `json:"proxied,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorKind Kind     `json:"errorKind,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(embedURL string, host HostType, direct string, format Format, proxied bool) Result {
	return Result{
		EmbedURL:  embedURL,
		Success:   true,
		DirectURL: direct,
		Format:    format,
		HostType:  host,
		Proxied:   proxied,
	}
}

// Failed builds a failed result from err.
func Failed(embedURL string, host HostType, err error) Result {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Result{
		EmbedURL:  embedURL,
		HostType:  host,
		Error:     msg,
		ErrorKind: KindOf(err),
	}
}

// Stats summarizes a batch.
type Stats struct {
	Total      int   `json:"total"`
	Supported  int   `json:"supported"`
	Successful int   `json:"successful"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"durationMs"`
}

// Batch is one call's worth of embed URLs with their results.
type Batch struct {
	URLs    []string `json:"urls"`
	Results []Result `json:"results"`
	Stats   Stats    `json:"stats"`
}

// Tally recounts Stats from Results. supported tells whether an embed URL has a dedicated strategy.
// DurationMs is left to the caller.
func (b *Batch) Tally(supported func(embedURL string) bool) {
	b.Stats = Stats{Total: len(b.Results), DurationMs: b.Stats.DurationMs}
	for _, r := range b.Results {
		if supported != nil && supported(r.EmbedURL) {
			b.Stats.Supported++
		}
		if r.Success {
			b.Stats.Successful++
		} else {
			b.Stats.Failed++
		}
	}
}

// Find returns the result for embedURL.
func (b *Batch) Find(embedURL string) (Result, bool) {
	for _, r := range b.Results {
		if r.EmbedURL == embedURL {
			return r, true
		}
	}
	return Result{}, false
}
