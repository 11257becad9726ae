package scraper

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/vidresolve/vidresolve/filesystem"
	"github.com/vidresolve/vidresolve/network"
)

const maxScriptSize = 1 << 20

// Install downloads the script at remoteURL into localPath.
// It reports false when the local copy already has the same content.
// The file is replaced by rename so a running loader never reads a partial script.
func Install(ctx context.Context, remoteURL, localPath string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := network.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("download %s: status %d", remoteURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return false, err
	}

	fs := filesystem.API()
	if local, err := fs.ReadFile(localPath); err == nil && sha256.Sum256(local) == sha256.Sum256(body) {
		return false, nil
	}

	if err := fs.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return false, err
	}

	tmpPath := localPath + ".tmp"
	if err := fs.WriteFile(tmpPath, body, 0o644); err != nil {
		return false, err
	}
	if err := fs.Rename(tmpPath, localPath); err != nil {
		_ = fs.Remove(tmpPath)
		return false, err
	}

	Forget(localPath)
	return true, nil
}
