// Package open hands resolved media links to the system handler or a chosen player.
package open

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Link starts the handler for link without waiting for it.
// An empty app selects the system default handler.
func Link(link, app string) error {
	cmd, ok := command(runtime.GOOS, link, app)
	if !ok {
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return cmd.Start()
}

func command(goos, link, app string) (*exec.Cmd, bool) {
	if app == "" {
		switch goos {
		case "windows":
			rundll := filepath.Join(os.Getenv("SYSTEMROOT"), "System32", "rundll32.exe")
			return exec.Command(rundll, "url.dll,FileProtocolHandler", link), true
		case "darwin":
			return exec.Command("open", link), true
		case "linux", "freebsd", "openbsd":
			return exec.Command("xdg-open", link), true
		case "android":
			return exec.Command("termux-open", link), true
		default:
			return nil, false
		}
	}

	switch goos {
	case "windows":
		// cmd's start treats & as a separator
		return exec.Command("cmd", "/C", "start", "", app, strings.ReplaceAll(link, "&", "^&")), true
	case "darwin":
		return exec.Command("open", "-a", app, link), true
	case "android":
		return exec.Command("termux-open", "--choose", link), true
	default:
		return exec.Command(app, link), true
	}
}
