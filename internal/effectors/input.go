package effectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/themobileprof/deskpilot/internal/utils/safeexec"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// lowercase aliases accepted in catalog chords, mapped to X keysyms
var xdoKeys = map[string]string{
	"ctrl":        "ctrl",
	"shift":       "shift",
	"alt":         "alt",
	"win":         "super",
	"super":       "super",
	"enter":       "Return",
	"return":      "Return",
	"esc":         "Escape",
	"tab":         "Tab",
	"space":       "space",
	"backspace":   "BackSpace",
	"delete":      "Delete",
	"home":        "Home",
	"end":         "End",
	"pageup":      "Prior",
	"pagedown":    "Next",
	"up":          "Up",
	"down":        "Down",
	"left":        "Left",
	"right":       "Right",
	"printscreen": "Print",
}

// xdoChord rewrites alias key names ("enter", "f5") as keysyms.
// Anything else is passed through unchanged.
func xdoChord(chord string) string {
	parts := strings.Split(chord, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		lower := strings.ToLower(p)
		if k, ok := xdoKeys[lower]; ok {
			parts[i] = k
			continue
		}
		if len(lower) > 1 && lower[0] == 'f' && strings.IndexFunc(lower[1:], func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			parts[i] = strings.ToUpper(lower)
			continue
		}
		parts[i] = p
	}
	return strings.Join(parts, "+")
}

// SendChord presses each space separated chord in turn
func (d *Desktop) SendChord(ctx context.Context, chord string) error {
	fields := strings.Fields(chord)
	if len(fields) == 0 {
		return fmt.Errorf("empty key chord")
	}
	args := []string{"key", "--clearmodifiers"}
	for _, f := range fields {
		args = append(args, xdoChord(f))
	}
	_, err := d.exec(ctx, "xdotool", args...)
	return err
}

func (d *Desktop) TypeText(ctx context.Context, text string) error {
	_, err := d.exec(ctx, "xdotool", "type", "--clearmodifiers", "--delay", "12", "--", text)
	return err
}

// TypeSymbol types the symbol through xdotool's unicode input
func (d *Desktop) TypeSymbol(ctx context.Context, symbol string) error {
	return d.TypeText(ctx, symbol)
}

// Launch starts an executable detached, or a desktop entry through gtk-launch.
// URIs are refused with ErrShellTarget; ShellOpen handles them.
func (d *Desktop) Launch(ctx context.Context, exeOrURI string) error {
	if strings.Contains(exeOrURI, "://") {
		return fmt.Errorf("%s: %w", exeOrURI, ErrShellTarget)
	}
	fields := strings.Fields(exeOrURI)
	if len(fields) == 0 {
		return fmt.Errorf("nothing to launch")
	}
	if safeexec.Available(fields[0]) {
		return d.run.Start(fields[0], fields[1:]...)
	}
	_, err := d.exec(ctx, "gtk-launch", exeOrURI)
	return err
}

// ShellOpen hands the target to xdg-open, which returns once the handler is started
func (d *Desktop) ShellOpen(ctx context.Context, target string) error {
	_, err := d.exec(ctx, "xdg-open", target)
	return err
}

func (d *Desktop) OpenURL(ctx context.Context, url string) error {
	return d.ShellOpen(ctx, url)
}

// xdg-user-dir names for the known folders
var xdgDirs = map[string]string{
	"Desktop":   "DESKTOP",
	"Documents": "DOCUMENTS",
	"Downloads": "DOWNLOAD",
	"Music":     "MUSIC",
	"Pictures":  "PICTURES",
	"Videos":    "VIDEOS",
	"Templates": "TEMPLATES",
	"Public":    "PUBLICSHARE",
}

// OpenFolder resolves the known folder with xdg-user-dir, falling back to
// ~/<Name>, and opens it in the file manager
func (d *Desktop) OpenFolder(ctx context.Context, knownFolder string) error {
	path, err := d.folderPath(ctx, knownFolder)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("folder %s: %w", knownFolder, err)
	}
	return d.ShellOpen(ctx, path)
}

func (d *Desktop) folderPath(ctx context.Context, knownFolder string) (string, error) {
	if knownFolder == "Home" {
		if d.home == "" {
			return "", fmt.Errorf("home directory unknown")
		}
		return d.home, nil
	}
	xdg, ok := xdgDirs[knownFolder]
	if !ok {
		return "", fmt.Errorf("unknown folder %q", knownFolder)
	}
	if out, err := d.exec(ctx, "xdg-user-dir", xdg); err == nil && out != "" && out != d.home {
		return out, nil
	}
	if d.home == "" {
		return "", fmt.Errorf("home directory unknown")
	}
	return filepath.Join(d.home, knownFolder), nil
}

// Foreground reads the active window's process name and title
func (d *Desktop) Foreground(ctx context.Context) (models.HostContext, error) {
	pid, err := d.exec(ctx, "xdotool", "getactivewindow", "getwindowpid")
	if err != nil {
		return models.HostContext{}, err
	}
	if _, err := strconv.Atoi(pid); err != nil {
		return models.HostContext{}, fmt.Errorf("unexpected window pid %q", pid)
	}
	comm, err := os.ReadFile(filepath.Join(d.procRoot, pid, "comm"))
	if err != nil {
		return models.HostContext{}, fmt.Errorf("failed to read process name: %w", err)
	}
	title, err := d.exec(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		title = ""
	}
	return models.HostContext{Process: strings.TrimSpace(string(comm)), WindowTitle: title}, nil
}
