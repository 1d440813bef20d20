package effectors

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/themobileprof/deskpilot/pkg/models"
)

type rect struct {
	X, Y, W, H int
}

func (r rect) contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// wmTarget maps a window handle onto a wmctrl -r argument
func wmTarget(target string) string {
	if target == "" || target == models.TargetActive {
		return ":ACTIVE:"
	}
	return target
}

func (d *Desktop) Maximize(ctx context.Context, target string) error {
	_, err := d.exec(ctx, "wmctrl", "-r", wmTarget(target), "-b", "add,maximized_vert,maximized_horz")
	return err
}

func (d *Desktop) Restore(ctx context.Context, target string) error {
	_, err := d.exec(ctx, "wmctrl", "-r", wmTarget(target), "-b", "remove,maximized_vert,maximized_horz,fullscreen")
	return err
}

// Place snaps the window inside the monitor it is currently on
func (d *Desktop) Place(ctx context.Context, target, position string, widthPct, heightPct int) error {
	win, err := d.windowGeometry(ctx)
	if err != nil {
		return err
	}
	mon, err := d.monitorFor(ctx, win)
	if err != nil {
		return err
	}

	next, err := placeRect(mon.rect, win, position, widthPct, heightPct)
	if err != nil {
		return err
	}

	// a maximized window ignores move/resize requests
	if err := d.Restore(ctx, target); err != nil {
		return err
	}
	_, err = d.exec(ctx, "wmctrl", "-r", wmTarget(target), "-e",
		fmt.Sprintf("0,%d,%d,%d,%d", next.X, next.Y, next.W, next.H))
	return err
}

// placeRect computes the new geometry. Zero percentages keep the
// window's current size along that axis.
func placeRect(mon, win rect, position string, widthPct, heightPct int) (rect, error) {
	w, h := win.W, win.H
	if widthPct > 0 {
		w = mon.W * widthPct / 100
	}
	if heightPct > 0 {
		h = mon.H * heightPct / 100
	}
	if w > mon.W {
		w = mon.W
	}
	if h > mon.H {
		h = mon.H
	}

	out := rect{W: w, H: h}
	centerX := mon.X + (mon.W-w)/2
	centerY := mon.Y + (mon.H-h)/2
	switch position {
	case models.PositionCenter:
		out.X, out.Y = centerX, centerY
	case models.PositionLeft:
		out.X, out.Y = mon.X, centerY
	case models.PositionRight:
		out.X, out.Y = mon.X+mon.W-w, centerY
	case models.PositionTop:
		out.X, out.Y = centerX, mon.Y
	case models.PositionBottom:
		out.X, out.Y = centerX, mon.Y+mon.H-h
	default:
		return rect{}, fmt.Errorf("unknown position %q", position)
	}
	return out, nil
}

// MoveToMonitor keeps the window's offset within its monitor
func (d *Desktop) MoveToMonitor(ctx context.Context, target, monitor string) error {
	win, err := d.windowGeometry(ctx)
	if err != nil {
		return err
	}
	monitors, err := d.monitors(ctx)
	if err != nil {
		return err
	}
	from := monitorIndex(monitors, win)

	var to int
	switch monitor {
	case models.MonitorNext:
		to = (from + 1) % len(monitors)
	case models.MonitorPrimary:
		to = from
		for i, m := range monitors {
			if m.primary {
				to = i
				break
			}
		}
	default:
		return fmt.Errorf("unknown monitor %q", monitor)
	}
	if to == from {
		return nil
	}

	src, dst := monitors[from].rect, monitors[to].rect
	x := dst.X + (win.X - src.X)
	y := dst.Y + (win.Y - src.Y)
	if err := d.Restore(ctx, target); err != nil {
		return err
	}
	_, err = d.exec(ctx, "wmctrl", "-r", wmTarget(target), "-e", fmt.Sprintf("0,%d,%d,-1,-1", x, y))
	return err
}

// windowGeometry reads the active window position and size
func (d *Desktop) windowGeometry(ctx context.Context) (rect, error) {
	out, err := d.exec(ctx, "xdotool", "getactivewindow", "getwindowgeometry", "--shell")
	if err != nil {
		return rect{}, err
	}
	return parseShellGeometry(out)
}

func parseShellGeometry(out string) (rect, error) {
	vals := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil {
			vals[k] = n
		}
	}
	for _, k := range []string{"X", "Y", "WIDTH", "HEIGHT"} {
		if _, ok := vals[k]; !ok {
			return rect{}, fmt.Errorf("window geometry missing %s", k)
		}
	}
	return rect{X: vals["X"], Y: vals["Y"], W: vals["WIDTH"], H: vals["HEIGHT"]}, nil
}

type monitor struct {
	name    string
	primary bool
	rect    rect
}

// " 0: +*DP-1 2560/597x1440/336+0+0  DP-1"
var monitorLine = regexp.MustCompile(`^\s*\d+:\s+\+?(\*?)(\S+)\s+(\d+)/\d+x(\d+)/\d+\+(-?\d+)\+(-?\d+)`)

func (d *Desktop) monitors(ctx context.Context) ([]monitor, error) {
	out, err := d.exec(ctx, "xrandr", "--listactivemonitors")
	if err != nil {
		return nil, err
	}
	return parseMonitors(out)
}

func parseMonitors(out string) ([]monitor, error) {
	var monitors []monitor
	for _, line := range strings.Split(out, "\n") {
		m := monitorLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		w, _ := strconv.Atoi(m[3])
		h, _ := strconv.Atoi(m[4])
		x, _ := strconv.Atoi(m[5])
		y, _ := strconv.Atoi(m[6])
		monitors = append(monitors, monitor{name: m[2], primary: m[1] == "*", rect: rect{X: x, Y: y, W: w, H: h}})
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no active monitors reported by xrandr")
	}
	return monitors, nil
}

func (d *Desktop) monitorFor(ctx context.Context, win rect) (monitor, error) {
	monitors, err := d.monitors(ctx)
	if err != nil {
		return monitor{}, err
	}
	return monitors[monitorIndex(monitors, win)], nil
}

// monitorIndex picks the monitor holding the window's center
func monitorIndex(monitors []monitor, win rect) int {
	cx, cy := win.X+win.W/2, win.Y+win.H/2
	for i, m := range monitors {
		if m.rect.contains(cx, cy) {
			return i
		}
	}
	return 0
}

func titlePattern(title string) string {
	return regexp.QuoteMeta(title)
}

// RestoreWindow brings the window to the current desktop, raises and focuses it
func (d *Desktop) RestoreWindow(ctx context.Context, title string) error {
	_, err := d.exec(ctx, "wmctrl", "-R", title)
	return err
}

func (d *Desktop) SetForeground(ctx context.Context, title string) error {
	_, err := d.exec(ctx, "xdotool", "search", "--limit", "1", "--name", titlePattern(title), "windowactivate", "--sync")
	return err
}

// ClickWindow clicks just inside the window's top-left corner
func (d *Desktop) ClickWindow(ctx context.Context, title string) error {
	_, err := d.exec(ctx, "xdotool", "search", "--limit", "1", "--name", titlePattern(title),
		"mousemove", "--window", "%1", "20", "10", "click", "1")
	return err
}
