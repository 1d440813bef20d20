package ai

import (
	"fmt"
	"strings"

	"github.com/themobileprof/deskpilot/pkg/models"
)

const promptTemplate = `You translate desktop voice commands into exactly one JSON action.

Allowed actions (use only these "type" values and fields):
  {"type":"move_window","position":"center|left|right|top|bottom|restore","monitor":"current|next|primary","width_pct":1-100,"height_pct":1-100}
  {"type":"focus_window","title":"<part of the window title>"}
  {"type":"launch_app","exe":"<program name or URI>"}
  {"type":"send_keys","keys":"<chord such as ctrl+shift+t>"}
  {"type":"send_keys","keys":"<text>","literal":true}
  {"type":"open_folder","folder":"Desktop|Documents|Downloads|Music|Pictures|Videos|Home"}
  {"type":"open_website","url":"<absolute URL>"}
  {"type":"close_tab"}
  {"type":"host_command","command":"<canonical command of the foreground application>"}
  {"type":"symbol_insert","name":"<name>","symbol":"<the symbol itself>"}

Reply with the JSON object only. If the request cannot be expressed with
these actions, reply {"type":"noop","reason":"unsupported"}.

Foreground application: %s
Window title: %s
Request: %s
`

func buildPrompt(raw string, hc models.HostContext) string {
	process := hc.Process
	if process == "" {
		process = "unknown"
	}
	title := hc.WindowTitle
	if title == "" {
		title = "unknown"
	}
	return fmt.Sprintf(promptTemplate, process, title, strings.TrimSpace(raw))
}
