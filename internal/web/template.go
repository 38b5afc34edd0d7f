package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/agri-logger/internal/logic"
	"github.com/sweeney/agri-logger/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"irrigation": status.IrrigationState,
	"manualMode": status.ManualModeState,
	"flagClass": func(f logic.Flag) string {
		switch f {
		case logic.FlagTrue:
			return "on"
		case logic.FlagFalse:
			return "off"
		}
		return "unknown"
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Agri Logger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Agri Logger</h1>

<h2>State</h2>
<table>
<tr><th>Irrigation</th><td id="irrigation-state" class="{{flagClass .Irrigation}}">{{irrigation .Irrigation}}</td></tr>
<tr><th>Mode</th><td id="manual-state" class="{{flagClass .ManualMode}}">{{manualMode .ManualMode}}</td></tr>
<tr><th>Last message</th><td>{{stamp .LastMessage}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Messages</th><td>{{.Messages}}</td></tr>
<tr><th>Decode errors</th><td>{{.DecodeErrors}}</td></tr>
<tr><th>Write errors</th><td>{{.WriteErrors}}</td></tr>
<tr><th>Irrigation on</th><td>{{.Counts.IrrigationOn}}</td></tr>
<tr><th>Entered manual</th><td>{{.Counts.ManualEntered}}</td></tr>
<tr><th>Resumed auto</th><td>{{.Counts.ManualResumed}}</td></tr>
</table>

<h2>Recent Transitions</h2>
{{if .Recent}}<table>
{{range .Recent}}<tr><th>{{stamp .Timestamp}}</th><td>{{.Type}}</td></tr>
{{end}}</table>{{else}}<p>none</p>{{end}}

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Log dir</th><td>{{.Config.LogDir}}</td></tr>
<tr><th>Files</th><td>{{.Config.GeneralLog}}, {{.Config.IrrigationLog}}, {{.Config.ManualLog}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("render status page: %v", err)
	}
}
