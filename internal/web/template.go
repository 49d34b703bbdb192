package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/garage-sensor/internal/logic"
	"github.com/sweeney/garage-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm", days, h, m)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm", h, m)
		}
		return d.String()
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format(time.DateTime)
	},
	"state": logic.StateName,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Garage Sensor</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.OPEN { color: #c00; font-weight: bold; }
.CLOSED { color: green; }
.UNKNOWN { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.COUNTING, .ARMED { color: #c60; font-weight: bold; }
</style>
</head>
<body>
<h1>Garage Sensor</h1>

<h2>Door</h2>
<table>
<tr><th>State</th><td class="{{.DoorState}}">{{.DoorState}}</td></tr>
<tr><th>Since</th><td>{{stamp .LastChange}}</td></tr>
</table>

<h2>Alarms</h2>
<table>
<tr><th>Name</th><th>Condition</th><th>Phase</th></tr>
{{range .Alarms}}<tr><td>{{.Name}}</td><td>{{state .Target}} {{.TriggerAfter}} in {{.Window}}</td><td class="{{.Phase}}">{{.Phase}}{{if not .EpisodeStart.IsZero}} since {{stamp .EpisodeStart}}{{end}}</td></tr>
{{else}}<tr><td colspan="3">none configured</td></tr>
{{end}}</table>

<h2>Event Counts</h2>
<table>
<tr><th>Opens</th><td>{{.Counts.Opens}}</td></tr>
<tr><th>Closes</th><td>{{.Counts.Closes}}</td></tr>
<tr><th>Alerts</th><td>{{.Counts.Alerts}}</td></tr>
<tr><th>Read errors</th><td>{{.Counts.ReadErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceDepth}} readings</td></tr>
<tr><th>GPIO</th><td>{{.Config.Pin}}</td></tr>
<tr><th>SMS</th><td>{{if .Config.DryRun}}dry run{{else}}enabled{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>{{end}}
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
	indexTmpl.Execute(w, data)
}
