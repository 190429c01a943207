package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/lock-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"utc": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Lock Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.locked { color: #888; font-weight: bold; }
.open { color: green; font-weight: bold; }
.pending { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Lock Controller</h1>

<h2>Lock</h2>
<table>
<tr><th>State</th><td id="lock-state" class="{{if .Lock.IsLocked}}locked{{else}}open{{end}}">{{.Lock.Base}}</td></tr>
<tr><th>Secret update</th><td{{if .Lock.UpdatingSecret}} class="pending"{{end}}>{{if .Lock.UpdatingSecret}}waiting for new secret{{else}}no{{end}}</td></tr>
<tr><th>Override</th><td>{{if .Override}}on{{else}}off{{end}}</td></tr>
</table>

<h2>Recent Unlocks</h2>
<table>
{{range $i, $t := .History}}<tr><th>{{$i}}</th><td>{{utc $t}}</td></tr>
{{else}}<tr><td>none</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Topics</th><td>{{.Config.TopicPrefix}}/#</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Unlocks</th><td>{{.Counts.Unlocks}}</td></tr>
<tr><th>Relocks</th><td>{{.Counts.Relocks}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
<tr><th>Secret updates</th><td>{{.Counts.SecretUpdates}}</td></tr>
<tr><th>Log requests</th><td>{{.Counts.BriefLogs}} brief, {{.Counts.FullLogs}} full</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Settle</th><td>{{.Config.SettleMs}}ms</td></tr>
<tr><th>Unlock</th><td>{{.Config.UnlockMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has an Uptime method but the template needs a value.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("http: render index: %v", err)
	}
}
