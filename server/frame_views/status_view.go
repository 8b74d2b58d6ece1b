package frame_views

import (
	"html/template"
	"strconv"

	"lifeview/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusView shows the simulation status, the control buttons offered for it,
// the speed slider and the preset list. Only changed elements are updated.
type StatusView struct {
	id      string
	last    *FrameModel
	updates <-chan []fastview.EleUpdate
}

// Button ids, in page order, paired with the ControlSet field that shows them.
var buttons = []struct {
	id    string
	shown func(ControlSet) bool
}{
	{"btn-start", func(cs ControlSet) bool { return cs.Start }},
	{"btn-pause", func(cs ControlSet) bool { return cs.Pause }},
	{"btn-resume", func(cs ControlSet) bool { return cs.Resume }},
	{"btn-stop", func(cs ControlSet) bool { return cs.Stop }},
	{"btn-step", func(cs ControlSet) bool { return cs.Step }},
	{"btn-clear", func(cs ControlSet) bool { return cs.Clear }},
}

func NewStatusView(
	done <-chan struct{},
	frames <-chan FrameModel,
) (sv *StatusView) {
	sv = &StatusView{id: "status"}
	sv.updates = channerics.Convert(done, frames, sv.onUpdate)
	return
}

func (sv *StatusView) Updates() <-chan []fastview.EleUpdate {
	return sv.updates
}

func (sv *StatusView) onUpdate(fm FrameModel) (ops []fastview.EleUpdate) {
	prev := sv.last
	sv.last = &fm

	if prev == nil || prev.Loading != fm.Loading {
		ops = append(ops, hidden("loading", !fm.Loading))
	}
	if prev == nil || prev.State != fm.State {
		ops = append(ops, fastview.EleUpdate{
			EleId: "status-badge",
			Ops: []fastview.Op{
				{Key: fastview.KeyText, Value: fm.StateLabel},
				{Key: "class", Value: "badge " + fm.StateClass},
			},
		})
		for _, btn := range buttons {
			ops = append(ops, hidden(btn.id, !btn.shown(fm.Controls)))
		}
	}
	if prev == nil || prev.Ticks != fm.Ticks {
		ops = append(ops, text("stat-ticks", strconv.FormatUint(fm.Ticks, 10)))
	}
	if prev == nil || prev.Population != fm.Population {
		ops = append(ops, text("stat-cells", strconv.Itoa(fm.Population)))
	}
	// The slider only follows remote changes, so it never fights the user mid-drag.
	if prev == nil || prev.TPS != fm.TPS {
		tps := strconv.Itoa(fm.TPS)
		ops = append(ops,
			text("stat-tps", tps),
			fastview.EleUpdate{
				EleId: "tps-slider",
				Ops:   []fastview.Op{{Key: fastview.KeyValue, Value: tps}},
			})
	}
	return
}

func text(id, value string) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: id,
		Ops:   []fastview.Op{{Key: fastview.KeyText, Value: value}},
	}
}

func hidden(id string, hide bool) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: id,
		Ops:   []fastview.Op{{Key: fastview.KeyHidden, Value: strconv.FormatBool(hide)}},
	}
}

func (sv *StatusView) Parse(
	t *template.Template,
) (name string, err error) {
	name = sv.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div id="sidebar">
			<div id="loading" {{ if not .Loading }}hidden{{ end }}>Loading...</div>
			<h2>Conway's Game of Life</h2>
			<span id="status-badge" class="badge {{ .StateClass }}">{{ .StateLabel }}</span>
			<table class="stats">
				<tr><td>Ticks</td><td id="stat-ticks">{{ .Ticks }}</td></tr>
				<tr><td>Cells</td><td id="stat-cells">{{ .Population }}</td></tr>
				<tr><td>TPS</td><td id="stat-tps">{{ .TPS }}</td></tr>
			</table>
			<div class="controls">
				<button id="btn-start" data-action="start" {{ if not .Controls.Start }}hidden{{ end }}>Start</button>
				<button id="btn-pause" data-action="pause" {{ if not .Controls.Pause }}hidden{{ end }}>Pause</button>
				<button id="btn-resume" data-action="resume" {{ if not .Controls.Resume }}hidden{{ end }}>Resume</button>
				<button id="btn-stop" data-action="stop" {{ if not .Controls.Stop }}hidden{{ end }}>Stop</button>
				<button id="btn-step" data-action="step" {{ if not .Controls.Step }}hidden{{ end }}>Step</button>
				<button id="btn-clear" data-action="clear" {{ if not .Controls.Clear }}hidden{{ end }}>Clear</button>
			</div>
			<label for="tps-slider">Speed</label>
			<input id="tps-slider" type="range" min="1" max="100" value="{{ .TPS }}">
			<h3>Presets</h3>
			<ul class="presets">
				{{ range .Presets }}
				<li><button data-preset="{{ .Name }}" title="{{ .Description }}">{{ .Name }} ({{ .CellCount }})</button></li>
				{{ else }}
				<li>No presets available</li>
				{{ end }}
			</ul>
		</div>
		{{ end }}`)
	return
}
