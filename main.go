package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"go-surface/bus"
	"go-surface/config"
	"go-surface/debug"
	"go-surface/midi"
	"go-surface/page"
	"go-surface/registry"
	"go-surface/render"
	"go-surface/serialdial"
	"go-surface/tui"
	"go-surface/widgets"
)

func main() {
	debug.Enable()
	defer debug.Disable()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	reg := registry.New()
	controls := []registry.Control{
		{ID: registry.ControlID{Module: "osc", Slot: 0}, Options: []string{"Sine", "Triangle", "Square", "Sawtooth"}},
		{ID: registry.ControlID{Module: "filter", Slot: 0}, Min: 0, Max: 127, Value: 64},
		{ID: registry.ControlID{Module: "filter", Slot: 1}, Min: 0, Max: 127},
		{ID: registry.ControlID{Module: "env", Slot: 0}, Min: 0, Max: 127, Value: 10},
		{ID: registry.ControlID{Module: "env", Slot: 1}, Min: 0, Max: 127, Value: 80},
		{ID: registry.ControlID{Module: "mix", Slot: 0}, Min: 0, Max: 127, Value: 100},
		{ID: registry.ControlID{Module: "mix", Slot: 1}, Min: 0, Max: 127, Value: 100},
		{ID: registry.ControlID{Module: "mix", Slot: 2}, Min: 0, Max: 127},
		{ID: registry.ControlID{Module: "mix", Slot: 3}, Min: 0, Max: 127},
	}
	for _, c := range controls {
		if err := reg.Register(c); err != nil {
			debug.Err("main", err)
		}
		reg.SetLatchThresholds(c.ID, cfg.Latch.Pickup, cfg.Latch.Release)
	}

	surface := widgets.NewTermSurface()

	interval := time.Second / time.Duration(cfg.Render.TargetFPS)
	status := widgets.NewStatus("status", image.Rect(0, len(controls), 60, len(controls)+1))
	sched := render.New(reg, surface, interval,
		render.WithBurstFrames(cfg.Render.BurstFrames),
		render.WithStatusWidget(status, time.Second),
	)

	// One dial widget per control, one terminal row each
	dials := make(map[string]*widgets.Dial)
	for i, c := range controls {
		name := c.ID.String()
		d := widgets.NewDial(name, c.ID, reg, image.Rect(0, i, 60, i+1))
		dials[name] = d
		sched.AddWidget(d)
	}

	// Registry mutations mark the owning dial dirty
	reg.SetOnChange(func(id registry.ControlID, owner string) {
		if d, ok := dials[owner]; ok {
			d.MarkDirty()
		}
	})

	busq := bus.New(time.Duration(cfg.WorkerTickMs) * time.Millisecond)
	pages := page.NewManager(reg, sched, busq, cfg.Render.SwitchFrames)

	pages.Add(page.Page{Mode: "synth", Bindings: []page.Binding{
		{Control: controls[0].ID, Owner: controls[0].ID.String(), Initial: 1},
		{Control: controls[1].ID, Owner: controls[1].ID.String(), Initial: 64},
		{Control: controls[2].ID, Owner: controls[2].ID.String(), Initial: 0},
		{Control: controls[3].ID, Owner: controls[3].ID.String(), Initial: 10},
		{Control: controls[4].ID, Owner: controls[4].ID.String(), Initial: 80},
	}})
	pages.Add(page.Page{Mode: "mixer", Bindings: []page.Binding{
		{Control: controls[5].ID, Owner: controls[5].ID.String(), Initial: 100},
		{Control: controls[6].ID, Owner: controls[6].ID.String(), Initial: 100},
		{Control: controls[7].ID, Owner: controls[7].ID.String(), Initial: 0},
		{Control: controls[8].ID, Owner: controls[8].ID.String(), Initial: 0},
	}})

	focus := &tui.FocusHolder{}

	busq.Handle(bus.KindUpdateDial, func(_ bus.Context, msg bus.Message) error {
		du, ok := msg.Payload.(bus.DialUpdate)
		if !ok {
			return bus.Malformed(msg, "bus.DialUpdate")
		}
		return reg.ApplyHardware(du.Control, du.Raw)
	})
	busq.Handle(bus.KindSetMode, pages.HandleSetMode)
	busq.Handle(bus.KindForceRedraw, func(_ bus.Context, msg bus.Message) error {
		rr, ok := msg.Payload.(bus.RedrawRequest)
		if !ok {
			return bus.Malformed(msg, "bus.RedrawRequest")
		}
		sched.RequestFullFrames(rr.Frames)
		return nil
	})
	busq.Handle(bus.KindRemoteChar, func(_ bus.Context, msg bus.Message) error {
		ci, ok := msg.Payload.(bus.CharInput)
		if !ok {
			return bus.Malformed(msg, "bus.CharInput")
		}
		if t := focus.Get(); t != nil {
			t.InsertRune(ci.Ch)
		} else {
			debug.Log("main", "remote char with no focused overlay, dropped")
		}
		return nil
	})

	if err := busq.Start(); err != nil {
		fmt.Printf("bus: %v\n", err)
		os.Exit(1)
	}

	status.FPS = sched.FPS
	status.Backlog = busq.BacklogAverage
	status.Mode = pages.Active

	if err := pages.Activate("synth"); err != nil {
		debug.Err("main", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// UI-thread frame loop
	go sched.Run(ctx)

	// Default CC bindings follow registration order when unconfigured
	ccToControl := make(map[uint8]registry.ControlID)
	if len(cfg.CCMap) > 0 {
		for _, b := range cfg.CCMap {
			id, err := registry.ParseControlID(b.Control)
			if err != nil {
				debug.Err("main", err)
				continue
			}
			ccToControl[b.CC] = id
		}
	} else {
		for i, c := range controls {
			ccToControl[uint8(16+i)] = c.ID
		}
	}

	// MIDI hot-plug
	var matches []string
	for _, c := range cfg.AutoConnectControllers() {
		matches = append(matches, c.PortName)
	}
	deviceMgr := midi.NewDeviceManager(matches)
	go deviceMgr.Run(ctx)
	go func() {
		for ev := range deviceMgr.Events() {
			if ev.Type != midi.DeviceConnected {
				debug.Log("main", "controller disconnected: %s", ev.ID)
				continue
			}
			debug.Log("main", "controller connected: %s", ev.ID)
			go func(c midi.Controller) {
				for de := range c.DialEvents() {
					if id, ok := ccToControl[de.CC]; ok {
						busq.Enqueue(bus.UpdateDialValue(id, float64(de.Raw)))
					}
				}
			}(ev.Controller)
		}
	}()

	// Optional serial knob box
	if cfg.Serial.Device != "" {
		reader, err := serialdial.Open(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			debug.Err("main", err)
		} else {
			defer reader.Close()
			go reader.Run()
			go func() {
				for s := range reader.Samples() {
					busq.Enqueue(bus.UpdateDialValue(s.Control, s.Raw))
				}
			}()
		}
	}

	m := tui.NewModel(surface, sched, busq, pages, focus)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cancel()
	if err := busq.Shutdown(time.Second); err != nil {
		debug.Err("main", err)
	}
}
