package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-surface/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detectConfigured()
	case "monitor":
		monitorCC()
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Port Scanner")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list     - List all MIDI ports")
	fmt.Println("  detect   - Find the controllers named in config")
	fmt.Println("  monitor  - Print incoming CC messages from the first match")
	fmt.Println("  poll     - Poll for device changes")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func configuredNames() []string {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}
	var names []string
	for _, c := range cfg.Controllers {
		names = append(names, strings.ToLower(c.PortName))
	}
	return names
}

func detectConfigured() {
	names := configuredNames()
	fmt.Printf("Looking for configured controllers: %v\n", names)

	found := 0
	for i, p := range midi.GetInPorts() {
		lower := strings.ToLower(p.String())
		for _, want := range names {
			if strings.Contains(lower, want) {
				fmt.Printf("Found input: %d: %s\n", i, p.String())
				found++
			}
		}
	}

	if found > 0 {
		fmt.Printf("\n%d controller(s) detected\n", found)
	} else {
		fmt.Println("\nNo configured controller found")
	}
}

func monitorCC() {
	names := configuredNames()

	var inPort drivers.In
	for _, p := range midi.GetInPorts() {
		lower := strings.ToLower(p.String())
		for _, want := range names {
			if strings.Contains(lower, want) {
				inPort = p
				break
			}
		}
		if inPort != nil {
			break
		}
	}

	if inPort == nil {
		fmt.Println("No configured controller found")
		return
	}

	fmt.Printf("Monitoring CC on: %s (Ctrl+C to exit)\n", inPort.String())

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		var ch, cc, val uint8
		if msg.GetControlChange(&ch, &cc, &val) {
			fmt.Printf("  [%s] ch:%d cc:%d val:%d\n", time.Now().Format("15:04:05.000"), ch, cc, val)
		}
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer stop()

	select {}
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	names := configuredNames()
	lastIn := ""
	lastOut := ""

	for {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()

		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			for _, name := range inNames {
				lower := strings.ToLower(name)
				for _, want := range names {
					if strings.Contains(lower, want) {
						fmt.Printf("  -> %s matched config\n", name)
					}
				}
			}

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
