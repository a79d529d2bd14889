package serialdial

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"go-surface/debug"
	"go-surface/registry"
)

// Sample is one raw dial reading from the serial knob box. The box
// speaks a line protocol: "module/slot:value\n", value 0-127.
type Sample struct {
	Control registry.ControlID
	Raw     float64
}

// Reader wraps a go.bug.st/serial port and decodes dial samples.
type Reader struct {
	port    serial.Port
	device  string
	samples chan Sample

	closeOnce sync.Once
}

// Open opens the named serial device at the given baud rate.
func Open(device string, baud int) (*Reader, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	debug.Log("serial", "port opened device=%s baud=%d", device, baud)
	return &Reader{
		port:    p,
		device:  device,
		samples: make(chan Sample, 64),
	}, nil
}

// Samples returns the decoded dial readings.
func (r *Reader) Samples() <-chan Sample {
	return r.samples
}

// Run reads lines until the port errors or closes (blocking - run in
// goroutine). Unparseable lines are logged and skipped.
func (r *Reader) Run() {
	defer close(r.samples)
	scanner := bufio.NewScanner(r.port)
	for scanner.Scan() {
		s, err := parseLine(scanner.Text())
		if err != nil {
			debug.LogEvery(50, "serial", "bad line: %v", err)
			continue
		}
		select {
		case r.samples <- s:
		default:
			debug.LogEvery(100, "serial", "sample channel full, dropping %s", s.Control)
		}
	}
	if err := scanner.Err(); err != nil {
		debug.Log("serial", "read loop ended device=%s err=%v", r.device, err)
	}
}

// Close closes the underlying serial port. Idempotent.
func (r *Reader) Close() {
	r.closeOnce.Do(func() {
		debug.Log("serial", "closing port device=%s", r.device)
		_ = r.port.Close()
	})
}

func parseLine(line string) (Sample, error) {
	line = strings.TrimSpace(line)
	idx := strings.LastIndexByte(line, ':')
	if idx <= 0 || idx == len(line)-1 {
		return Sample{}, fmt.Errorf("bad sample %q", line)
	}
	id, err := registry.ParseControlID(line[:idx])
	if err != nil {
		return Sample{}, err
	}
	raw, err := strconv.ParseFloat(line[idx+1:], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("bad sample %q: %w", line, err)
	}
	return Sample{Control: id, Raw: raw}, nil
}
