// Command padtrackd runs the synthesizer as a standalone instrument: MIDI in
// through rtmidi, audio out through oto. With no MIDI port it plays a short
// demo phrase so the signal path can be heard without hardware.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ebitengine/oto/v3"
	"gitlab.com/gomidi/rtmididrv"
	"golang.org/x/sync/errgroup"

	"github.com/danieltibaquira/padtrack-sub002/pkg/synth"
)

const (
	sampleRate  = 48000
	bufferSize  = 512
	bytesPerFrm = 8 // stereo float32
)

func main() {
	var (
		voices   = flag.Int("voices", synth.DefaultVoiceCount, "polyphony")
		portIdx  = flag.Int("port", -1, "MIDI input port index (-1 = demo phrase)")
		listOnly = flag.Bool("list", false, "list MIDI input ports and exit")
	)
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.SetPrefix("padtrackd: ")

	if err := run(*voices, *portIdx, *listOnly); err != nil {
		log.Fatal(err)
	}
}

func run(voices, portIdx int, listOnly bool) error {
	if listOnly {
		return listPorts()
	}

	engine := synth.NewEngine(voices)
	if err := engine.Prepare(sampleRate, bufferSize); err != nil {
		return err
	}
	src := newEngineSource(engine)

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(src)
	player.Play()
	defer player.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if portIdx >= 0 {
		closePort, err := openMIDI(portIdx, src)
		if err != nil {
			return err
		}
		defer closePort()
		log.Printf("listening on MIDI port %d, %d voices", portIdx, voices)
	} else {
		g.Go(func() error {
			return demoPhrase(ctx, src)
		})
		log.Printf("no MIDI port selected, playing demo phrase (%d voices)", voices)
	}

	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				m := engine.Meters()
				log.Printf("peak %5.1f dB  comp %4.1f dB  lim %4.1f dB  voices %d",
					toDB(m.PeakOut), m.CompressorGR, m.LimiterGR, engine.ActiveVoices())
			}
		}
	})

	err = g.Wait()
	src.allNotesOff()
	// Let the release tails drain before tearing the stream down
	time.Sleep(300 * time.Millisecond)
	if err == context.Canceled {
		return nil
	}
	return err
}

func listPorts() error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("open MIDI driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("enumerate MIDI inputs: %w", err)
	}
	if len(ins) == 0 {
		fmt.Println("no MIDI inputs")
		return nil
	}
	for i, in := range ins {
		fmt.Printf("%2d  %s\n", i, in.String())
	}
	return nil
}

func openMIDI(portIdx int, src *engineSource) (func(), error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open MIDI driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("enumerate MIDI inputs: %w", err)
	}
	if portIdx >= len(ins) {
		drv.Close()
		return nil, fmt.Errorf("MIDI port %d not found (%d available)", portIdx, len(ins))
	}
	in := ins[portIdx]
	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open MIDI port %d: %w", portIdx, err)
	}

	if err := in.SetListener(func(data []byte, _ int64) {
		src.handleMIDI(data)
	}); err != nil {
		in.Close()
		drv.Close()
		return nil, fmt.Errorf("attach MIDI listener: %w", err)
	}

	return func() {
		in.Close()
		drv.Close()
	}, nil
}

// demoPhrase loops a small minor arpeggio until the context ends.
func demoPhrase(ctx context.Context, src *engineSource) error {
	notes := []uint8{45, 57, 60, 64, 60, 57}
	step := 450 * time.Millisecond
	i := 0
	for {
		note := notes[i%len(notes)]
		src.noteOn(note, 96)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step * 3 / 4):
		}
		src.noteOff(note)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step / 4):
		}
		i++
	}
}

// engineSource adapts the engine to oto's pull model. The player goroutine
// calls Read; MIDI callbacks land on a driver thread, so a mutex serializes
// access to the engine. The render block is small enough that contention
// stays inaudible.
type engineSource struct {
	mu     sync.Mutex
	engine *synth.Engine
	mono   []float32
}

func newEngineSource(engine *synth.Engine) *engineSource {
	return &engineSource{
		engine: engine,
		mono:   make([]float32, bufferSize),
	}
}

// Read renders mono blocks and interleaves them to stereo float32 LE.
func (s *engineSource) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrm
	written := 0

	for frames > 0 {
		n := frames
		if n > len(s.mono) {
			n = len(s.mono)
		}
		block := s.mono[:n]

		s.mu.Lock()
		s.engine.Process(block)
		s.mu.Unlock()

		for _, sample := range block {
			bits := math.Float32bits(sample)
			binary.LittleEndian.PutUint32(p[written:], bits)
			binary.LittleEndian.PutUint32(p[written+4:], bits)
			written += bytesPerFrm
		}
		frames -= n
	}
	return written, nil
}

func (s *engineSource) handleMIDI(data []byte) {
	if len(data) < 3 {
		return
	}
	status := data[0] & 0xF0
	switch status {
	case 0x90:
		s.noteOn(data[1]&0x7F, data[2]&0x7F)
	case 0x80:
		s.noteOff(data[1] & 0x7F)
	case 0xB0:
		switch data[1] {
		case 64: // sustain pedal
			s.mu.Lock()
			s.engine.Allocator().SetSustainPedal(data[2] >= 64)
			s.mu.Unlock()
		case 123: // all notes off
			s.allNotesOff()
		}
	}
}

func (s *engineSource) noteOn(note, velocity uint8) {
	s.mu.Lock()
	s.engine.NoteOn(note, velocity)
	s.mu.Unlock()
}

func (s *engineSource) noteOff(note uint8) {
	s.mu.Lock()
	s.engine.NoteOff(note)
	s.mu.Unlock()
}

func (s *engineSource) allNotesOff() {
	s.mu.Lock()
	s.engine.AllNotesOff()
	s.mu.Unlock()
}

func toDB(linear float64) float64 {
	if linear <= 1e-6 {
		return -120.0
	}
	return 20.0 * math.Log10(linear)
}
