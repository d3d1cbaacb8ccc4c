// loopengine is a realtime sample-loop audio engine: it opens an audio
// device, mixes SAMPLE/MIDI channels driven by PRESS/RELEASE/KILL events
// onto a musical clock, and exposes its peak meters and processing time
// as Prometheus metrics.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/loopstation/loopcore/internal/config"
	"github.com/loopstation/loopcore/internal/engine"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("configuration error", "err", err)
	}
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	log.Info("loopengine starting", "sampleRate", cfg.SampleRate, "blockMs", cfg.BlockSizeMs, "channels", cfg.Channels)

	e := engine.New(cfg)
	if err := e.Start(); err != nil {
		log.Fatal("failed to start engine", "err", err)
	}
	log.Info("audio device running", "metrics", cfg.MetricsListenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runControlLoop(ctx, e)
	}()

	<-sigChan
	log.Info("shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("shutdown complete")
	case <-time.After(5 * time.Second):
		log.Warn("shutdown timeout, forcing exit")
	}

	e.Close()
}

// runControlLoop is a placeholder for whatever external control surface
// (OSC, WebSocket, MIDI learn UI) drives Engine.PushUIEvent/PushMidiEvent
// and Engine.Handler in a real deployment; here it just waits for
// cancellation so main's shutdown path has a goroutine to join.
func runControlLoop(ctx context.Context, e *engine.Engine) {
	_ = e
	<-ctx.Done()
}
