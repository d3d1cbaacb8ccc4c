package mixer

import (
	"fmt"

	"github.com/loopstation/loopcore/internal/channel"
	"github.com/loopstation/loopcore/internal/wave"
)

// WaveLoadError reports why MixerHandler.LoadWave failed, wrapping the
// wave.Status code from the loader (spec §6/§7 WaveLoad error).
type WaveLoadError struct {
	Path   string
	Status wave.Status
}

func (e *WaveLoadError) Error() string {
	return fmt.Sprintf("mixer: load wave %q: %s", e.Path, e.Status)
}

// Handler implements spec §4.10's user-thread channel/wave orchestration.
// Every method is meant to be called from a single caller goroutine; the
// Handler serializes its own multi-step RCU operations but does not
// protect against concurrent callers (spec: "concurrent user mutations
// must be serialized by the caller").
type Handler struct {
	mixer  *Mixer
	loader WaveLoader

	blockFrames int
	ioChannels  int
}

// NewHandler returns a Handler operating on m's channel/wave lists. loader
// decodes wave files for LoadWave; blockFrames/ioChannels size every new
// channel's scratch buffer to match the device's block length.
func NewHandler(m *Mixer, loader WaveLoader, blockFrames, ioChannels int) *Handler {
	return &Handler{mixer: m, loader: loader, blockFrames: blockFrames, ioChannels: ioChannels}
}

// AddChannel creates a channel of the given kind via the Channel factory
// and pushes it into the RCU list (spec §4.10). MASTER/PREVIEW kinds reuse
// their reserved IDs; creating a second one of either kind pushes a second
// entry under the same ID, which is unsupported — Engine.New constructs
// MASTER_IN and MASTER_OUT once, at startup.
func (h *Handler) AddChannel(kind channel.Kind, columnID, name string) *channel.Channel {
	ch := channel.NewChannel(kind, columnID, name, h.blockFrames, h.ioChannels)
	h.mixer.Channels().Push(ch)
	return ch
}

// LoadWave decodes the file at path, then swaps it onto channelID's
// SamplePlayer: the old wave id is captured, the new wave is pushed into
// the wave list and assigned to the player, and the old wave is popped
// afterward (spec §4.10). Returns an error if the channel is missing, not
// a SAMPLE channel, or decoding fails.
func (h *Handler) LoadWave(channelID, waveID, path string) error {
	ch, ok := h.mixer.Channels().Get(channelID)
	if !ok {
		return fmt.Errorf("mixer: load wave: unknown channel %q", channelID)
	}
	player := ch.Player()
	if player == nil {
		return fmt.Errorf("mixer: load wave: channel %q is not a SAMPLE channel", channelID)
	}

	w, status := h.loader.LoadFile(waveID, path)
	if status != wave.StatusOK {
		return &WaveLoadError{Path: path, Status: status}
	}

	var oldWaveID string
	if old := player.Wave(); old != nil {
		oldWaveID = old.ID()
	}

	h.mixer.waves.Push(w)
	player.SetWave(w)

	if oldWaveID != "" {
		h.mixer.waves.Pop(oldWaveID)
	}
	return nil
}

// CloneChannel deep-copies channelID's state and player settings (mode,
// pitch, range) and pushes the new channel (spec §4.10). Plug-in/action-list
// cloning is out of scope per spec §1 Non-goals (plug-in hosting,
// action-recording timeline are external collaborators). The assigned wave
// is not copied: the clone references the same Wave as the source, and no
// new entry is pushed into the wave list.
func (h *Handler) CloneChannel(channelID string) (*channel.Channel, error) {
	ch, ok := h.mixer.Channels().Get(channelID)
	if !ok {
		return nil, fmt.Errorf("mixer: clone channel: unknown channel %q", channelID)
	}

	clonedState := ch.State().Clone()
	clone := channel.NewChannel(clonedState.Kind(), clonedState.ColumnID(), clonedState.Name(), h.blockFrames, h.ioChannels)
	clone.AdoptState(clonedState)

	if src := ch.Player(); src != nil {
		clone.Player().SetMode(src.Mode())
		clone.Player().SetPitch(float32(src.Pitch()))
		clone.Player().SetRange(src.Begin(), src.End())
		if w := src.Wave(); w != nil {
			clone.Player().SetWave(w)
		}
	}

	h.mixer.Channels().Push(clone)
	return clone, nil
}

// DeleteChannel captures the channel's wave id under a snapshot, pops the
// channel, then pops the wave if no other channel still references it
// (spec §4.10: "pop the channel; then pop the wave (if any)").
func (h *Handler) DeleteChannel(channelID string) error {
	ch, ok := h.mixer.Channels().Pop(channelID)
	if !ok {
		return fmt.Errorf("mixer: delete channel: unknown channel %q", channelID)
	}

	var waveID string
	if player := ch.Player(); player != nil {
		if w := player.Wave(); w != nil {
			waveID = w.ID()
		}
	}
	if waveID == "" {
		return nil
	}

	for _, other := range h.mixer.Channels().Snapshot() {
		if p := other.Player(); p != nil {
			if w := p.Wave(); w != nil && w.ID() == waveID {
				return nil // still referenced; keep the wave alive
			}
		}
	}
	h.mixer.waves.Pop(waveID)
	return nil
}
