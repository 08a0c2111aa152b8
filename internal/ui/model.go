// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Polls the player for position, levels and visualization data
package ui

import (
	"time"

	"github.com/ampkit/ampkit-go/internal/dsp"
	"github.com/ampkit/ampkit-go/internal/engine"
	"github.com/ampkit/ampkit-go/internal/player"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	refreshInterval = 100 * time.Millisecond
	seekStep        = 15 * time.Second
	volumeStep      = 0.05
	speedStep       = 0.25
	gainStep        = 1.0 // dB per keypress on the selected band
	spectrumBins    = 32
)

// Model represents the TUI state.
type Model struct {
	player *player.Player

	// Playback
	state    engine.TransportState
	track    player.Track
	hasTrack bool
	position time.Duration
	duration time.Duration
	volume   float64
	muted    bool
	speed    float64
	repeat   bool
	shuffle  bool

	// Equalizer
	bandGains []float64
	eqBand    int

	// Visualization
	spectrum     []float64
	showSpectrum bool

	lastError string

	width  int
	height int
}

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// eventMsg carries a player event into the update loop.
type eventMsg player.Event

// NewModel creates a model over the player.
func NewModel(p *player.Player) Model {
	return Model{
		player:       p,
		volume:       p.Volume(),
		speed:        p.Speed(),
		bandGains:    p.BandGains(),
		showSpectrum: true,
	}
}

// Init starts the refresh timer and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.listenEvents())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) listenEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.player.Events()
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.refresh()
		return m, tick()
	case eventMsg:
		m.applyEvent(player.Event(msg))
		return m, m.listenEvents()
	}
	return m, nil
}

// refresh pulls live state from the player.
func (m *Model) refresh() {
	m.state = m.player.State()
	m.position = m.player.Position()
	if d, ok := m.player.Duration(); ok {
		m.duration = d
	}
	m.track, m.hasTrack = m.player.Current()
	m.volume = m.player.Volume()
	m.muted = m.player.Muted()
	m.speed = m.player.Speed()
	m.repeat = m.player.Repeat()
	m.shuffle = m.player.Shuffle()
	m.bandGains = m.player.BandGains()
	if m.showSpectrum {
		m.spectrum = m.player.Spectrum(spectrumBins)
	}
}

func (m *Model) applyEvent(ev player.Event) {
	switch ev.Kind {
	case player.EventTrackStarted:
		m.track = ev.Track
		m.hasTrack = true
		m.duration = ev.Track.Duration
		m.lastError = ""
	case player.EventTrackEnded:
		m.hasTrack = false
		m.duration = 0
	case player.EventPlaybackError:
		m.lastError = ev.Err.Error()
		m.hasTrack = false
	}
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.togglePlayback()
	case "n":
		if err := m.player.Next(); err != nil {
			m.lastError = err.Error()
		}
	case "p":
		if err := m.player.Prev(); err != nil {
			m.lastError = err.Error()
		}
	case "r":
		m.repeat = !m.repeat
		m.player.SetRepeat(m.repeat)
	case "s":
		m.shuffle = !m.shuffle
		m.player.SetShuffle(m.shuffle)
	case "up":
		m.volume = clampUnit(m.volume + volumeStep)
		m.player.SetVolume(m.volume)
	case "down":
		m.volume = clampUnit(m.volume - volumeStep)
		m.player.SetVolume(m.volume)
	case "m":
		m.muted = !m.muted
		m.player.SetMuted(m.muted)
	case "left":
		if err := m.player.SeekBy(-seekStep); err != nil {
			m.lastError = err.Error()
		}
	case "right":
		if err := m.player.SeekBy(seekStep); err != nil {
			m.lastError = err.Error()
		}
	case "<":
		m.player.SetSpeed(m.speed - speedStep)
		m.speed = m.player.Speed()
	case ">":
		m.player.SetSpeed(m.speed + speedStep)
		m.speed = m.player.Speed()
	case "tab":
		m.eqBand = (m.eqBand + 1) % dsp.NumBands
	case "+", "=":
		m.adjustBand(gainStep)
	case "-", "_":
		m.adjustBand(-gainStep)
	case "0":
		m.player.SetBandGain(m.eqBand, 0)
		m.bandGains = m.player.BandGains()
	case "v":
		m.showSpectrum = !m.showSpectrum
	}
	return m, nil
}

func (m *Model) togglePlayback() {
	var err error
	switch m.state {
	case engine.Playing:
		err = m.player.Pause()
	case engine.Paused:
		err = m.player.Resume()
	default:
		err = m.player.Play()
	}
	if err != nil {
		m.lastError = err.Error()
	} else {
		m.state = m.player.State()
	}
}

func (m *Model) adjustBand(delta float64) {
	gains := m.player.BandGains()
	m.player.SetBandGain(m.eqBand, gains[m.eqBand]+delta)
	m.bandGains = m.player.BandGains()
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
