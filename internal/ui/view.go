// ABOUTME: TUI rendering
// ABOUTME: Boxed status layout with progress, equalizer and spectrum views
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ampkit/ampkit-go/internal/dsp"
)

const innerWidth = 54

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString("┌─ ampkit ─────────────────────────────────────────────┐\n")
	b.WriteString(m.renderTrack())
	b.WriteString(m.renderProgress())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderEqualizer())
	if m.showSpectrum {
		b.WriteString(m.renderSpectrum())
	}
	if m.lastError != "" {
		b.WriteString(boxLine("Error: " + truncate(m.lastError, innerWidth-8)))
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderTrack() string {
	if !m.hasTrack {
		return boxLine("No track loaded")
	}
	s := boxLine("Track: " + truncate(filepath.Base(m.track.Path), innerWidth-8))
	s += boxLine(fmt.Sprintf("Format: %dHz %s", m.track.Format.SampleRate, channelName(m.track.Format.Channels)))
	return s
}

func (m Model) renderProgress() string {
	if !m.hasTrack {
		return ""
	}
	if m.duration <= 0 {
		return boxLine(fmt.Sprintf("%s / live", formatTime(m.position)))
	}
	frac := float64(m.position) / float64(m.duration)
	if frac > 1 {
		frac = 1
	}
	bar := renderBar(int(frac*100), 100, 24)
	return boxLine(fmt.Sprintf("%s [%s] %s", formatTime(m.position), bar, formatTime(m.duration)))
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " [muted]"
	}
	repeatIcon := ""
	if m.repeat {
		repeatIcon = " [repeat]"
	}
	shuffleIcon := ""
	if m.shuffle {
		shuffleIcon = " [shuffle]"
	}
	volumeBar := renderBar(int(m.volume*100), 100, 10)

	s := boxLine(fmt.Sprintf("State: %s%s%s", m.state, repeatIcon, shuffleIcon))
	s += boxLine(fmt.Sprintf("Volume: [%s] %3.0f%%%s", volumeBar, m.volume*100, muteIcon))
	if m.speed != 1 {
		s += boxLine(fmt.Sprintf("Speed: %.2fx", m.speed))
	}
	return s
}

func (m Model) renderEqualizer() string {
	var cells []string
	for i, g := range m.bandGains {
		cell := fmt.Sprintf("%+3.0f", g)
		if i == m.eqBand {
			cell = "[" + cell + "]"
		}
		cells = append(cells, cell)
	}
	s := boxLine("EQ (dB): " + truncate(strings.Join(cells, " "), innerWidth-10))
	s += boxLine(fmt.Sprintf("Band: %d (%.0f Hz)", m.eqBand, dsp.BandFreqs[m.eqBand]))
	return s
}

func (m Model) renderSpectrum() string {
	if len(m.spectrum) == 0 {
		return ""
	}
	var peak float64
	for _, v := range m.spectrum {
		if v > peak {
			peak = v
		}
	}
	levels := []rune(" ▁▂▃▄▅▆▇█")
	var bar strings.Builder
	for _, v := range m.spectrum {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(levels)-1))
		}
		bar.WriteRune(levels[idx])
	}
	return boxLine("Spectrum: " + bar.String())
}

func (m Model) renderHelp() string {
	return boxLine("space:Play/Pause n/p:Track s:Shuffle ←/→:Seek q:Quit") +
		"└──────────────────────────────────────────────────────┘\n"
}

func boxLine(content string) string {
	return fmt.Sprintf("│ %-*s │\n", innerWidth-2, content)
}

func formatTime(d time.Duration) string {
	d = d.Round(time.Second)
	min := int(d.Minutes())
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", min, sec)
}

func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
