// ABOUTME: Tests for OpusHead header parsing
// ABOUTME: Decoding real Opus audio needs libopusfile, so only the header path is covered
package decode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oggOpusHead builds the first Ogg page of an Opus stream: an "OggS"
// page header followed by an OpusHead identification packet.
func oggOpusHead(channels byte) []byte {
	page := []byte("OggS")
	page = append(page, make([]byte, 22)...) // version through sequence/CRC
	page = append(page, 1, 19)               // one segment, 19-byte packet

	head := []byte("OpusHead")
	head = append(head, 1, channels) // version, channel count
	head = append(head, make([]byte, 9)...)
	return append(page, head...)
}

func TestOpusHeadChannels(t *testing.T) {
	for _, channels := range []byte{1, 2} {
		got, err := opusHeadChannels(bytes.NewReader(oggOpusHead(channels)))
		require.NoError(t, err)
		assert.Equal(t, int(channels), got, "channel count %d", channels)
	}
}

func TestOpusHeadChannelsRejectsBadHeaders(t *testing.T) {
	_, err := opusHeadChannels(bytes.NewReader([]byte("OggS not an opus stream")))
	assert.ErrorContains(t, err, "OpusHead")

	_, err = opusHeadChannels(bytes.NewReader(oggOpusHead(0)))
	assert.ErrorContains(t, err, "zero channel")
}
