package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaKind(t *testing.T) {
	for in, want := range map[string]MediaKind{"image": MediaKindImage, " Photo ": MediaKindImage, "VIDEO": MediaKindVideo} {
		got, err := ParseMediaKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMediaKind("audio")
	assert.Error(t, err)
}

func TestMediaKindNeedsTranscode(t *testing.T) {
	assert.True(t, MediaKindVideo.NeedsTranscode())
	assert.False(t, MediaKindImage.NeedsTranscode())
	assert.False(t, MediaKind("gif").IsValid())
}

func TestMediaStateTerminal(t *testing.T) {
	assert.False(t, MediaStateProcessing.IsTerminal())
	for _, s := range []MediaState{MediaStateReady, MediaStateFailed, MediaStateDeleted} {
		assert.True(t, s.IsTerminal(), s.String())
	}
	_, err := ParseMediaState("Ready")
	assert.Error(t, err)
}
