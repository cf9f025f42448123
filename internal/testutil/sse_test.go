package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStream(t *testing.T) {
	body := "data: {\"type\":\"text\",\"content\":\"Hel\"}\n\n" +
		": keepalive comment\n" +
		"data: {\"type\":\"text\",\"content\":\"lo\"}\n\n" +
		"data: {\"type\":\"function_call\",\"function\":{\"name\":\"f\"}}\n\n" +
		"data: {\"type\":\"done\",\"content\":\"Hello\"}\n\n"

	frames := ParseStream(t, body)
	require.Len(t, frames, 4)

	assert.Equal(t, "Hello", JoinText(frames))
	assert.Len(t, FramesOfType(frames, "text"), 2)
	assert.Len(t, FramesOfType(frames, "function_call"), 1)
	assert.Equal(t, "done", frames[3].Type)
	assert.NotNil(t, frames[3].Content)
}

func TestParseStreamEmptyBody(t *testing.T) {
	assert.Empty(t, ParseStream(t, ""))
}
