package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_AppliesLevel(t *testing.T) {
	Init(Config{Level: WarnLevel, Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	// Unknown levels fall back to info.
	Init(Config{Level: "verbose", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("message_bus")
	logger.Info().Msg("started")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "{"))
	assert.Contains(t, line, `"component":"message_bus"`)
	assert.Contains(t, line, `"message":"started"`)
}
