package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAssignsRunID(t *testing.T) {
	Init(false)
	first := RunID()
	_, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, first, RunID())

	Init(true)
	assert.NotEqual(t, first, RunID())
}

func TestInitTeesToExtraWriters(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)
	t.Cleanup(func() { Init(false) })

	log.Info().Int("frames", 3).Msg("sink closed")
	log.Debug().Msg("below the global level")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, RunID(), event["run"])
	assert.Equal(t, "sink closed", event["message"])
	assert.EqualValues(t, 3, event["frames"])
	assert.Contains(t, event, "time")
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info().Str("variant", "heatmap").Msg("pipeline complete")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "heatmap", event["variant"])
	assert.Equal(t, "pipeline complete", event["message"])
}
