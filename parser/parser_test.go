package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	line := `{"Time":"2025-11-02T10:00:00.5Z","Action":"fail","Package":"example.com/calc","Test":"TestAdd/one","Elapsed":0.25}`

	event, err := ParseEvent([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, ActionFail, event.Action)
	assert.Equal(t, "example.com/calc", event.Package)
	assert.Equal(t, "TestAdd/one", event.Test)
	assert.InDelta(t, 0.25, event.Elapsed, 1e-9)
	assert.Equal(t, time.Date(2025, 11, 2, 10, 0, 0, 500_000_000, time.UTC), event.Time)
}

func TestParseEventBuildFailure(t *testing.T) {
	line := `{"Action":"fail","Package":"example.com/broken","Elapsed":0,"FailedBuild":"example.com/broken [example.com/broken.test]"}`

	event, err := ParseEvent([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, "example.com/broken [example.com/broken.test]", event.FailedBuild)
}

func TestParseEventRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"plain text", "ok  \texample.com/calc\t0.01s"},
		{"truncated json", `{"Action":"pass"`},
		{"json without action", `{"level":"info","msg":"hello"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tc.line))
			assert.Error(t, err)
		})
	}

	_, err := ParseEvent([]byte(`{"msg":"x"}`))
	assert.ErrorIs(t, err, ErrNoAction)
}
