package tts

import (
	"os/exec"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechProcessStopKills(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sleep(1)")
	}

	var ended atomic.Int32
	p := speechProcess{name: "sleep"}

	require.NoError(t, p.start(exec.Command("sleep", "10"), Utterance{OnEnd: func() { ended.Add(1) }}))
	assert.True(t, p.running())

	p.stop()
	assert.False(t, p.running())
	assert.Eventually(t, func() bool { return ended.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	p.stop()
	assert.Equal(t, int32(1), ended.Load())
}

func TestSpeechProcessEndsOnExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs true(1)")
	}

	ended := make(chan struct{})
	p := speechProcess{name: "true"}

	require.NoError(t, p.start(exec.Command("true"), Utterance{OnEnd: func() { close(ended) }}))

	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("process never ended")
	}
	assert.False(t, p.running())
}

func TestSpeechProcessStartFailure(t *testing.T) {
	p := speechProcess{name: "missing"}
	err := p.start(exec.Command("/nonexistent/synthesizer"), Utterance{})
	assert.Error(t, err)
	assert.False(t, p.running())
}
