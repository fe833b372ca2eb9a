package refresh

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestTicker(t *testing.T) {
	tk := NewTicker(10 * time.Millisecond)
	defer tk.Stop()

	select {
	case <-tk.C():
		t.Fatal("tick before Start")
	case <-time.After(40 * time.Millisecond):
	}

	tk.Start()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("no tick after Start")
	}

	tk.Suspend()
	// drain a tick that may have raced the suspend
	select {
	case <-tk.C():
	default:
	}
	select {
	case <-tk.C():
		t.Fatal("tick while suspended")
	case <-time.After(40 * time.Millisecond):
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "editing_paused", EditingPaused.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "suspended", Suspended.String())
}
