package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	SafeGo("panicker", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestSafeGoWithCleanup_RunsCleanupAfterPanic(t *testing.T) {
	cleaned := make(chan struct{})
	SafeGoWithCleanup("panicker", func() {
		panic("boom")
	}, func() {
		close(cleaned)
	})

	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}
}

func TestSafeGoWithCleanup_NilCleanup(t *testing.T) {
	ran := make(chan bool, 1)
	SafeGoWithCleanup("plain", func() { ran <- true }, nil)

	select {
	case v := <-ran:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}
