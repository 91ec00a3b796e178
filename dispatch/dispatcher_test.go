package dispatch_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cometsh/drinkup/dispatch"
)

func TestDispatcher_OK(t *testing.T) {
	var mu sync.Mutex
	var got dispatch.Outcome
	var done bool

	d := dispatch.New(func(event any) error { return nil }, nil)
	d.Dispatch("event", func(o dispatch.Outcome) {
		mu.Lock()
		got, done = o, true
		mu.Unlock()
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, dispatch.OutcomeOK, got)
}

func TestDispatcher_Error(t *testing.T) {
	var mu sync.Mutex
	var got dispatch.Outcome
	var done bool

	d := dispatch.New(func(event any) error { return errors.New("boom") }, nil)
	d.Dispatch("event", func(o dispatch.Outcome) {
		mu.Lock()
		got, done = o, true
		mu.Unlock()
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, dispatch.OutcomeError, got)
}

func TestDispatcher_Panic(t *testing.T) {
	var mu sync.Mutex
	var got dispatch.Outcome
	var done bool

	d := dispatch.New(func(event any) error { panic("kaboom") }, nil)
	d.Dispatch("event", func(o dispatch.Outcome) {
		mu.Lock()
		got, done = o, true
		mu.Unlock()
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, dispatch.OutcomePanic, got)
}

func TestDispatcher_NilDoneIsOptional(t *testing.T) {
	d := dispatch.New(func(event any) error { return nil }, nil)
	assert.NotPanics(t, func() {
		d.Dispatch("event", nil)
		time.Sleep(10 * time.Millisecond)
	})
}
