package keylock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocker_serialises_same_key(t *testing.T) {
	locker := New()
	counter := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("doc")
			defer unlock()
			current := counter
			time.Sleep(time.Microsecond)
			counter = current + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locker.Len())
}

func TestLocker_independent_keys(t *testing.T) {
	locker := New()
	unlockX := locker.Lock("x")

	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("y")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on y waited for x")
	}
	assert.Equal(t, 1, locker.Len())
	unlockX()
	assert.Equal(t, 0, locker.Len())
}
