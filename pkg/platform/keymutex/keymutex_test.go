package keymutex_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sentra/pkg/platform/keymutex"
)

func TestLockSerializesOneKey(t *testing.T) {
	km := keymutex.New()

	// Unsynchronized counter; only the keyed lock keeps this race-free.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := km.Lock("owner-a")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, counter)
}

func TestDistinctKeysDoNotContend(t *testing.T) {
	km := keymutex.New()

	releaseA := km.Lock("owner-a")
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		release := km.Lock("owner-b")
		release()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked behind an unrelated holder")
	}
}

func TestKeyIsReusableAfterRelease(t *testing.T) {
	km := keymutex.New()

	release := km.Lock("owner-a")
	release()

	done := make(chan struct{})
	go func() {
		release := km.Lock("owner-a")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("released key could not be re-acquired")
	}
}
