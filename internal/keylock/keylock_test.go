package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(Drop("d1"))
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, counter)
	assert.Equal(t, 0, m.Len())
}

func TestLockAllOverlappingSetsDoNotDeadlock(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := m.LockAll(Session("s"), Drop("d"))
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := m.LockAll(Drop("d"), Session("s"), Drop("d"), "")
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, m.Len())
}
