package store

import (
	"sync"
	"testing"
)

func TestULIDGenerator(t *testing.T) {
	gen := ULIDGenerator()

	seen := map[string]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := gen()
				if len(id) != 26 {
					t.Errorf("generated identity %q, want 26-char ULID", id)
					return
				}
				mu.Lock()
				if seen[string(id)] {
					t.Errorf("duplicate identity %q", id)
				}
				seen[string(id)] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
