// Package restrict provides per-account advisory state.
// Property-based tests for concurrent lock and flag safety.
package restrict

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that read-modify-write
// sequences guarded by the per-account mutex never lose an update:
// the final value equals the sequential sum of all deltas.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		deltas := make([]int64, numOps)
		expected := initialBalance
		for i := 0; i < numOps; i++ {
			deltas[i] = rapid.Int64Range(-500, 500).Draw(t, "delta")
			expected += deltas[i]
		}

		accountID := rapid.Int64Range(1, 1000000).Draw(t, "accountID")

		g := NewGate()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, delta := range deltas {
			go func(delta int64) {
				defer wg.Done()
				g.Lock(accountID)
				defer g.Unlock(accountID)
				balance += delta
			}(delta)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d (initial=%d, numOps=%d)",
				expected, balance, initialBalance, numOps)
		}
	})
}

// TestWithLockSerializationProperty checks that WithLock serializes
// concurrent critical sections for one account.
func TestWithLockSerializationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		amountPerOp := rapid.Int64Range(1, 100).Draw(t, "amountPerOp")
		accountID := rapid.Int64Range(1, 1000000).Draw(t, "accountID")

		g := NewGate()
		var balance int64

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = g.WithLock(accountID, func() error {
					balance += amountPerOp
					return nil
				})
			}()
		}
		wg.Wait()

		if balance != int64(numOps)*amountPerOp {
			t.Fatalf("expected %d, got %d", int64(numOps)*amountPerOp, balance)
		}
	})
}

// TestIndependentAccountLocksProperty checks that locks for different
// accounts do not interfere with each other's critical sections.
func TestIndependentAccountLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAccounts := rapid.IntRange(2, 10).Draw(t, "numAccounts")
		opsPerAccount := rapid.IntRange(5, 20).Draw(t, "opsPerAccount")

		g := NewGate()
		balances := make([]int64, numAccounts)

		var wg sync.WaitGroup
		wg.Add(numAccounts * opsPerAccount)
		for i := 0; i < numAccounts; i++ {
			for j := 0; j < opsPerAccount; j++ {
				go func(idx int) {
					defer wg.Done()
					accountID := int64(idx + 1)
					g.Lock(accountID)
					defer g.Unlock(accountID)
					balances[idx] += 10
				}(i)
			}
		}
		wg.Wait()

		for i, balance := range balances {
			if balance != int64(opsPerAccount)*10 {
				t.Fatalf("account %d: expected %d, got %d", i+1, int64(opsPerAccount)*10, balance)
			}
		}
	})
}

// TestRestrictionFlagProperty checks flag semantics: raised after
// Restrict, lowered after Clear, independent across accounts, and
// false for accounts never touched.
func TestRestrictionFlagProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAccounts := rapid.IntRange(1, 20).Draw(t, "numAccounts")

		g := NewGate()
		restricted := make(map[int64]bool, numAccounts)

		// Apply a random sequence of Restrict/Clear calls and mirror
		// the expected flag state in a plain map.
		numOps := rapid.IntRange(1, 100).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			accountID := rapid.Int64Range(1, int64(numAccounts)).Draw(t, "accountID")
			if rapid.Bool().Draw(t, "raise") {
				g.Restrict(accountID)
				restricted[accountID] = true
			} else {
				g.Clear(accountID)
				restricted[accountID] = false
			}
		}

		for id := int64(1); id <= int64(numAccounts); id++ {
			if g.Restricted(id) != restricted[id] {
				t.Fatalf("account %d: expected restricted=%v, got %v",
					id, restricted[id], g.Restricted(id))
			}
		}

		// Untouched accounts are never restricted
		if g.Restricted(int64(numAccounts) + 1) {
			t.Fatal("untouched account should not be restricted")
		}
	})
}

// TestClearBeforeRestrict verifies Clear on an unknown account is a
// no-op and does not create state.
func TestClearBeforeRestrict(t *testing.T) {
	g := NewGate()
	g.Clear(42)
	if g.Restricted(42) {
		t.Fatal("cleared account should not be restricted")
	}
}

// TestLockUnlockSymmetryProperty checks that symmetric lock/unlock
// cycles leave the mutex available.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		accountID := rapid.Int64Range(1, 1000000).Draw(t, "accountID")
		numCycles := rapid.IntRange(1, 50).Draw(t, "numCycles")

		g := NewGate()
		for i := 0; i < numCycles; i++ {
			g.Lock(accountID)
			g.Unlock(accountID)
		}

		// A final cycle must not deadlock
		done := make(chan struct{})
		go func() {
			g.Lock(accountID)
			g.Unlock(accountID)
			close(done)
		}()
		<-done
	})
}
