// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"slices"
	"testing"
)

func TestCoreDeterminism(t *testing.T) {
	for name, f := range map[string]PRNGFactory{"pcg64": Default(), "pcg32": &PCG32Factory{}} {
		c1 := New(f.New(7))
		c2 := New(f.New(7))
		for i := 0; i < 5; i++ {
			if c1.Uint64() != c2.Uint64() {
				t.Fatalf("%s: Uint64 mismatch at %d", name, i)
			}
		}
		if c1.IntN(10) != c2.IntN(10) {
			t.Fatalf("%s: IntN mismatch", name)
		}
	}
}

func TestIntNBounds(t *testing.T) {
	c := New(Default().New(3))
	if c.IntN(0) != -1 || c.IntN(-4) != -1 {
		t.Fatalf("expected -1 for non-positive bound")
	}
	for i := 0; i < 1000; i++ {
		if v := c.IntN(7); v < 0 || v >= 7 {
			t.Fatalf("IntN(7) out of range: %d", v)
		}
	}
}

func TestShuffleKeepsElements(t *testing.T) {
	c := New(Default().New(9))
	src := []int{1, 2, 3, 4, 5, 6, 7}
	c.Shuffle(len(src), func(i, j int) { src[i], src[j] = src[j], src[i] })
	got := slices.Clone(src)
	slices.Sort(got)
	if !slices.Equal([]int{1, 2, 3, 4, 5, 6, 7}, got) {
		t.Fatalf("shuffle changed elements: %v", src)
	}
}

func TestShuffleReachesEveryPosition(t *testing.T) {
	c := New(Default().New(21))
	var firsts [3]int
	for i := 0; i < 3000; i++ {
		src := []int{0, 1, 2}
		c.Shuffle(len(src), func(i, j int) { src[i], src[j] = src[j], src[i] })
		firsts[src[0]]++
	}
	for v, n := range firsts {
		if n < 800 || n > 1200 {
			t.Fatalf("value %d led %d/3000 shuffles", v, n)
		}
	}
}

func TestSnapshotRestore(t *testing.T) {
	for name, f := range map[string]PRNGFactory{"pcg64": Default(), "pcg32": &PCG32Factory{}} {
		c := New(f.New(42))
		c.Uint64()
		snap, err := c.Snapshot()
		if err != nil {
			t.Fatalf("%s: snapshot: %v", name, err)
		}
		want := c.Uint64()
		c.Uint64()
		if err := c.Restore(snap); err != nil {
			t.Fatalf("%s: restore: %v", name, err)
		}
		if got := c.Uint64(); got != want {
			t.Fatalf("%s: restored stream diverged: %d != %d", name, got, want)
		}
	}
}

func TestPCG32RestoreRejectsGarbage(t *testing.T) {
	r := NewPCG32WithSeed(1)
	if err := r.Restore([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected length error")
	}
	if err := r.Restore(make([]byte, 16)); err == nil {
		t.Fatalf("expected even-increment error")
	}
}
