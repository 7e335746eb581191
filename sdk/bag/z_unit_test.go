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

package bag

import (
	"slices"
	"testing"

	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/sdk/piece"
)

func newRng(seed int64) *core.Core {
	return core.New(core.Default().New(seed))
}

// reverser 為固定行為的 Shuffler：把序列反轉。
type reverser struct{}

func (reverser) Shuffle(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func isPermutation(t *testing.T, ks []piece.Kind) {
	t.Helper()
	got := slices.Clone(ks)
	slices.Sort(got)
	if !slices.Equal(got, piece.Kinds()) {
		t.Fatalf("not a permutation of the 7 kinds: %v", ks)
	}
}

func TestNextBagIsPermutation(t *testing.T) {
	rng := newRng(1)
	for i := 0; i < 50; i++ {
		isPermutation(t, NextBag(rng))
	}
	b := NextBag(reverser{})
	if b[0] != piece.Z || b[6] != piece.I {
		t.Fatalf("injected shuffler not used: %v", b)
	}
}

func TestBagAlignedWindows(t *testing.T) {
	b := New(newRng(2))
	for w := 0; w < 20; w++ {
		win := make([]piece.Kind, 0, 7)
		for i := 0; i < 7; i++ {
			win = append(win, b.Draw())
		}
		isPermutation(t, win)
	}
	d := b.Drawn()
	for _, k := range piece.Kinds() {
		if d[k] != 20 {
			t.Fatalf("kind %s drawn %d times", k, d[k])
		}
	}
	if b.Bags() != 20 {
		t.Fatalf("bags = %d", b.Bags())
	}
}

func TestBagDeterministic(t *testing.T) {
	a, b := New(newRng(9)), New(newRng(9))
	for i := 0; i < 30; i++ {
		if a.Draw() != b.Draw() {
			t.Fatalf("same seed diverged at draw %d", i)
		}
	}
}

func TestQueueFillPopPeek(t *testing.T) {
	q := NewQueue(New(reverser{}))
	q.Fill(3)
	if q.Len() != 3 {
		t.Fatalf("len %d", q.Len())
	}
	if p := q.Peek(2); !slices.Equal(p, []piece.Kind{piece.Z, piece.T}) {
		t.Fatalf("peek = %v", p)
	}
	if k := q.Pop(); k != piece.Z {
		t.Fatalf("pop = %s", k)
	}
	q.Fill(3)
	if q.Len() != 3 {
		t.Fatalf("refill len %d", q.Len())
	}
	if len(q.Peek(10)) != 3 {
		t.Fatalf("peek beyond len should clamp")
	}
	q.Fill(2)
	if q.Len() != 3 {
		t.Fatalf("fill below len should not draw")
	}
}

func TestQueueReset(t *testing.T) {
	q := NewQueue(New(newRng(5)))
	q.Fill(5)
	q.Reset()
	if q.Len() != 0 {
		t.Fatalf("reset should empty the queue")
	}
	if len(q.Bag().Remaining()) != 7 {
		t.Fatalf("reset should draw a fresh bag")
	}
	if q.Bag().Drawn()[piece.I] != 0 {
		t.Fatalf("reset should clear counters")
	}
}
