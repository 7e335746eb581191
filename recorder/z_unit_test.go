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

package recorder

import (
	"testing"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/sdk/piece"
	"github.com/zintix-labs/blocklab/spec"
)

// stackGame 只做硬降直到結束；開啟 lock_out 後方塊疊在中間很快就結束。
func stackGame(t *testing.T, seed int64) *game.Game {
	t.Helper()
	rules := spec.Default()
	rules.LockOut = true
	g := game.New(rules, core.New(core.Default().New(seed)))
	for i := 0; i < 500 && !g.Over(); i++ {
		g.HardDrop()
	}
	if !g.Over() {
		t.Fatalf("stacking game should end")
	}
	return g
}

func TestRecordGame(t *testing.T) {
	r, err := NewGameRecorder(spec.Default())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	g := stackGame(t, 1)
	r.Record(g, false)

	st := g.Stats()
	if r.Basic.Games != 1 || r.Basic.TotalPieces != st.Pieces || r.Basic.DropPoints != st.HardDropPoints {
		t.Fatalf("basic record mismatch: %+v vs %+v", r.Basic, st)
	}
	if r.Basic.TotalScore != g.Score() || r.GamesAtLevel(g.Level()) != 1 {
		t.Fatalf("score/level not recorded")
	}
	drawn := g.Drawn()
	total := uint64(0)
	for _, k := range piece.Kinds() {
		if r.Drawn(k) != drawn[k] {
			t.Fatalf("drawn %s = %d want %d", k, r.Drawn(k), drawn[k])
		}
		total += r.Drawn(k)
	}
	if total == 0 {
		t.Fatalf("no draws recorded")
	}
}

func TestMergeAndDone(t *testing.T) {
	a, _ := NewGameRecorder(spec.Default())
	b, _ := NewGameRecorder(spec.Default())
	a.Record(stackGame(t, 1), false)
	a.Record(stackGame(t, 2), true)
	b.Record(stackGame(t, 3), false)

	m, err := MergeGameRecorder([]*GameRecorder{a, b})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if m.Basic.Games != 3 || m.Basic.Capped != 1 || len(m.Dist.Scores) != 3 {
		t.Fatalf("merged basic: %+v", m.Basic)
	}
	if m.Basic.TotalScore != a.Basic.TotalScore+b.Basic.TotalScore {
		t.Fatalf("score not summed")
	}
	for _, k := range piece.Kinds() {
		if m.Drawn(k) != a.Drawn(k)+b.Drawn(k) {
			t.Fatalf("drawn %s not summed", k)
		}
	}

	rep := m.Done()
	if rep.Summary.Games != 3 || rep.Summary.RuleName != "classic" {
		t.Fatalf("summary: %+v", rep.Summary)
	}
	if len(rep.Fairness.Counts) != piece.Count || rep.Fairness.DF != piece.Count-1 {
		t.Fatalf("fairness: %+v", rep.Fairness)
	}
	games := 0
	for _, n := range rep.Clears.Levels {
		games += n
	}
	if games != 3 {
		t.Fatalf("level histogram covers %d games", games)
	}
	collected := 0
	for _, n := range rep.Dist.ScoreCollect {
		collected += n
	}
	if collected != 3 {
		t.Fatalf("score buckets cover %d games", collected)
	}
}

func TestMergeRejectsDifferentRules(t *testing.T) {
	a, _ := NewGameRecorder(spec.Default())
	other := spec.Default()
	other.RuleName = "sprint"
	other.RuleID = 2
	b, _ := NewGameRecorder(other)
	if _, err := MergeGameRecorder([]*GameRecorder{a, b}); !errs.IsFatal(err) {
		t.Fatalf("expected fatal, got %v", err)
	}
	if _, err := MergeGameRecorder(nil); err == nil {
		t.Fatalf("empty merge should fail")
	}
}
