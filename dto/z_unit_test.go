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

package dto

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/spec"
)

type inOrder struct{}

func (inOrder) Shuffle(int, func(i, j int)) {}

func TestParseCommand(t *testing.T) {
	for _, s := range []string{"left", "RIGHT", " rotate ", "soft-drop", "hard_drop", "pause", "resume", "toggle_pause", "reset"} {
		if _, err := ParseCommand(s); err != nil {
			t.Fatalf("%q should parse: %v", s, err)
		}
	}
	if _, err := ParseCommand("jump"); errs.LevelOf(err) != errs.Warn {
		t.Fatalf("unknown command should be warn, got %v", err)
	}
}

func TestCommandApply(t *testing.T) {
	g := game.New(spec.Default(), inOrder{})
	p0, _ := g.Active()
	if !CmdLeft.Apply(g) {
		t.Fatalf("left should move")
	}
	p1, _ := g.Active()
	if p1.X != p0.X-1 {
		t.Fatalf("left moved to %d", p1.X)
	}
	if !CmdPause.Apply(g) || CmdLeft.Apply(g) {
		t.Fatalf("paused game should ignore moves")
	}
	if Command("nope").Apply(g) {
		t.Fatalf("unknown command must not change state")
	}
}

func TestDecodeCommandRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/c", strings.NewReader(`{"cmd":"hard_drop"}`))
	c, err := DecodeCommandRequest(r)
	if err != nil || c != CmdHardDrop {
		t.Fatalf("got %q %v", c, err)
	}
	r = httptest.NewRequest(http.MethodGet, "/c?cmd=rotate", nil)
	if c, err = DecodeCommandRequest(r); err != nil || c != CmdRotate {
		t.Fatalf("got %q %v", c, err)
	}
	r = httptest.NewRequest(http.MethodPost, "/c", strings.NewReader(`{"cmd":"left","x":1}`))
	if _, err = DecodeCommandRequest(r); errs.LevelOf(err) != errs.Warn {
		t.Fatalf("unknown field should be warn, got %v", err)
	}
}

func TestDecodeCreateAndSimRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/s", bytes.NewReader([]byte(`{"rid":1,"seed":7}`)))
	cr, err := DecodeCreateRequest(r)
	if err != nil || cr.RID != 1 || cr.Seed == nil || *cr.Seed != 7 {
		t.Fatalf("create: %+v %v", cr, err)
	}
	r = httptest.NewRequest(http.MethodPost, "/s", nil)
	if cr, err = DecodeCreateRequest(r); err != nil || cr.Seed != nil {
		t.Fatalf("empty body should use defaults: %+v %v", cr, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/sim?rule=classic&games=20&workers=2&max_pieces=300&seed=5", nil)
	sr, err := DecodeSimRequest(r)
	if err != nil || sr.Rule != "classic" || sr.Games != 20 || sr.Workers != 2 || sr.MaxPieces != 300 || *sr.Seed != 5 {
		t.Fatalf("sim: %+v %v", sr, err)
	}
	r = httptest.NewRequest(http.MethodGet, "/sim?games=x", nil)
	if _, err = DecodeSimRequest(r); errs.LevelOf(err) != errs.Warn {
		t.Fatalf("bad games should be warn")
	}
}

func TestNewSnapshot(t *testing.T) {
	rs := spec.Default()
	g := game.New(rs, inOrder{})
	s := NewSnapshot(rs, g.Snapshot(), true)
	if len(s.Grid) != 20 || s.Grid[0] != ".........." {
		t.Fatalf("grid: %v", s.Grid)
	}
	if s.Active == nil || s.Active.Kind != "I" || len(s.Active.Cells) != 4 {
		t.Fatalf("active: %+v", s.Active)
	}
	if strings.Join(s.Next, "") != "JLO" || s.IntervalMs != 1000 || s.Colors["I"] == "" {
		t.Fatalf("snapshot: %+v", s)
	}
	g.HardDrop()
	s = NewSnapshot(rs, g.Snapshot(), false)
	if s.Grid[19] != "...IIII..." || s.Colors != nil {
		t.Fatalf("after drop: %v", s.Grid[19])
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	rs := spec.Default()
	c := core.New(core.Default().New(9))
	g := game.New(rs, c)
	g.HardDrop()
	g.MoveLeft()
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("core snapshot: %v", err)
	}
	s, err := EncodeCheckpoint(&Checkpoint{RuleID: rs.RuleID, Rule: rs.RuleName, Seed: 9, Core: snap, State: g.Export()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cp, err := DecodeCheckpoint(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cp.Seed != 9 || cp.Rule != "classic" || !bytes.Equal(cp.Core, snap) {
		t.Fatalf("checkpoint header: %+v", cp)
	}
	g2 := game.New(rs, core.New(core.Default().New(1)))
	if err := g2.Restore(cp.State); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if g2.Board().String() != g.Board().String() || g2.Score() != g.Score() {
		t.Fatalf("restored game differs")
	}

	for _, bad := range []string{"", "!!", "AAAA"} {
		if _, err := DecodeCheckpoint(bad); errs.LevelOf(err) != errs.Warn {
			t.Fatalf("%q should be warn, got %v", bad, err)
		}
	}
}
