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

package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/sdk/piece"
	"github.com/zintix-labs/blocklab/spec"
)

// inOrder 不洗牌：每一袋都是 I J L O S T Z。
type inOrder struct{}

func (inOrder) Shuffle(int, func(i, j int)) {}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newGame(t *testing.T, opts ...Option) *Game {
	t.Helper()
	return New(spec.Default(), inOrder{}, opts...)
}

// withBoard 以字串列覆寫盤面（row 0 在最上方，'#' 為填滿），並指定下落方塊。
func withBoard(t *testing.T, g *Game, active piece.Piece, rows map[int]string) {
	t.Helper()
	st := g.Export()
	for i := range st.Cells {
		st.Cells[i] = piece.None
	}
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			if r[x] == '#' {
				st.Cells[y*st.Cols+x] = piece.Z
			}
		}
	}
	st.Active = active
	st.HasActive = true
	require.NoError(t, g.Restore(st))
}

func TestNewSpawnsFirstPiece(t *testing.T) {
	g := newGame(t)
	p, ok := g.Active()
	require.True(t, ok)
	assert.Equal(t, piece.Piece{Kind: piece.I, Rot: 0, X: 3, Y: -4}, p)
	assert.Equal(t, []piece.Kind{piece.J, piece.L, piece.O}, g.Next(3))
	assert.Equal(t, 1, g.Level())
	assert.Equal(t, time.Second, g.GravityInterval())
	assert.True(t, g.Ticking())

	gy, ok := g.Ghost()
	require.True(t, ok)
	assert.Equal(t, 18, gy)
}

func TestMoveStopsAtWalls(t *testing.T) {
	g := newGame(t)
	for i := 0; i < 3; i++ {
		require.True(t, g.MoveLeft())
	}
	assert.False(t, g.MoveLeft())
	p, _ := g.Active()
	assert.Equal(t, 0, p.X)

	for i := 0; i < 6; i++ {
		require.True(t, g.MoveRight())
	}
	assert.False(t, g.MoveRight())
	assert.False(t, g.Move(0))
}

func TestRotateUsesKicks(t *testing.T) {
	g := newGame(t)
	// 垂直的 I 貼左牆（矩陣第 1 行在 x=0）
	withBoard(t, g, piece.Piece{Kind: piece.I, Rot: 1, X: -1, Y: 5}, nil)
	require.True(t, g.Rotate())
	p, _ := g.Active()
	assert.Equal(t, 2, p.Rot)
	assert.Equal(t, 0, p.X, "kick 0 and -1 fail, +1 succeeds")
}

func TestRotateBlockedIsNoop(t *testing.T) {
	g := newGame(t)
	rows := map[int]string{}
	for y := 0; y < 20; y++ {
		rows[y] = ".#########"
	}
	start := piece.Piece{Kind: piece.I, Rot: 1, X: -1, Y: 10}
	withBoard(t, g, start, rows)
	assert.False(t, g.Rotate())
	p, _ := g.Active()
	assert.Equal(t, start, p)
}

func TestHardDropScoresDistanceAndLocks(t *testing.T) {
	g := newGame(t)
	require.True(t, g.HardDrop())
	assert.Equal(t, 44, g.Score(), "22 rows x 2 points")
	b := g.Board()
	for x := 3; x <= 6; x++ {
		assert.Equal(t, piece.I, b.At(x, 19))
	}
	p, _ := g.Active()
	assert.Equal(t, piece.J, p.Kind)
	assert.GreaterOrEqual(t, len(g.Next(10)), 3)
	assert.Equal(t, 1, g.Stats().Pieces)
	assert.Equal(t, 44, g.Stats().HardDropPoints)
}

func TestSingleClearAndDisplayWindow(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	g := newGame(t, WithClock(clk.Now))
	withBoard(t, g, piece.Piece{Kind: piece.I, X: 3, Y: -4}, map[int]string{19: "###....###"})

	require.True(t, g.HardDrop())
	assert.Equal(t, 100+44, g.Score())
	assert.Equal(t, 1, g.Lines())

	snap := g.Snapshot()
	assert.Equal(t, []int{19}, snap.Clearing)
	assert.Equal(t, piece.I, snap.Grid[19][4], "window shows merged grid")
	assert.True(t, g.Board().Empty(), "authoritative board is already collapsed")

	deadline, ok := g.ClearDeadline()
	require.True(t, ok)
	assert.Equal(t, clk.t.Add(150*time.Millisecond), deadline)

	clk.Advance(150 * time.Millisecond)
	snap = g.Snapshot()
	assert.Nil(t, snap.Clearing)
	assert.Equal(t, piece.None, snap.Grid[19][4])
}

func TestFourLinesUsePreClearLevel(t *testing.T) {
	g := newGame(t)
	rows := map[int]string{16: ".#########", 17: ".#########", 18: ".#########", 19: ".#########"}
	withBoard(t, g, piece.Piece{Kind: piece.I, Rot: 1, X: -1, Y: 0}, rows)
	st := g.Export()
	st.Lines = 9
	st.Level = 1
	require.NoError(t, g.Restore(st))

	require.True(t, g.HardDrop())
	assert.Equal(t, 800*1+16*2, g.Score())
	assert.Equal(t, 13, g.Lines())
	assert.Equal(t, 2, g.Level())
	assert.Equal(t, 925*time.Millisecond, g.GravityInterval())
	assert.Equal(t, 1, g.Stats().Clears[4])
	assert.True(t, g.SettleClear())
	assert.True(t, g.Board().Empty())
}

func TestSoftDropAndTickLock(t *testing.T) {
	g := newGame(t)
	withBoard(t, g, piece.Piece{Kind: piece.O, X: 0, Y: 17}, nil)
	require.True(t, g.SoftDrop())
	p, _ := g.Active()
	assert.Equal(t, 18, p.Y)
	require.True(t, g.Tick())
	assert.Equal(t, piece.O, g.Board().At(0, 19))
	assert.Equal(t, 0, g.Score(), "gravity and soft drop award nothing")
}

func TestPauseBlocksCommands(t *testing.T) {
	g := newGame(t)
	require.True(t, g.Pause())
	assert.False(t, g.Pause())
	assert.False(t, g.Ticking())
	before := g.Snapshot()
	assert.False(t, g.MoveLeft())
	assert.False(t, g.Rotate())
	assert.False(t, g.Tick())
	assert.False(t, g.SoftDrop())
	assert.False(t, g.HardDrop())
	assert.Equal(t, before, g.Snapshot())

	require.True(t, g.TogglePause())
	assert.False(t, g.Resume())
	assert.True(t, g.Ticking())
}

func TestBlockOutEndsGame(t *testing.T) {
	rules := &spec.RuleSetting{RuleName: "inside", SpawnRowOffset: 4}
	require.NoError(t, rules.Init())
	g := New(rules, inOrder{})
	// 下一個出生的 I 會落在 row 1 的 x=3..6
	withBoard(t, g, piece.Piece{Kind: piece.O, X: 0, Y: 18}, map[int]string{1: "....#....."})
	st := g.Export()
	st.Queue = []piece.Kind{piece.I, piece.J, piece.L}
	require.NoError(t, g.Restore(st))

	require.True(t, g.Tick())
	assert.True(t, g.Over())
	assert.True(t, g.Paused())
	assert.False(t, g.Resume())
	assert.False(t, g.TogglePause())
	assert.False(t, g.MoveLeft())
	_, ok := g.Ghost()
	assert.False(t, ok)

	require.True(t, g.Reset())
	assert.False(t, g.Over())
	assert.False(t, g.Paused())
}

func TestCellsAboveBoardAreDropped(t *testing.T) {
	g := newGame(t)
	rows := map[int]string{0: "#####.####", 1: "#####.####"}
	for y := 2; y < 20; y++ {
		rows[y] = "#########."
	}
	// 垂直 I 從 y=-4 落進第 5 行，只有下面兩格進得了盤面
	withBoard(t, g, piece.Piece{Kind: piece.I, Rot: 1, X: 4, Y: -4}, rows)
	require.True(t, g.HardDrop())

	assert.Equal(t, 2, g.Lines())
	assert.Equal(t, 300+2*2, g.Score())
	assert.False(t, g.Over())
	assert.False(t, g.Paused())
	p, ok := g.Active()
	require.True(t, ok)
	assert.Equal(t, piece.J, p.Kind)
	require.True(t, g.SettleClear())
	for x := 0; x < 10; x++ {
		assert.Equal(t, piece.None, g.Board().At(x, 0))
		assert.Equal(t, piece.None, g.Board().At(x, 1))
	}
}

func TestLockOutRuleEndsGame(t *testing.T) {
	rules := &spec.RuleSetting{RuleName: "strict", LockOut: true}
	require.NoError(t, rules.Init())
	g := New(rules, inOrder{})
	rows := map[int]string{}
	for y := 0; y < 20; y++ {
		rows[y] = "...####..."
	}
	withBoard(t, g, piece.Piece{Kind: piece.I, X: 3, Y: -4}, rows)
	require.True(t, g.HardDrop())
	assert.True(t, g.Over())
	assert.True(t, g.Paused())
	_, ok := g.Active()
	assert.False(t, ok)
	assert.Nil(t, g.Snapshot().Active)
	assert.Equal(t, 4, g.Score(), "dropped two rows before locking")

	// 同一個盤面在預設規則下繼續
	d := newGame(t)
	withBoard(t, d, piece.Piece{Kind: piece.I, X: 3, Y: -4}, rows)
	require.True(t, d.HardDrop())
	assert.False(t, d.Over())
}

func TestOTwiceStacks(t *testing.T) {
	g := newGame(t)
	withBoard(t, g, piece.Piece{Kind: piece.O, X: 4, Y: -2}, nil)
	st := g.Export()
	st.Queue = []piece.Kind{piece.O, piece.J, piece.L}
	require.NoError(t, g.Restore(st))

	require.True(t, g.HardDrop())
	p, ok := g.Active()
	require.True(t, ok)
	require.Equal(t, piece.Piece{Kind: piece.O, X: 4, Y: -2}, p)
	require.True(t, g.HardDrop())

	b := g.Board()
	for y := 0; y < 20; y++ {
		for x := 0; x < 10; x++ {
			want := piece.None
			if (x == 4 || x == 5) && y >= 16 {
				want = piece.O
			}
			assert.Equal(t, want, b.At(x, y), "cell (%d,%d)", x, y)
		}
	}
	assert.Equal(t, 20*2+18*2, g.Score())
}

func TestClearScoresAtLevel(t *testing.T) {
	for n, base := range map[int]int{1: 100, 2: 300, 3: 500, 4: 800} {
		g := newGame(t)
		rows := map[int]string{}
		for y := 20 - n; y < 20; y++ {
			rows[y] = ".#########"
		}
		withBoard(t, g, piece.Piece{Kind: piece.I, Rot: 1, X: -1, Y: 0}, rows)
		st := g.Export()
		st.Lines = 20
		st.Level = 3
		require.NoError(t, g.Restore(st))

		require.True(t, g.HardDrop())
		assert.Equal(t, base*3+16*2, g.Score(), "%d rows", n)
		assert.Equal(t, 20+n, g.Lines())
		assert.Equal(t, 1, g.Stats().Clears[n])
	}
}

func TestRestoreRejectsOverlapAndShortQueue(t *testing.T) {
	g := newGame(t)
	st := g.Export()
	st.Cells[19*st.Cols+4] = piece.Z
	st.Active = piece.Piece{Kind: piece.O, X: 4, Y: 18}
	err := g.Restore(st)
	require.Error(t, err)
	assert.Equal(t, errs.Warn, errs.LevelOf(err))

	st = g.Export()
	st.Queue = nil
	err = g.Restore(st)
	require.Error(t, err)
	assert.Equal(t, errs.Warn, errs.LevelOf(err))
	st.Queue = []piece.Kind{piece.T, piece.T}
	require.Error(t, g.Restore(st))

	p, _ := g.Active()
	assert.Equal(t, piece.I, p.Kind, "rejected restore leaves the game alone")
	assert.Equal(t, 3, len(g.Next(3)))
}

func TestRestoreKeepsBlockedSpawnWhenOver(t *testing.T) {
	rules := &spec.RuleSetting{RuleName: "inside", SpawnRowOffset: 4}
	require.NoError(t, rules.Init())
	g := New(rules, inOrder{})
	withBoard(t, g, piece.Piece{Kind: piece.O, X: 0, Y: 18}, map[int]string{1: "....#....."})
	st := g.Export()
	st.Queue = []piece.Kind{piece.I, piece.J, piece.L}
	require.NoError(t, g.Restore(st))
	require.True(t, g.Tick())
	require.True(t, g.Over())

	h := New(rules, inOrder{})
	require.NoError(t, h.Restore(g.Export()))
	assert.True(t, h.Over())
}

func TestResetStartsFresh(t *testing.T) {
	g := newGame(t)
	g.HardDrop()
	g.HardDrop()
	g.Pause()
	require.True(t, g.Reset())
	assert.Equal(t, 0, g.Score())
	assert.Equal(t, 0, g.Lines())
	assert.Equal(t, 1, g.Level())
	assert.True(t, g.Board().Empty())
	assert.False(t, g.Paused())
	p, ok := g.Active()
	require.True(t, ok)
	assert.Equal(t, piece.I, p.Kind, "fresh bag starts over")
	assert.Equal(t, Stats{Spawned: [piece.Count + 1]int{piece.I: 1}}, g.Stats())
}

func TestExportRestore(t *testing.T) {
	g := New(spec.Default(), core.New(core.Default().New(5)))
	for i := 0; i < 6; i++ {
		g.MoveLeft()
		g.Rotate()
		g.HardDrop()
	}
	st := g.Export()

	h := New(spec.Default(), core.New(core.Default().New(99)))
	require.NoError(t, h.Restore(st))
	g.SettleClear()
	assert.Equal(t, g.Snapshot(), h.Snapshot())

	bad := st
	bad.Cols = 8
	err := h.Restore(bad)
	require.Error(t, err)
	assert.Equal(t, errs.Warn, errs.LevelOf(err))

	bad = st
	bad.Level = 7
	require.Error(t, h.Restore(bad))
}

func TestSeededGamesAreDeterministic(t *testing.T) {
	play := func() []piece.Kind {
		g := New(spec.Default(), core.New(core.Default().New(2025)))
		var seq []piece.Kind
		for i := 0; i < 40 && !g.Over(); i++ {
			p, _ := g.Active()
			seq = append(seq, p.Kind)
			g.Move(i%7 - 3)
			g.HardDrop()
		}
		return seq
	}
	assert.Equal(t, play(), play())
}

func TestRandomPlayKeepsBoardShape(t *testing.T) {
	rng := core.New(core.Default().New(11))
	g := New(spec.Default(), rng)
	lastScore, lastLines := 0, 0
	for step := 0; step < 3000; step++ {
		if g.Over() {
			g.Reset()
			lastScore, lastLines = 0, 0
		}
		switch rng.IntN(6) {
		case 0:
			g.MoveLeft()
		case 1:
			g.MoveRight()
		case 2:
			g.Rotate()
		case 3:
			g.SoftDrop()
		case 4:
			g.Tick()
		case 5:
			g.HardDrop()
		}
		require.GreaterOrEqual(t, g.Score(), lastScore)
		require.GreaterOrEqual(t, g.Lines(), lastLines)
		require.Equal(t, 1+g.Lines()/10, g.Level())
		lastScore, lastLines = g.Score(), g.Lines()

		if p, ok := g.Active(); ok && !g.Over() {
			require.False(t, g.Board().Collides(p), "active piece overlaps at step %d", step)
			require.GreaterOrEqual(t, len(g.Next(10)), 3)
		}
		for _, c := range g.Board().Cells {
			require.True(t, c == piece.None || c.Valid())
		}
	}
}
