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
	"slices"
	"time"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/board"
	"github.com/zintix-labs/blocklab/sdk/piece"
)

// Snapshot 為某一時刻可供畫面呈現的完整狀態，與 Game 不共用記憶體。
type Snapshot struct {
	Cols     int
	Rows     int
	Grid     [][]piece.Kind // 消行窗口內為合併後、尚未壓縮的盤面
	Active   *piece.Piece
	GhostY   *int
	Score    int
	Lines    int
	Level    int
	Paused   bool
	Over     bool
	Clearing []int
	Next     []piece.Kind
	Interval time.Duration
}

// Snapshot 產生目前狀態的拷貝。
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Cols:     g.rules.Cols,
		Rows:     g.rules.Rows,
		Score:    g.score,
		Lines:    g.lines,
		Level:    g.level,
		Paused:   g.paused,
		Over:     g.over,
		Next:     g.queue.Peek(g.rules.Preview),
		Interval: g.GravityInterval(),
	}
	if _, ok := g.ClearDeadline(); ok {
		s.Grid = g.clearGrid.Rows2D()
		s.Clearing = slices.Clone(g.clearing)
	} else {
		s.Grid = g.board.Rows2D()
	}
	if g.hasActive {
		p := g.active
		s.Active = &p
	}
	if y, ok := g.Ghost(); ok {
		s.GhostY = &y
	}
	return s
}

// ============================================================
// ** checkpoint **
// ============================================================

// State 為可保存/還原的完整局面（不含亂數狀態，亂數由宿主保存）。
type State struct {
	Cols      int          `json:"cols"`
	Rows      int          `json:"rows"`
	Cells     []piece.Kind `json:"cells"`
	Active    piece.Piece  `json:"active"`
	HasActive bool         `json:"has_active"`
	Queue     []piece.Kind `json:"queue"`
	BagRemain []piece.Kind `json:"bag_remain"`
	Score     int          `json:"score"`
	Lines     int          `json:"lines"`
	Level     int          `json:"level"`
	Paused    bool         `json:"paused"`
	Over      bool         `json:"over"`
	Stats     Stats        `json:"stats"`
}

// Export 匯出目前局面。進行中的消行顯示窗口不會被保存。
func (g *Game) Export() State {
	return State{
		Cols:      g.board.Cols,
		Rows:      g.board.Rows,
		Cells:     slices.Clone(g.board.Cells),
		Active:    g.active,
		HasActive: g.hasActive,
		Queue:     g.queue.Peek(g.queue.Len()),
		BagRemain: g.queue.Bag().Remaining(),
		Score:     g.score,
		Lines:     g.lines,
		Level:     g.level,
		Paused:    g.paused,
		Over:      g.over,
		Stats:     g.stats,
	}
}

// Restore 以 st 覆蓋目前局面。st 與規則不相容時回傳 Warn 且不修改任何狀態。
func (g *Game) Restore(st State) error {
	if err := g.checkState(st); err != nil {
		return err
	}
	g.SettleClear()
	g.board = &board.Board{Cols: st.Cols, Rows: st.Rows, Cells: slices.Clone(st.Cells)}
	g.queue.Restore(st.Queue)
	g.queue.Bag().Restore(st.BagRemain)
	g.active = st.Active
	g.hasActive = st.HasActive
	g.score = st.Score
	g.lines = st.Lines
	g.level = st.Level
	g.paused = st.Paused
	g.over = st.Over
	g.stats = st.Stats
	return nil
}

func (g *Game) checkState(st State) error {
	if st.Cols != g.rules.Cols || st.Rows != g.rules.Rows {
		return errs.Warnf("state board %dx%d does not match rules %dx%d", st.Cols, st.Rows, g.rules.Cols, g.rules.Rows)
	}
	if len(st.Cells) != st.Cols*st.Rows {
		return errs.Warnf("state has %d cells, want %d", len(st.Cells), st.Cols*st.Rows)
	}
	for _, c := range st.Cells {
		if c != piece.None && !c.Valid() {
			return errs.Warnf("state has invalid cell %d", c)
		}
	}
	for _, k := range slices.Concat(st.Queue, st.BagRemain) {
		if !k.Valid() {
			return errs.Warnf("state has invalid queued kind %d", k)
		}
	}
	if len(st.BagRemain) > piece.Count {
		return errs.NewWarn("state bag holds more than one cycle")
	}
	if st.HasActive && !st.Active.Kind.Valid() {
		return errs.NewWarn("state has invalid active piece")
	}
	if !st.HasActive && !st.Over {
		return errs.NewWarn("state without active piece must be over")
	}
	// 結束時出生的方塊本來就與盤面重疊，其餘情況不允許
	if st.HasActive && !st.Over {
		b := &board.Board{Cols: st.Cols, Rows: st.Rows, Cells: st.Cells}
		if b.Collides(st.Active) {
			return errs.NewWarn("state active piece overlaps the board")
		}
	}
	if len(st.Queue) < g.rules.Preview {
		return errs.Warnf("state queue holds %d kinds, want at least %d", len(st.Queue), g.rules.Preview)
	}
	if st.Score < 0 || st.Lines < 0 {
		return errs.NewWarn("state has negative score or lines")
	}
	if st.Level != g.rules.LevelFor(st.Lines) {
		return errs.Warnf("state level %d inconsistent with %d lines", st.Level, st.Lines)
	}
	if st.Over && !st.Paused {
		return errs.NewWarn("state is over but not paused")
	}
	return nil
}
