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

// Package game 為單局遊戲的狀態機：下落中的方塊、盤面、計分與暫停/結束旗標。
//
// Game 本身不持有任何計時器，也不是 goroutine-safe。
// 自動下落由宿主（Session）依 GravityInterval 呼叫 Tick 驅動，
// 所有命令在同一把鎖下序列化執行，命令之間不會互相穿插。
//
// 非法的操作（撞牆、暫停中、已結束）一律是靜默的 no-op，回傳 false。
package game

import (
	"time"

	"github.com/zintix-labs/blocklab/sdk/bag"
	"github.com/zintix-labs/blocklab/sdk/board"
	"github.com/zintix-labs/blocklab/sdk/piece"
	"github.com/zintix-labs/blocklab/spec"
)

// Stats 為本局累積的統計，供 recorder 使用。
type Stats struct {
	Pieces         int                  `json:"pieces"`
	Clears         [5]int               `json:"clears"`
	HardDrops      int                  `json:"hard_drops"`
	HardDropPoints int                  `json:"hard_drop_points"`
	LineScore      int                  `json:"line_score"`
	Spawned        [piece.Count + 1]int `json:"spawned"`
}

type Option func(*Game)

// WithClock 注入時間來源（決定消行顯示窗口何時結束），預設為 time.Now。
func WithClock(now func() time.Time) Option {
	return func(g *Game) {
		if now != nil {
			g.now = now
		}
	}
}

type Game struct {
	rules *spec.RuleSetting
	now   func() time.Time

	queue *bag.Queue
	board *board.Board

	active    piece.Piece
	hasActive bool

	score  int
	lines  int
	level  int
	paused bool
	over   bool

	// 消行顯示窗口：權威狀態已更新，這裡只保存給畫面用的合併後(未壓縮)盤面
	clearing   []int
	clearGrid  *board.Board
	clearUntil time.Time

	stats Stats
}

// New 建立新局：空盤面、新的袋子，並立即出生第一個方塊。
// rules 必須已通過 Init（由 spec 解析出來的設定都已初始化）。
func New(rules *spec.RuleSetting, rng bag.Shuffler, opts ...Option) *Game {
	if err := rules.Init(); err != nil {
		panic(err)
	}
	g := &Game{
		rules: rules,
		now:   time.Now,
		queue: bag.NewQueue(bag.New(rng)),
		board: board.New(rules.Cols, rules.Rows),
		level: 1,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.spawn()
	return g
}

// Rules 回傳本局使用的規則。
func (g *Game) Rules() *spec.RuleSetting {
	return g.rules
}

// ============================================================
// ** 查詢 **
// ============================================================

func (g *Game) Score() int          { return g.score }
func (g *Game) Lines() int          { return g.lines }
func (g *Game) Level() int          { return g.level }
func (g *Game) Paused() bool        { return g.paused }
func (g *Game) Over() bool          { return g.over }
func (g *Game) Stats() Stats        { return g.stats }
func (g *Game) Board() *board.Board { return g.board }

// Active 回傳下落中的方塊；沒有時 ok 為 false。
func (g *Game) Active() (piece.Piece, bool) {
	return g.active, g.hasActive
}

// Next 回傳預覽佇列前 n 個方塊。
func (g *Game) Next(n int) []piece.Kind {
	return g.queue.Peek(n)
}

// Drawn 回傳袋子至今抽出的各種方塊數量。
func (g *Game) Drawn() [piece.Count + 1]uint64 {
	return g.queue.Bag().Drawn()
}

// Ticking 表示自動下落是否應該運作（未暫停且未結束）。
func (g *Game) Ticking() bool {
	return !g.paused && !g.over && g.hasActive
}

// GravityInterval 回傳目前等級的自動下落間隔。
func (g *Game) GravityInterval() time.Duration {
	return g.rules.Gravity.Interval(g.level)
}

// Ghost 回傳方塊直落後的 y；沒有方塊或已結束時 ok 為 false。
func (g *Game) Ghost() (int, bool) {
	if !g.hasActive || g.over {
		return 0, false
	}
	return g.dropY(g.active), true
}

// ClearDeadline 回傳消行顯示窗口的結束時間；不在窗口內時 ok 為 false。
func (g *Game) ClearDeadline() (time.Time, bool) {
	if g.clearing == nil || !g.now().Before(g.clearUntil) {
		return time.Time{}, false
	}
	return g.clearUntil, true
}

// SettleClear 提前結束消行顯示窗口。有窗口被結束時回傳 true。
func (g *Game) SettleClear() bool {
	if g.clearing == nil {
		return false
	}
	g.clearing = nil
	g.clearGrid = nil
	g.clearUntil = time.Time{}
	return true
}

// ============================================================
// ** 內部流程 **
// ============================================================

// dropY 回傳 p 往下直落的最大合法 y。
func (g *Game) dropY(p piece.Piece) int {
	y := p.Y
	for !g.board.Collides(p.Moved(0, y-p.Y+1)) {
		y++
	}
	return y
}

// spawn 依序：補滿佇列 -> 取出佇列頭 -> 再補滿，確保出生後佇列長度 >= preview。
func (g *Game) spawn() {
	preview := g.rules.Preview
	g.queue.Fill(preview)
	k := g.queue.Pop()
	g.queue.Fill(preview)

	w, h := piece.Dims(k)
	p := piece.Piece{
		Kind: k,
		Rot:  0,
		X:    (g.rules.Cols - w) / 2,
		Y:    -h + g.rules.SpawnRowOffset,
	}
	g.active = p
	g.hasActive = true
	g.stats.Spawned[k]++
	if g.board.Collides(p) {
		g.over = true
		g.paused = true
	}
}

// lock 把方塊固定到盤面：合併 -> 消行 -> 計分 -> 出生下一個。
func (g *Game) lock() {
	// 上一個顯示窗口的盤面已過時
	g.SettleClear()

	p := g.active
	merged := g.board.Merge(p)
	// 盤面上方的格子在合併時直接捨棄；只有規則開啟 lock_out 時才算結束
	lockOut := false
	if g.rules.LockOut {
		for _, y := range p.Cells() {
			if y < 0 {
				lockOut = true
				break
			}
		}
	}

	after, n, rows := merged.ClearFullRows()
	g.board = after
	g.stats.Pieces++
	g.stats.Clears[min(n, 4)]++
	if n > 0 {
		gain := g.rules.LineScore(n) * g.level
		g.score += gain
		g.stats.LineScore += gain
		g.lines += n
		g.level = g.rules.LevelFor(g.lines)

		g.clearing = rows
		g.clearGrid = merged
		g.clearUntil = g.now().Add(g.rules.ClearDisplay())
	}

	if lockOut {
		g.hasActive = false
		g.over = true
		g.paused = true
		return
	}
	g.spawn()
}

// fall 嘗試下移一格，不行就固定。
func (g *Game) fall() bool {
	next := g.active.Moved(0, 1)
	if !g.board.Collides(next) {
		g.active = next
		return true
	}
	g.lock()
	return true
}

func (g *Game) canAct() bool {
	return g.hasActive && !g.paused && !g.over
}
