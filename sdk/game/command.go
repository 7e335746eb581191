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

import "github.com/zintix-labs/blocklab/sdk/board"

// 所有命令回傳狀態是否改變。

func (g *Game) MoveLeft() bool  { return g.Move(-1) }
func (g *Game) MoveRight() bool { return g.Move(1) }

// Move 水平平移 dx 格，目的地非法時不動。
func (g *Game) Move(dx int) bool {
	if !g.canAct() || dx == 0 {
		return false
	}
	next := g.active.Moved(dx, 0)
	if g.board.Collides(next) {
		return false
	}
	g.active = next
	return true
}

// Rotate 轉到下一個旋轉狀態，依序嘗試 kicks 中的水平偏移，全部失敗則不動。
func (g *Game) Rotate() bool {
	if !g.canAct() {
		return false
	}
	rotated := g.active.Rotated()
	for _, k := range g.rules.Kicks {
		cand := rotated.Moved(k, 0)
		if !g.board.Collides(cand) {
			g.active = cand
			return true
		}
	}
	return false
}

// SoftDrop 玩家下移一格，到底則固定。
func (g *Game) SoftDrop() bool {
	if !g.canAct() {
		return false
	}
	return g.fall()
}

// Tick 自動下落一格，到底則固定。暫停或結束時不動。
func (g *Game) Tick() bool {
	if !g.canAct() {
		return false
	}
	return g.fall()
}

// HardDrop 直落到底並立即固定，每落一列得 HardDropPoints() 分。
// 直落分與消行分各自計算後在同一步加總。
func (g *Game) HardDrop() bool {
	if !g.canAct() {
		return false
	}
	y := g.dropY(g.active)
	dist := y - g.active.Y
	pts := dist * g.rules.HardDropPoints()
	g.active.Y = y
	g.score += pts
	g.stats.HardDrops++
	g.stats.HardDropPoints += pts
	g.lock()
	return true
}

// Pause 進入暫停。已暫停或已結束時不動。
func (g *Game) Pause() bool {
	if g.paused || g.over {
		return false
	}
	g.paused = true
	return true
}

// Resume 解除暫停。結束狀態只能由 Reset 離開。
func (g *Game) Resume() bool {
	if !g.paused || g.over {
		return false
	}
	g.paused = false
	return true
}

func (g *Game) TogglePause() bool {
	if g.over {
		return false
	}
	g.paused = !g.paused
	return true
}

// Reset 重開一局：清空盤面、換新袋、分數歸零，並立即出生新方塊。
func (g *Game) Reset() bool {
	g.SettleClear()
	g.board = board.New(g.rules.Cols, g.rules.Rows)
	g.queue.Reset()
	g.hasActive = false
	g.score = 0
	g.lines = 0
	g.level = 1
	g.paused = false
	g.over = false
	g.stats = Stats{}
	g.spawn()
	return true
}
