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

// Package bot 為模擬器使用的自動玩家：對下落中的方塊窮舉 (旋轉, 欄位)，
// 以盤面特徵的線性加權挑選最佳落點，再透過公開命令執行。
package bot

import (
	"math"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/board"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/sdk/piece"
	"github.com/zintix-labs/blocklab/spec"
)

// ExtraKey 為規則檔 extra 區塊中放權重的 key。
const ExtraKey = "bot"

// Weights 為評估函數的權重；Lines 通常為正，其餘為負。
type Weights struct {
	Height    float64 `yaml:"height"     json:"height"`
	Lines     float64 `yaml:"lines"      json:"lines"`
	Holes     float64 `yaml:"holes"      json:"holes"`
	Bumpiness float64 `yaml:"bumpiness"  json:"bumpiness"`
}

func DefaultWeights() Weights {
	return Weights{Height: -0.51, Lines: 0.76, Holes: -0.36, Bumpiness: -0.18}
}

// WeightsFor 讀取規則檔 extra.bot 的權重，沒有設定時用預設值。
func WeightsFor(rs *spec.RuleSetting) (Weights, error) {
	w := DefaultWeights()
	if _, err := spec.DecodeExtra(rs, ExtraKey, &w); err != nil {
		return DefaultWeights(), errs.Wrap(err, "bot weights")
	}
	return w, nil
}

// Plan 為一個落點：旋轉索引、矩陣左上角 x 與評分。
type Plan struct {
	Rot   int
	X     int
	Score float64
}

type Bot struct {
	w Weights
}

func New(w Weights) *Bot {
	return &Bot{w: w}
}

// Evaluate 以權重評估盤面，lines 為這一手消除的列數。
func Evaluate(b *board.Board, w Weights, lines int) float64 {
	agg, holes, bump := 0, 0, 0
	prev := -1
	for x := 0; x < b.Cols; x++ {
		h := b.Height(x)
		agg += h
		for y := b.Rows - h + 1; y < b.Rows; y++ {
			if b.At(x, y) == piece.None {
				holes++
			}
		}
		if prev >= 0 {
			d := h - prev
			if d < 0 {
				d = -d
			}
			bump += d
		}
		prev = h
	}
	return w.Height*float64(agg) + w.Lines*float64(lines) + w.Holes*float64(holes) + w.Bumpiness*float64(bump)
}

// Best 窮舉目前方塊的所有落點，回傳分數最高者；沒有方塊或無合法落點時 ok 為 false。
func (bt *Bot) Best(g *game.Game) (Plan, bool) {
	cur, ok := g.Active()
	if !ok || g.Over() {
		return Plan{}, false
	}
	b := g.Board()
	size := piece.Size(cur.Kind)
	best := Plan{Score: math.Inf(-1)}
	found := false
	for r := 0; r < piece.States(cur.Kind); r++ {
		for x := -size; x < b.Cols; x++ {
			p := piece.Piece{Kind: cur.Kind, Rot: r, X: x, Y: cur.Y}
			if b.Collides(p) {
				continue
			}
			for !b.Collides(p.Moved(0, 1)) {
				p.Y++
			}
			after, n, _ := b.Merge(p).ClearFullRows()
			s := Evaluate(after, bt.w, n)
			if !found || s > best.Score {
				best = Plan{Rot: r, X: x, Score: s}
				found = true
			}
		}
	}
	return best, found
}

// Play 為目前方塊挑選落點並執行（旋轉、平移、直落）。
// 路徑被擋住時就地直落。回傳是否有執行。
func (bt *Bot) Play(g *game.Game) bool {
	plan, ok := bt.Best(g)
	if !ok {
		return false
	}
	cur, _ := g.Active()
	for i := 0; i < piece.States(cur.Kind) && cur.Rot != plan.Rot; i++ {
		if !g.Rotate() {
			break
		}
		cur, _ = g.Active()
	}
	for {
		cur, _ = g.Active()
		dx := plan.X - cur.X
		if dx == 0 {
			break
		}
		step := 1
		if dx < 0 {
			step = -1
		}
		if !g.Move(step) {
			break
		}
	}
	return g.HardDrop()
}
