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

// Package board 實作盤面：碰撞判定、合併方塊與消行。
//
// 盤面以一維 row-major slice 保存（idx = y*Cols + x），row 0 在最上方。
// Merge 與 ClearFullRows 都回傳新盤面，不修改原盤面。
package board

import (
	"slices"
	"strings"

	"github.com/zintix-labs/blocklab/sdk/piece"
)

type Board struct {
	Cols  int          `json:"cols"`
	Rows  int          `json:"rows"`
	Cells []piece.Kind `json:"cells"`
}

// New 建立 cols x rows 的空盤面。
func New(cols, rows int) *Board {
	if cols <= 0 || rows <= 0 {
		panic("board: cols and rows must be positive")
	}
	return &Board{Cols: cols, Rows: rows, Cells: make([]piece.Kind, cols*rows)}
}

func (b *Board) Clone() *Board {
	return &Board{Cols: b.Cols, Rows: b.Rows, Cells: slices.Clone(b.Cells)}
}

// In 判斷座標是否在盤面內。
func (b *Board) In(x, y int) bool {
	return x >= 0 && x < b.Cols && y >= 0 && y < b.Rows
}

// At 回傳格子內容，超出範圍視為 None。
func (b *Board) At(x, y int) piece.Kind {
	if !b.In(x, y) {
		return piece.None
	}
	return b.Cells[y*b.Cols+x]
}

// Set 就地寫入格子，超出範圍忽略。僅供建構盤面（測試、還原）使用。
func (b *Board) Set(x, y int, k piece.Kind) {
	if b.In(x, y) {
		b.Cells[y*b.Cols+x] = k
	}
}

// RowFull 判斷第 y 列是否全滿。
func (b *Board) RowFull(y int) bool {
	row := b.Cells[y*b.Cols : (y+1)*b.Cols]
	return !slices.Contains(row, piece.None)
}

// Rows2D 回傳二維拷貝 [row][col]，方便序列化給前端。
func (b *Board) Rows2D() [][]piece.Kind {
	out := make([][]piece.Kind, b.Rows)
	for y := range out {
		out[y] = slices.Clone(b.Cells[y*b.Cols : (y+1)*b.Cols])
	}
	return out
}

// Height 回傳第 x 行的堆疊高度（最高非空格到底部的距離）。
func (b *Board) Height(x int) int {
	for y := 0; y < b.Rows; y++ {
		if b.Cells[y*b.Cols+x] != piece.None {
			return b.Rows - y
		}
	}
	return 0
}

// Empty 判斷盤面是否全空。
func (b *Board) Empty() bool {
	return !slices.ContainsFunc(b.Cells, func(k piece.Kind) bool { return k != piece.None })
}

// ============================================================
// ** 核心操作 **
// ============================================================

// Collides 判斷方塊放在 p 的位置是否非法。
//
//   - x 超出 [0,Cols) 或 y >= Rows：碰撞
//   - y >= 0 且該格非空：碰撞
//   - y < 0（盤面上方）不檢查內容，但仍檢查 x
func (b *Board) Collides(p piece.Piece) bool {
	for x, y := range p.Cells() {
		if x < 0 || x >= b.Cols || y >= b.Rows {
			return true
		}
		if y >= 0 && b.Cells[y*b.Cols+x] != piece.None {
			return true
		}
	}
	return false
}

// Merge 回傳把 p 蓋上去之後的新盤面；盤面外的格子直接捨棄。
func (b *Board) Merge(p piece.Piece) *Board {
	nb := b.Clone()
	for x, y := range p.Cells() {
		if nb.In(x, y) {
			nb.Cells[y*nb.Cols+x] = p.Kind
		}
	}
	return nb
}

// ClearFullRows 一次移除所有滿列，剩餘列保持相對順序往下壓，上方補空列。
//
// 回傳新盤面、消除列數與被消除列的索引（消行前座標，由小到大）。
// 沒有滿列時回傳原盤面本身。
func (b *Board) ClearFullRows() (*Board, int, []int) {
	var full []int
	for y := 0; y < b.Rows; y++ {
		if b.RowFull(y) {
			full = append(full, y)
		}
	}
	if len(full) == 0 {
		return b, 0, nil
	}

	nb := &Board{Cols: b.Cols, Rows: b.Rows, Cells: make([]piece.Kind, len(b.Cells))}
	// 自底向上壓縮（寫指標 wp 只在保留列時前進）
	wp := b.Rows - 1
	fi := len(full) - 1
	for y := b.Rows - 1; y >= 0; y-- {
		if fi >= 0 && full[fi] == y {
			fi--
			continue
		}
		copy(nb.Cells[wp*b.Cols:(wp+1)*b.Cols], b.Cells[y*b.Cols:(y+1)*b.Cols])
		wp--
	}
	return nb, len(full), full
}

// String 以文字繪出盤面，空格為 '.'，方塊為種類字母。
func (b *Board) String() string {
	var sb strings.Builder
	sb.Grow((b.Cols + 1) * b.Rows)
	for y := 0; y < b.Rows; y++ {
		for x := 0; x < b.Cols; x++ {
			sb.WriteString(b.Cells[y*b.Cols+x].String())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Parse 從 String 的格式建立盤面（測試與 fixture 用）。
// 未知字元視為空格。
func Parse(rows ...string) *Board {
	if len(rows) == 0 {
		panic("board: no rows")
	}
	b := New(len(rows[0]), len(rows))
	for y, r := range rows {
		for x := 0; x < len(r) && x < b.Cols; x++ {
			if k, ok := piece.ParseKind(r[x : x+1]); ok {
				b.Cells[y*b.Cols+x] = k
			}
		}
	}
	return b
}
