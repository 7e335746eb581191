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

// Package piece 定義七種方塊的型別、旋轉矩陣與顏色標籤。
//
// 全部資料在 init 時建立一次後唯讀，查詢皆為純函式，可安全地跨 goroutine 共用。
package piece

import (
	"fmt"
	"iter"
	"strings"
)

// Kind 為方塊種類，同時作為盤面格子的內容；None(0) 代表空格。
type Kind uint8

const (
	None Kind = iota
	I
	J
	L
	O
	S
	T
	Z
)

// Count 為可出現的方塊種類數。
const Count = 7

var kindNames = [...]string{"", "I", "J", "L", "O", "S", "T", "Z"}

// Kinds 依目錄順序回傳 7 種方塊，每次回傳新的 slice。
func Kinds() []Kind {
	return []Kind{I, J, L, O, S, T, Z}
}

// Valid 判斷是否為 7 種可出現的方塊之一（None 不算）。
func (k Kind) Valid() bool {
	return k >= I && k <= Z
}

func (k Kind) String() string {
	if k == None {
		return "."
	}
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind 將 "I"、"t" 等字串轉成 Kind，大小寫不敏感。
func ParseKind(s string) (Kind, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k := I; k <= Z; k++ {
		if kindNames[k] == s {
			return k, true
		}
	}
	return None, false
}

// Matrix 為正方形的佔用矩陣，Matrix[row][col]。
// 由 Shape 回傳的矩陣為共用資料，呼叫端不可修改。
type Matrix [][]bool

// Size 回傳矩陣邊長。
func (m Matrix) Size() int {
	return len(m)
}

// Cell 為矩陣內的相對座標。
type Cell struct {
	X int
	Y int
}

type entry struct {
	color  string
	shapes []Matrix
	cells  [][]Cell
}

var table [Count + 1]entry

func init() {
	def := map[Kind]struct {
		color string
		rows  [][]string
	}{
		I: {"bg-rose-400", [][]string{
			{"....", "####", "....", "...."},
			{".#..", ".#..", ".#..", ".#.."},
			{"....", "####", "....", "...."},
			{".#..", ".#..", ".#..", ".#.."},
		}},
		J: {"bg-rose-500", [][]string{
			{"#..", "###", "..."},
			{".##", ".#.", ".#."},
			{"...", "###", "..#"},
			{".#.", ".#.", "##."},
		}},
		L: {"bg-rose-600", [][]string{
			{"..#", "###", "..."},
			{".#.", ".#.", ".##"},
			{"...", "###", "#.."},
			{"##.", ".#.", ".#."},
		}},
		O: {"bg-rose-300", [][]string{
			{"##", "##"},
		}},
		S: {"bg-rose-700", [][]string{
			{".##", "##.", "..."},
			{".#.", ".##", "..#"},
			{"...", ".##", "##."},
			{"#..", "##.", ".#."},
		}},
		T: {"bg-rose-800", [][]string{
			{".#.", "###", "..."},
			{".#.", ".##", ".#."},
			{"...", "###", ".#."},
			{".#.", "##.", ".#."},
		}},
		Z: {"bg-rose-900", [][]string{
			{"##.", ".##", "..."},
			{"..#", ".##", ".#."},
			{"...", "##.", ".##"},
			{".#.", "##.", "#.."},
		}},
	}
	for k, d := range def {
		e := entry{color: d.color}
		for _, rows := range d.rows {
			m, cells := parseRows(rows)
			e.shapes = append(e.shapes, m)
			e.cells = append(e.cells, cells)
		}
		table[k] = e
	}
}

func parseRows(rows []string) (Matrix, []Cell) {
	m := make(Matrix, len(rows))
	cells := make([]Cell, 0, 4)
	for y, r := range rows {
		if len(r) != len(rows) {
			panic("piece: shape must be square")
		}
		m[y] = make([]bool, len(r))
		for x := 0; x < len(r); x++ {
			if r[x] == '#' {
				m[y][x] = true
				cells = append(cells, Cell{X: x, Y: y})
			}
		}
	}
	return m, cells
}

func lookup(k Kind) *entry {
	if !k.Valid() {
		panic(fmt.Sprintf("piece: unknown kind %d", uint8(k)))
	}
	return &table[k]
}

// norm 將任意整數旋轉索引正規化到 [0,States)。
func norm(rot, n int) int {
	rot %= n
	if rot < 0 {
		rot += n
	}
	return rot
}

// ============================================================
// ** 查詢 **
// ============================================================

// States 回傳方塊的旋轉狀態數（I/J/L/S/T/Z 為 4，O 為 1）。
func States(k Kind) int {
	return len(lookup(k).shapes)
}

// Shape 回傳 rot 對 States 取模後的旋轉矩陣，rot 可為負數。
func Shape(k Kind, rot int) Matrix {
	e := lookup(k)
	return e.shapes[norm(rot, len(e.shapes))]
}

// Offsets 回傳該旋轉狀態下被佔用格子的相對座標（共用資料，不可修改）。
func Offsets(k Kind, rot int) []Cell {
	e := lookup(k)
	return e.cells[norm(rot, len(e.cells))]
}

// Size 回傳矩陣邊長（I 為 4、O 為 2、其餘為 3）。
func Size(k Kind) int {
	return lookup(k).shapes[0].Size()
}

// Dims 回傳旋轉 0 的矩陣寬高，出生位置以此計算。
func Dims(k Kind) (w int, h int) {
	m := lookup(k).shapes[0]
	return len(m[0]), len(m)
}

// Color 回傳預設的顏色標籤；引擎只保存不解讀。
func Color(k Kind) string {
	return lookup(k).color
}

// ============================================================
// ** 放置中的方塊 **
// ============================================================

// Piece 為一個已放置（或下落中）的方塊：種類、旋轉索引與矩陣左上角座標。
// Y 可以為負，代表方塊有部分位於盤面上方。
type Piece struct {
	Kind Kind `json:"kind"`
	Rot  int  `json:"rot"`
	X    int  `json:"x"`
	Y    int  `json:"y"`
}

// Cells 逐一產出方塊佔用的絕對座標。
func (p Piece) Cells() iter.Seq2[int, int] {
	offs := Offsets(p.Kind, p.Rot)
	return func(yield func(int, int) bool) {
		for _, c := range offs {
			if !yield(p.X+c.X, p.Y+c.Y) {
				return
			}
		}
	}
}

// Moved 回傳平移後的新 Piece。
func (p Piece) Moved(dx, dy int) Piece {
	p.X += dx
	p.Y += dy
	return p
}

// Rotated 回傳順時針下一個旋轉狀態，錨點不變。
func (p Piece) Rotated() Piece {
	p.Rot = norm(p.Rot+1, States(p.Kind))
	return p
}

func (p Piece) String() string {
	return fmt.Sprintf("%s r%d (%d,%d)", p.Kind, p.Rot, p.X, p.Y)
}
