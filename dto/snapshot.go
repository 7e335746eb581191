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

// Package dto 定義對外（HTTP / websocket / checkpoint）的序列化結構。
package dto

import (
	"strings"

	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/sdk/piece"
	"github.com/zintix-labs/blocklab/spec"
)

// Snapshot 為對外輸出的畫面狀態。
//
// Grid 每列一個字串，'.' 為空格，其餘為方塊字母（I/J/L/O/S/T/Z）；
// 顏色對照放在 Colors，畫面端自行決定怎麼畫。
type Snapshot struct {
	Rule       string            `json:"rule"`
	RuleID     spec.RID          `json:"rid"`
	Cols       int               `json:"cols"`
	Rows       int               `json:"rows"`
	Grid       []string          `json:"grid"`
	Active     *PieceDTO         `json:"active,omitempty"`
	GhostY     *int              `json:"ghost_y,omitempty"`
	Score      int               `json:"score"`
	Lines      int               `json:"lines"`
	Level      int               `json:"level"`
	Paused     bool              `json:"paused"`
	Over       bool              `json:"over"`
	Clearing   []int             `json:"clearing,omitempty"`
	Next       []string          `json:"next"`
	IntervalMs int64             `json:"interval_ms"`
	Colors     map[string]string `json:"colors,omitempty"`
}

// PieceDTO 為下落中的方塊；Cells 為絕對座標 [x, y]（y 可能為負）。
type PieceDTO struct {
	Kind  string   `json:"kind"`
	Rot   int      `json:"rot"`
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Cells [][2]int `json:"cells"`
}

// NewSnapshot 把 game.Snapshot 轉成對外格式。withColors 為 false 時省略色表（websocket 連續推送用）。
func NewSnapshot(rs *spec.RuleSetting, s game.Snapshot, withColors bool) Snapshot {
	out := Snapshot{
		Rule:       rs.RuleName,
		RuleID:     rs.RuleID,
		Cols:       s.Cols,
		Rows:       s.Rows,
		Grid:       make([]string, len(s.Grid)),
		GhostY:     s.GhostY,
		Score:      s.Score,
		Lines:      s.Lines,
		Level:      s.Level,
		Paused:     s.Paused,
		Over:       s.Over,
		Clearing:   s.Clearing,
		Next:       kindNames(s.Next),
		IntervalMs: s.Interval.Milliseconds(),
	}
	var sb strings.Builder
	for y, row := range s.Grid {
		sb.Reset()
		for _, k := range row {
			sb.WriteString(k.String())
		}
		out.Grid[y] = sb.String()
	}
	if s.Active != nil {
		out.Active = newPieceDTO(*s.Active)
	}
	if withColors {
		out.Colors = rs.Colors()
	}
	return out
}

func newPieceDTO(p piece.Piece) *PieceDTO {
	d := &PieceDTO{Kind: p.Kind.String(), Rot: p.Rot, X: p.X, Y: p.Y}
	for x, y := range p.Cells() {
		d.Cells = append(d.Cells, [2]int{x, y})
	}
	return d
}

func kindNames(ks []piece.Kind) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.String()
	}
	return out
}
