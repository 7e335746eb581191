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

// Package spec 定義規則設定檔（rule set）的結構、預設值與合法性檢查。
package spec

import (
	"fmt"
	"strings"
	"time"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/piece"
)

// RID 為規則集編號。
type RID uint32

// 預設值（經典規則）
const (
	DefaultCols           = 10
	DefaultRows           = 20
	DefaultPreview        = 3
	DefaultLinesPerLevel  = 10
	DefaultGravityBaseMs  = 1000
	DefaultGravityStepMs  = 75
	DefaultGravityFloorMs = 120
	DefaultClearDisplayMs = 150
	DefaultHardDropPoints = 2
)

// DefaultScoreTable 索引為一次消除的列數。
var DefaultScoreTable = []int{0, 100, 300, 500, 800}

// DefaultKicks 為旋轉時依序嘗試的水平偏移。
var DefaultKicks = []int{0, -1, 1, -2, 2}

type GravitySetting struct {
	BaseMs  int `yaml:"base_ms"   json:"base_ms"`
	StepMs  int `yaml:"step_ms"   json:"step_ms"`
	FloorMs int `yaml:"floor_ms"  json:"floor_ms"`
}

// Interval 回傳指定等級的自動下落間隔：max(base - (level-1)*step, floor)。
func (g GravitySetting) Interval(level int) time.Duration {
	ms := g.BaseMs - (level-1)*g.StepMs
	if ms < g.FloorMs {
		ms = g.FloorMs
	}
	return time.Duration(ms) * time.Millisecond
}

// RuleSetting 為一組完整的遊戲規則。缺漏的欄位在 init 時補上預設值。
type RuleSetting struct {
	RuleName             string            `yaml:"rule_name"                 json:"rule_name"`
	RuleID               RID               `yaml:"rule_id"                   json:"rule_id"`
	Cols                 int               `yaml:"cols"                      json:"cols"`
	Rows                 int               `yaml:"rows"                      json:"rows"`
	Preview              int               `yaml:"preview"                   json:"preview"`
	ScoreTable           []int             `yaml:"score_table"               json:"score_table"`
	LinesPerLevel        int               `yaml:"lines_per_level"           json:"lines_per_level"`
	Gravity              GravitySetting    `yaml:"gravity"                   json:"gravity"`
	ClearDisplayMs       *int              `yaml:"clear_display_ms"          json:"clear_display_ms"`         // nil 時用預設；0 為合法值（不顯示）
	HardDropPointsPerRow *int              `yaml:"hard_drop_points_per_row"  json:"hard_drop_points_per_row"` // nil 時用預設；0 為合法值
	Kicks                []int             `yaml:"kicks"                     json:"kicks"`
	SpawnRowOffset       int               `yaml:"spawn_row_offset"          json:"spawn_row_offset"`
	LockOut              bool              `yaml:"lock_out"                  json:"lock_out"` // 固定時有格子在盤面上方即結束（預設關閉）
	Palette              map[string]string `yaml:"palette"                   json:"palette,omitempty"`
	Extra                map[string]any    `yaml:"extra"                     json:"extra,omitempty"`

	colors   [piece.Count + 1]string
	initFlag bool
}

// Default 回傳經典規則（10x20、預覽 3、經典計分）。
func Default() *RuleSetting {
	rs := &RuleSetting{RuleName: "classic", RuleID: 1}
	if err := rs.init(); err != nil {
		panic(err)
	}
	return rs
}

// Init 補上預設值並檢查合法性；重複呼叫無副作用。
// 手動建構的 RuleSetting 在交給遊戲前必須先呼叫。
func (rs *RuleSetting) Init() error {
	return rs.init()
}

func (rs *RuleSetting) init() error {
	if rs.initFlag {
		return nil
	}
	if rs.Cols == 0 {
		rs.Cols = DefaultCols
	}
	if rs.Rows == 0 {
		rs.Rows = DefaultRows
	}
	if rs.Preview == 0 {
		rs.Preview = DefaultPreview
	}
	if len(rs.ScoreTable) == 0 {
		rs.ScoreTable = append([]int(nil), DefaultScoreTable...)
	}
	if rs.LinesPerLevel == 0 {
		rs.LinesPerLevel = DefaultLinesPerLevel
	}
	if rs.Gravity.BaseMs == 0 {
		rs.Gravity.BaseMs = DefaultGravityBaseMs
	}
	if rs.Gravity.StepMs == 0 {
		rs.Gravity.StepMs = DefaultGravityStepMs
	}
	if rs.Gravity.FloorMs == 0 {
		rs.Gravity.FloorMs = DefaultGravityFloorMs
	}
	if rs.ClearDisplayMs == nil {
		rs.ClearDisplayMs = ptr(DefaultClearDisplayMs)
	}
	if rs.HardDropPointsPerRow == nil {
		rs.HardDropPointsPerRow = ptr(DefaultHardDropPoints)
	}
	if len(rs.Kicks) == 0 {
		rs.Kicks = append([]int(nil), DefaultKicks...)
	}
	rs.RuleName = strings.ToLower(strings.TrimSpace(rs.RuleName))

	if err := rs.valid(); err != nil {
		return err
	}

	for _, k := range piece.Kinds() {
		rs.colors[k] = piece.Color(k)
	}
	for name, c := range rs.Palette {
		k, _ := piece.ParseKind(name)
		rs.colors[k] = c
	}
	rs.initFlag = true
	return nil
}

func (rs *RuleSetting) valid() error {
	if rs.RuleName == "" {
		return errs.NewFatal("rule_name required")
	}
	if rs.Cols < 4 || rs.Rows < 4 {
		return errs.NewFatal(fmt.Sprintf("rule %s: invalid board dimensions cols=%d rows=%d", rs.RuleName, rs.Cols, rs.Rows))
	}
	if rs.Preview < 1 {
		return errs.NewFatal(fmt.Sprintf("rule %s: preview must be >= 1", rs.RuleName))
	}
	if len(rs.ScoreTable) != 5 {
		return errs.NewFatal(fmt.Sprintf("rule %s: score_table needs 5 entries (0..4 lines), got %d", rs.RuleName, len(rs.ScoreTable)))
	}
	for _, v := range rs.ScoreTable {
		if v < 0 {
			return errs.NewFatal(fmt.Sprintf("rule %s: negative score_table entry", rs.RuleName))
		}
	}
	if rs.LinesPerLevel < 1 {
		return errs.NewFatal(fmt.Sprintf("rule %s: lines_per_level must be >= 1", rs.RuleName))
	}
	g := rs.Gravity
	if g.BaseMs < 1 || g.StepMs < 0 || g.FloorMs < 1 || g.FloorMs > g.BaseMs {
		return errs.NewFatal(fmt.Sprintf("rule %s: invalid gravity %+v", rs.RuleName, g))
	}
	if *rs.ClearDisplayMs < 0 || *rs.HardDropPointsPerRow < 0 {
		return errs.NewFatal(fmt.Sprintf("rule %s: negative timing or drop points", rs.RuleName))
	}
	if rs.SpawnRowOffset < 0 || rs.SpawnRowOffset >= rs.Rows {
		return errs.NewFatal(fmt.Sprintf("rule %s: spawn_row_offset out of range", rs.RuleName))
	}
	for name := range rs.Palette {
		if _, ok := piece.ParseKind(name); !ok {
			return errs.NewFatal(fmt.Sprintf("rule %s: palette has unknown kind %q", rs.RuleName, name))
		}
	}
	return nil
}

// Color 回傳套用 palette 覆寫後的顏色標籤。
func (rs *RuleSetting) Color(k piece.Kind) string {
	if !k.Valid() {
		return ""
	}
	if rs.colors[k] == "" {
		return piece.Color(k)
	}
	return rs.colors[k]
}

// Colors 回傳完整的 kind -> 顏色對照（key 為種類字母）。
func (rs *RuleSetting) Colors() map[string]string {
	out := make(map[string]string, piece.Count)
	for _, k := range piece.Kinds() {
		out[k.String()] = rs.Color(k)
	}
	return out
}

// LineScore 回傳一次消除 n 列的基礎分（尚未乘等級）。
func (rs *RuleSetting) LineScore(n int) int {
	if n <= 0 || n >= len(rs.ScoreTable) {
		return 0
	}
	return rs.ScoreTable[n]
}

// HardDropPoints 回傳直落每列的得分。
func (rs *RuleSetting) HardDropPoints() int {
	if rs.HardDropPointsPerRow == nil {
		return DefaultHardDropPoints
	}
	return *rs.HardDropPointsPerRow
}

// LevelFor 回傳累積 lines 列後的等級。
func (rs *RuleSetting) LevelFor(lines int) int {
	return 1 + lines/rs.LinesPerLevel
}

// ClearDisplay 回傳消行顯示窗口長度。
func (rs *RuleSetting) ClearDisplay() time.Duration {
	if rs.ClearDisplayMs == nil {
		return DefaultClearDisplayMs * time.Millisecond
	}
	return time.Duration(*rs.ClearDisplayMs) * time.Millisecond
}

func ptr[T any](v T) *T { return &v }
