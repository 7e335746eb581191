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

package recorder

import (
	"github.com/kamstrup/intmap"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/sdk/piece"
	"github.com/zintix-labs/blocklab/spec"
	"github.com/zintix-labs/blocklab/stats"
)

// GameRecorder 遊戲紀錄員
//
// GameRecorder 在每局結束時紀錄結果，並透過 Done 輸出統計報表。
// 單一 worker 使用，不是 goroutine-safe；多 worker 以 MergeGameRecorder 合併。
type GameRecorder struct {
	RuleName string
	RuleID   spec.RID
	Basic    *BasicRecord
	Dist     *DistRecord

	levels   *intmap.Map[int, int]           // 結束等級 -> 局數
	maxLevel int
	drawn    *intmap.Map[piece.Kind, uint64] // 方塊種類 -> 袋子抽出數
}

// BasicRecord 基本遊戲資料紀錄
type BasicRecord struct {
	Games       int
	Capped      int
	TotalScore  int
	MaxScore    int
	TotalLines  int
	TotalPieces int
	DropPoints  int
	Clears      [5]int
}

// DistRecord 分數落點與原始分數
type DistRecord struct {
	ScoreCollect []int
	Scores       []float64
}

func NewGameRecorder(rs *spec.RuleSetting) (*GameRecorder, error) {
	if rs == nil {
		return nil, errs.NewFatal("new game recorder: nil rule setting")
	}
	return &GameRecorder{
		RuleName: rs.RuleName,
		RuleID:   rs.RuleID,
		Basic:    new(BasicRecord),
		Dist:     &DistRecord{ScoreCollect: make([]int, len(stats.ScoreBucketStr()))},
		levels:   intmap.New[int, int](32),
		drawn:    intmap.New[piece.Kind, uint64](piece.Count),
	}, nil
}

// Record 紀錄一局已結束（或被 maxPieces 截斷，capped=true）的遊戲。
func (r *GameRecorder) Record(g *game.Game, capped bool) {
	st := g.Stats()
	score := g.Score()

	b := r.Basic
	b.Games++
	if capped {
		b.Capped++
	}
	b.TotalScore += score
	b.MaxScore = max(b.MaxScore, score)
	b.TotalLines += g.Lines()
	b.TotalPieces += st.Pieces
	b.DropPoints += st.HardDropPoints
	for i, n := range st.Clears {
		b.Clears[i] += n
	}

	r.Dist.ScoreCollect[stats.ScoreBucketIndex(score)]++
	r.Dist.Scores = append(r.Dist.Scores, float64(score))

	r.addLevel(g.Level(), 1)
	drawn := g.Drawn()
	for _, k := range piece.Kinds() {
		r.addDrawn(k, drawn[k])
	}
}

func (r *GameRecorder) addLevel(level, n int) {
	c, _ := r.levels.Get(level)
	r.levels.Put(level, c+n)
	r.maxLevel = max(r.maxLevel, level)
}

func (r *GameRecorder) addDrawn(k piece.Kind, n uint64) {
	c, _ := r.drawn.Get(k)
	r.drawn.Put(k, c+n)
}

// Drawn 回傳某種方塊累計被抽出的次數。
func (r *GameRecorder) Drawn(k piece.Kind) uint64 {
	c, _ := r.drawn.Get(k)
	return c
}

// GamesAtLevel 回傳結束時等級為 level 的局數。
func (r *GameRecorder) GamesAtLevel(level int) int {
	c, _ := r.levels.Get(level)
	return c
}

// MergeGameRecorder 合併多個 worker 的紀錄；規則不同時回傳 Fatal。
func MergeGameRecorder(rs []*GameRecorder) (*GameRecorder, error) {
	if len(rs) == 0 {
		return nil, errs.NewFatal("merge game recorder: empty input")
	}
	r0 := rs[0]
	out := &GameRecorder{
		RuleName: r0.RuleName,
		RuleID:   r0.RuleID,
		Basic:    new(BasicRecord),
		Dist:     &DistRecord{ScoreCollect: make([]int, len(r0.Dist.ScoreCollect))},
		levels:   intmap.New[int, int](32),
		drawn:    intmap.New[piece.Kind, uint64](piece.Count),
	}
	for _, v := range rs {
		if v.RuleID != r0.RuleID || v.RuleName != r0.RuleName {
			return nil, errs.Fatalf("merge game recorder: different rules %s(%d) vs %s(%d)", v.RuleName, v.RuleID, r0.RuleName, r0.RuleID)
		}
		b := out.Basic
		b.Games += v.Basic.Games
		b.Capped += v.Basic.Capped
		b.TotalScore += v.Basic.TotalScore
		b.MaxScore = max(b.MaxScore, v.Basic.MaxScore)
		b.TotalLines += v.Basic.TotalLines
		b.TotalPieces += v.Basic.TotalPieces
		b.DropPoints += v.Basic.DropPoints
		for i, n := range v.Basic.Clears {
			b.Clears[i] += n
		}
		for i, n := range v.Dist.ScoreCollect {
			out.Dist.ScoreCollect[i] += n
		}
		out.Dist.Scores = append(out.Dist.Scores, v.Dist.Scores...)
		for lv := 1; lv <= v.maxLevel; lv++ {
			if n := v.GamesAtLevel(lv); n > 0 {
				out.addLevel(lv, n)
			}
		}
		for _, k := range piece.Kinds() {
			out.addDrawn(k, v.Drawn(k))
		}
	}
	return out, nil
}

// Done 輸出統計報表（已計算衍生欄位）。
func (r *GameRecorder) Done() *stats.StatReport {
	b := r.Basic
	levels := make([]int, r.maxLevel)
	for lv := 1; lv <= r.maxLevel; lv++ {
		levels[lv-1] = r.GamesAtLevel(lv)
	}
	kinds := piece.Kinds()
	names := make([]string, len(kinds))
	counts := make([]uint64, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
		counts[i] = r.Drawn(k)
	}

	report := &stats.StatReport{
		Summary: &stats.SummaryReport{
			RuleName:    r.RuleName,
			RuleID:      r.RuleID,
			Games:       b.Games,
			Capped:      b.Capped,
			TotalScore:  b.TotalScore,
			MaxScore:    b.MaxScore,
			TotalLines:  b.TotalLines,
			TotalPieces: b.TotalPieces,
			DropPoints:  b.DropPoints,
			Scores:      append([]float64(nil), r.Dist.Scores...),
		},
		Clears: &stats.ClearReport{
			Counts: append([]int(nil), b.Clears[:]...),
			Levels: levels,
		},
		Dist: &stats.DistReport{
			ScoreBucket:  stats.ScoreBucketStr(),
			ScoreCollect: append([]int(nil), r.Dist.ScoreCollect...),
		},
		Fairness: &stats.FairnessReport{
			Kinds:  names,
			Counts: counts,
		},
	}
	report.Done()
	return report
}
