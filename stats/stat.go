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

package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/blocklab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

var lang language.Tag = language.English

type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// ============================================================
// ** 報表結構 **
// ============================================================

type StatReport struct {
	Summary  *SummaryReport  `json:"Summary"`
	Clears   *ClearReport    `json:"Clears"`
	Dist     *DistReport     `json:"Dist"`
	Fairness *FairnessReport `json:"Fairness"`
	isDone   bool
}

type SummaryReport struct {
	RuleName    string    `json:"RuleName"`
	RuleID      spec.RID  `json:"RuleID"`
	Games       int       `json:"Games"`
	Capped      int       `json:"Capped"` // 因為 maxPieces 而被截斷的局數
	TotalScore  int       `json:"TotalScore"`
	MaxScore    int       `json:"MaxScore"`
	MeanScore   float64   `json:"MeanScore"`
	ScoreStd    float64   `json:"ScoreStd"`
	ScoreCI     CI        `json:"ScoreCI"`
	MedianScore PointStat `json:"MedianScore"`
	TotalLines  int       `json:"TotalLines"`
	MeanLines   float64   `json:"MeanLines"`
	MeanLevel   float64   `json:"MeanLevel"`
	TotalPieces int       `json:"TotalPieces"`
	MeanPieces  float64   `json:"MeanPieces"`
	DropPoints  int       `json:"DropPoints"`
	Scores      []float64 `json:"-" yaml:"-"`
}

type ClearReport struct {
	Counts    []int     `json:"Counts"` // 索引 1..4 為一次消除的列數，0 為沒有消行的固定次數
	Share     []float64 `json:"Share"`  // 各消行大小佔全部消行事件的比例（索引 0 恆為 0）
	FourLines PointStat `json:"FourLines"`
	Levels    []int     `json:"Levels"` // Levels[i] = 結束時等級為 i+1 的局數
}

type DistReport struct {
	ScoreBucket  []string  `json:"ScoreBucket"`
	ScoreCollect []int     `json:"ScoreCollect"`
	ScoreDist    []float64 `json:"ScoreDist"`
}

// FairnessReport 為袋子抽出方塊數量的卡方適合度檢定（期望為均勻）。
type FairnessReport struct {
	Kinds    []string `json:"Kinds"`
	Counts   []uint64 `json:"Counts"`
	Expected float64  `json:"Expected"`
	ChiSq    float64  `json:"ChiSq"`
	DF       int      `json:"DF"`
	PValue   float64  `json:"PValue"`
}

// ============================================================
// ** 計算 **
// ============================================================

// Done 計算衍生欄位（平均、標準差、CI、比例），重複呼叫無副作用。
func (s *StatReport) Done() {
	if s.isDone {
		return
	}
	sm := s.Summary
	g := float64(sm.Games)
	if sm.Games > 0 {
		sm.MeanLines = float64(sm.TotalLines) / g
		sm.MeanPieces = float64(sm.TotalPieces) / g
	}
	if c := s.Clears; c != nil && sm.Games > 0 {
		lv := 0
		for i, n := range c.Levels {
			lv += (i + 1) * n
		}
		sm.MeanLevel = float64(lv) / g
	}
	sm.MeanScore, sm.ScoreStd = s.meanStd()
	sm.ScoreCI = s.Ci()
	if len(sm.Scores) > 0 {
		lo, hi := quantileCI(sm.Scores, 0.5, 0.95)
		sm.MedianScore = PointStat{Hat: quantilePoint(sm.Scores, 0.5), CI: CI{Lo: lo, Hi: hi}}
	}

	if c := s.Clears; c != nil {
		events := 0
		for i := 1; i < len(c.Counts); i++ {
			events += c.Counts[i]
		}
		c.Share = make([]float64, len(c.Counts))
		if events > 0 {
			for i := 1; i < len(c.Counts); i++ {
				c.Share[i] = float64(c.Counts[i]) / float64(events)
			}
		}
		if len(c.Counts) > 4 {
			hat, ci := proportionCICP(c.Counts[4], events, 0.95)
			c.FourLines = PointStat{Hat: hat, CI: ci}
		}
	}

	if d := s.Dist; d != nil && sm.Games > 0 {
		d.ScoreDist = make([]float64, len(d.ScoreCollect))
		for i, v := range d.ScoreCollect {
			d.ScoreDist[i] = float64(v) / g
		}
	}

	if f := s.Fairness; f != nil {
		f.Expected, f.ChiSq, f.DF, f.PValue = chiSquareUniform(f.Counts)
	}
	s.isDone = true
}

// meanStd 回傳分數的平均與樣本標準差；有原始分數時用 gonum，否則用總和推算平均。
func (s *StatReport) meanStd() (float64, float64) {
	sm := s.Summary
	if len(sm.Scores) == 0 {
		if sm.Games == 0 {
			return 0, 0
		}
		return float64(sm.TotalScore) / float64(sm.Games), 0
	}
	if len(sm.Scores) < 2 {
		return sm.Scores[0], 0
	}
	mean, std := stat.MeanStdDev(sm.Scores, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return mean, std
}

// Ci 回傳平均分數的 95% 常態近似信賴區間。
func (s *StatReport) Ci() CI {
	mean, std := s.meanStd()
	se := float64(0)
	if s.Summary.Games > 1 {
		se = std / math.Sqrt(float64(s.Summary.Games))
	}
	return CI{
		Lo: max(mean-1.96*se, 0.0),
		Hi: mean + 1.96*se,
	}
}

func (s *StatReport) WriteWith(w io.Writer, rep StatReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

// StdOut 把摘要表輸出到 stdout，ut 為模擬耗時。
func (s *StatReport) StdOut(ut time.Duration) {
	s.Done()
	formatDuration(ut, s.Summary.Games, s.Summary.TotalPieces)
	sk, sm := s.fmtBasic()
	fmt.Println(fmtTable(s.Summary.RuleName, sk, sm))
}

// ============================================================
// ** 格式化 **
// ============================================================

func formatDuration(d time.Duration, games int, pieces int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	gps := int(float64(games) / sec)
	pps := int(float64(pieces) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ngps : %d games/sec\npps : %d pieces/sec\n", sec, gps, pps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		p.Printf("used: %dm %ds\ngps : %d games/sec\npps : %d pieces/sec\n", m, s, gps, pps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ngps : %d games/sec\npps : %d pieces/sec\n", h, m, s, gps, pps)
}

func (s *StatReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	sm := s.Summary
	basic := map[string]string{
		"Rule Name":    sm.RuleName,
		"Rule ID":      fmt.Sprintf("%d", sm.RuleID),
		"Games":        p.Sprintf("%d", sm.Games),
		"Capped Games": p.Sprintf("%d", sm.Capped),
		"Mean Score":   p.Sprintf("%.1f", sm.MeanScore),
		"Score 95% CI": p.Sprintf("[%.1f,%.1f]", sm.ScoreCI.Lo, sm.ScoreCI.Hi),
		"Median Score": p.Sprintf("%.0f [%.0f,%.0f]", sm.MedianScore.Hat, sm.MedianScore.CI.Lo, sm.MedianScore.CI.Hi),
		"Max Score":    p.Sprintf("%d", sm.MaxScore),
		"Score STD":    p.Sprintf("%.1f", sm.ScoreStd),
		"Mean Lines":   p.Sprintf("%.2f", sm.MeanLines),
		"Mean Pieces":  p.Sprintf("%.1f", sm.MeanPieces),
		"Drop Points":  p.Sprintf("%d", sm.DropPoints),
		"4-Line Rate":  "-",
		"Bag Chi² (p)": "-",
	}
	if c := s.Clears; c != nil {
		basic["4-Line Rate"] = fmtHatCIpct01(c.FourLines.Hat, c.FourLines.CI)
	}
	if f := s.Fairness; f != nil {
		basic["Bag Chi² (p)"] = p.Sprintf("%.3f (%.3f)", f.ChiSq, f.PValue)
	}
	keys := []string{"Rule Name", "Rule ID", "Games", "Capped Games", "Mean Score", "Score 95% CI", "Median Score", "Max Score", "Score STD", "Mean Lines", "Mean Pieces", "Drop Points", "4-Line Rate", "Bag Chi² (p)"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := runewidth.StringWidth(title)
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}
