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

package blocklab

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/recorder"
	"github.com/zintix-labs/blocklab/sdk/bot"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/spec"
	"github.com/zintix-labs/blocklab/stats"
)

// DefaultMaxPieces 為單局模擬的預設方塊上限；bot 玩得好時一局可能不會自然結束。
const DefaultMaxPieces int = 1000

// Simulator 讓 bot 連續玩完多局並統計結果。
//
// 同一個 seed、同一個 workers 數，模擬結果完全相同：
// worker 0 使用出生 seed，其餘 worker 由 seedMaker 依序派生。
type Simulator struct {
	RuleName string   // 規則名稱
	RuleID   spec.RID // 規則 id
	rs       *spec.RuleSetting
	cf       core.PRNGFactory
	weights  bot.Weights
	initSeed int64
}

func newSimulatorWithSeed(rs *spec.RuleSetting, cf core.PRNGFactory, seed int64) (*Simulator, error) {
	w, err := bot.WeightsFor(rs)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		RuleName: rs.RuleName,
		RuleID:   rs.RuleID,
		rs:       rs,
		cf:       cf,
		weights:  w,
		initSeed: seed,
	}, nil
}

func (s *Simulator) Seed() int64 { return s.initSeed }

// Sim 單線模擬：一個 worker 連續玩 games 局，回傳統計結果與用時。
func (s *Simulator) Sim(games int, maxPieces int, showpb bool) (*stats.StatReport, time.Duration, error) {
	return s.SimMP(games, 1, maxPieces, showpb)
}

// SimMP 平行執行 workers 個 worker，共玩 games 局，合併統計後回傳結果與用時。
// maxPieces 為 0 時使用 DefaultMaxPieces。
func (s *Simulator) SimMP(games int, workers int, maxPieces int, showpb bool) (*stats.StatReport, time.Duration, error) {
	if games < 1 {
		return nil, 0, errs.NewWarn("games must > 0")
	}
	if workers < 1 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if maxPieces < 0 {
		return nil, 0, errs.NewWarn("max pieces must >= 0")
	}
	if maxPieces == 0 {
		maxPieces = DefaultMaxPieces
	}
	workers = min(workers, games)

	// 先依序派生 seed，確保結果與 goroutine 排程無關
	seeds := make([]int64, workers)
	sm := newSeedMaker(s.initSeed)
	seeds[0] = s.initSeed
	for i := 1; i < workers; i++ {
		seeds[i] = sm.next()
	}
	rBuf := make([]*recorder.GameRecorder, workers)
	for i := range rBuf {
		r, err := recorder.NewGameRecorder(s.rs)
		if err != nil {
			return nil, 0, err
		}
		rBuf[i] = r
	}

	wg := new(sync.WaitGroup)
	wg.Add(workers)
	bar := pb.StartNew(games)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < workers; i++ {
		n := games / workers
		if i < games%workers {
			n++
		}
		go func(i, n int) {
			defer wg.Done()
			g := game.New(s.rs, core.New(s.cf.New(seeds[i])))
			bt := bot.New(s.weights)
			for range n {
				rBuf[i].Record(g, playOut(g, bt, maxPieces))
				g.Reset()
				bar.Increment()
			}
		}(i, n)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	rec, err := recorder.MergeGameRecorder(rBuf)
	if err != nil {
		return nil, 0, err
	}
	return rec.Done(), used, nil
}

// playOut 讓 bot 玩到結束或達到方塊上限；回傳是否被截斷。
func playOut(g *game.Game, bt *bot.Bot, maxPieces int) bool {
	for !g.Over() {
		if g.Stats().Pieces >= maxPieces {
			return true
		}
		if !bt.Play(g) && !g.HardDrop() {
			return false
		}
	}
	return false
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 Runtime.Create）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
