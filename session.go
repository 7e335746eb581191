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
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/blocklab/dto"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/spec"
)

// Session 封裝一局「可對外提供操作」的遊戲。
//
// 你可以把 Session 視為 game.Game 的外殼（shell）：
//   - 對外：Do 執行玩家命令、Snapshot 取畫面、Checkpoint 存檔、Run 驅動自動下落。
//   - 對內：持有 RNG（Core）與真正的遊戲狀態機（sdk/game.Game）。
//
// 並發語意：所有命令（含自動下落的 Tick）都在同一把鎖下序列化執行，
// 命令彼此不會穿插；Snapshot 與訂閱推送也都在鎖內產生，因此推送順序與狀態變化順序一致。
type Session struct {
	rules    *spec.RuleSetting
	core     *core.Core
	g        *game.Game
	mu       sync.Mutex
	initseed int64 // 出生 seed；任意時間點的完整重現以 Checkpoint 為準
	log      *slog.Logger

	wake    chan struct{} // 通知 Run 重新檢查計時器（容量 1）
	running atomic.Bool

	subs     map[int]chan dto.Snapshot
	nextSub  int
	detached bool
}

// SessionOption 調整 Session 的可選設定。
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	clock func() time.Time
}

// WithSessionClock 注入時間來源（消行顯示窗口）；測試用。
func WithSessionClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) { o.clock = now }
}

func newSession(rs *spec.RuleSetting, cf core.PRNGFactory, seed int64, log *slog.Logger, opts ...SessionOption) *Session {
	o := sessionOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := core.New(cf.New(seed))
	return &Session{
		rules:    rs,
		core:     c,
		g:        game.New(rs, c, game.WithClock(o.clock)),
		initseed: seed,
		log:      log.With("rule", rs.RuleName, "seed", seed),
		wake:     make(chan struct{}, 1),
		subs:     map[int]chan dto.Snapshot{},
	}
}

func (s *Session) Rules() *spec.RuleSetting { return s.rules }
func (s *Session) Seed() int64              { return s.initseed }

// Do 執行一個玩家命令並回傳執行後的畫面。未知命令回傳 Warn；合法但無效果的命令（撞牆、暫停中）不是錯誤。
func (s *Session) Do(cmd dto.Command) (dto.Snapshot, error) {
	cmd, err := dto.ParseCommand(string(cmd))
	if err != nil {
		return dto.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	wasOver := s.g.Over()
	changed := cmd.Apply(s.g)
	snap := s.snapshotLocked(true)
	if changed {
		s.afterChangeLocked(wasOver)
	}
	return snap, nil
}

// Tick 自動下落一格（通常由 Run 呼叫）。暫停或結束時不動。
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasOver := s.g.Over()
	if !s.g.Tick() {
		return false
	}
	s.afterChangeLocked(wasOver)
	return true
}

// Snapshot 回傳目前畫面（含色表）。
func (s *Session) Snapshot() dto.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(true)
}

// Stats 回傳本局統計。
func (s *Session) Stats() game.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Stats()
}

// Checkpoint 匯出目前局面 + 亂數核心快照，可交給 RestoreCheckpoint 或 Runtime 續玩。
func (s *Session) Checkpoint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.core.Snapshot()
	if err != nil {
		return "", errs.Wrap(err, "snapshot core failed")
	}
	return dto.EncodeCheckpoint(&dto.Checkpoint{
		RuleID: s.rules.RuleID,
		Rule:   s.rules.RuleName,
		Seed:   s.initseed,
		Core:   snap,
		State:  s.g.Export(),
	})
}

// RestoreCheckpoint 以 checkpoint 覆蓋目前局面。失敗時（Warn）局面與亂數核心都維持原狀。
func (s *Session) RestoreCheckpoint(raw string) error {
	cp, err := dto.DecodeCheckpoint(raw)
	if err != nil {
		return err
	}
	return s.restore(cp)
}

func (s *Session) restore(cp *dto.Checkpoint) error {
	if cp.RuleID != s.rules.RuleID {
		return errs.Warnf("checkpoint rule %d does not match session rule %d", cp.RuleID, s.rules.RuleID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	back, err := s.core.Snapshot()
	if err != nil {
		return errs.Wrap(err, "snapshot core failed")
	}
	if err := s.core.Restore(cp.Core); err != nil {
		return errs.WrapAs(errs.Warn, err, "restore core failed")
	}
	if err := s.g.Restore(cp.State); err != nil {
		if e := s.core.Restore(back); e != nil {
			return errs.Wrap(e, "fall back core failed")
		}
		return err
	}
	s.initseed = cp.Seed
	s.afterChangeLocked(false)
	return nil
}

// Subscribe 回傳一個畫面推送通道：每次狀態改變（命令、自動下落、消行窗口結束）都會推送。
// 通道容量為 1，訂閱者跟不上時丟棄較舊的畫面，只保留最新的；cancel 或 Session 被移除後通道會被關閉。
func (s *Session) Subscribe() (<-chan dto.Snapshot, func()) {
	ch := make(chan dto.Snapshot, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	ch <- s.snapshotLocked(true)
	if s.detached {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

// detach 關閉所有訂閱（Session 被 Runtime 移除時）；之後的 Subscribe 只拿得到最後一張畫面。
func (s *Session) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// Run 是單一的自動下落驅動器（single-flight）：整個 Session 只有一個計時器。
//
//   - 暫停狀態或下落間隔改變時，計時器停止並重新設定；暫停或結束時不計時。
//   - 消行顯示窗口結束時推送一次畫面，讓畫面端換成壓縮後的盤面。
//
// 同一個 Session 同時只能有一個 Run；ctx 結束時回傳 ctx.Err()。
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errs.NewWarn("session driver already running")
	}
	defer s.running.Store(false)

	gravity := time.NewTimer(time.Hour)
	gravity.Stop()
	refresh := time.NewTimer(time.Hour)
	refresh.Stop()
	defer gravity.Stop()
	defer refresh.Stop()

	var (
		armed     bool
		armedFor  time.Duration
		refreshAt time.Time
	)
	for {
		ticking, interval, until, clearing := s.timing()
		if ticking != armed || interval != armedFor {
			gravity.Stop()
			if ticking {
				gravity.Reset(interval)
			}
			armed, armedFor = ticking, interval
		}
		if clearing && !until.Equal(refreshAt) {
			refresh.Stop()
			refresh.Reset(time.Until(until))
			refreshAt = until
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-gravity.C:
			s.Tick()
			armed = false // 下一輪依最新間隔重新計時
		case <-refresh.C:
			refreshAt = time.Time{}
			s.mu.Lock()
			s.publishLocked(s.snapshotLocked(false))
			s.mu.Unlock()
		}
	}
}

// Running 回報 Run 是否正在執行。
func (s *Session) Running() bool {
	return s.running.Load()
}

func (s *Session) timing() (ticking bool, interval time.Duration, until time.Time, clearing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, clearing = s.g.ClearDeadline()
	return s.g.Ticking(), s.g.GravityInterval(), until, clearing
}

func (s *Session) snapshotLocked(withColors bool) dto.Snapshot {
	return dto.NewSnapshot(s.rules, s.g.Snapshot(), withColors)
}

// afterChangeLocked 在狀態改變後：喚醒驅動器、推送畫面、記錄結束事件。
func (s *Session) afterChangeLocked(wasOver bool) {
	select {
	case s.wake <- struct{}{}:
	default:
	}
	if len(s.subs) > 0 {
		s.publishLocked(s.snapshotLocked(false))
	}
	if !wasOver && s.g.Over() {
		st := s.g.Stats()
		s.log.Info("game over", "score", s.g.Score(), "lines", s.g.Lines(), "level", s.g.Level(), "pieces", st.Pieces)
	}
}

// publishLocked 非阻塞推送；通道滿時丟掉舊的再放新的。
func (s *Session) publishLocked(snap dto.Snapshot) {
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
