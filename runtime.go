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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/blocklab/dto"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/spec"
)

var (
	ErrSessionNotFound = errs.NewWarn("session not found")
	ErrRuntimeFull     = errs.NewWarn("runtime full")
)

// Runtime 承載多個 Session（以 uuid 為鍵），並替每個 Session 跑一個自動下落驅動器。
//
// 任何一個 Session 在執行命令或驅動器內 panic，都視為該局狀態不可信：
// 直接驅逐（evict）並回傳 Fatal；其他 Session 不受影響。
type Runtime struct {
	lab      *Blocklab
	log      *slog.Logger
	capacity int
	seeds    *seedMaker // 未指定 seed 時用來派生

	mu       sync.RWMutex
	sessions map[uuid.UUID]*hosted

	// driver 共用的生命週期；Close 時一次取消
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	created  atomic.Uint64
	removed  atomic.Uint64
	evicted  atomic.Uint64
	commands atomic.Uint64
	panics   atomic.Uint64
	fatals   atomic.Uint64
}

type hosted struct {
	s       *Session
	stop    context.CancelFunc
	created time.Time
}

// Metrics 為 Runtime 的觀測數據。
type Metrics struct {
	Capacity int    `json:"capacity"`
	Active   int    `json:"active"`
	Created  uint64 `json:"created"`
	Removed  uint64 `json:"removed"`
	Evicted  uint64 `json:"evicted"`
	Commands uint64 `json:"commands"`
	Panics   uint64 `json:"panics"`
	Fatals   uint64 `json:"fatals"`
	Closed   bool   `json:"closed"`
	Reason   string `json:"reason,omitempty"`
}

func newRuntime(lab *Blocklab, capacity int, seed int64) *Runtime {
	base, cancel := context.WithCancel(context.Background())
	return &Runtime{
		lab:      lab,
		log:      lab.log.With("component", "runtime"),
		capacity: capacity,
		seeds:    newSeedMaker(seed),
		sessions: make(map[uuid.UUID]*hosted, capacity),
		base:     base,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Create 建立新局並啟動它的驅動器。seed 為 nil 時由 runtime 派生。
// 容量已滿或規則不存在時回傳 Warn。
func (rt *Runtime) Create(ctx context.Context, rid spec.RID, seed *int64) (uuid.UUID, *Session, error) {
	if err := rt.alive(ctx); err != nil {
		return uuid.Nil, nil, err
	}
	var sd int64
	if seed != nil {
		sd = *seed
	} else {
		sd = rt.seeds.next()
	}
	rs, err := rt.lab.Rules(rid)
	if err != nil {
		return uuid.Nil, nil, err
	}
	s := newSession(rs, rt.lab.cf, sd, rt.lab.log)
	id, err := rt.host(s)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, s, nil
}

// CreateFromCheckpoint 以 checkpoint 建立新局（規則取自 checkpoint）。
func (rt *Runtime) CreateFromCheckpoint(ctx context.Context, raw string) (uuid.UUID, *Session, error) {
	if err := rt.alive(ctx); err != nil {
		return uuid.Nil, nil, err
	}
	cp, err := dto.DecodeCheckpoint(raw)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if _, ok := rt.lab.EntryByID(cp.RuleID); !ok {
		return uuid.Nil, nil, errs.Warnf("checkpoint rule %d not found", cp.RuleID)
	}
	rs, err := rt.lab.Rules(cp.RuleID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	s := newSession(rs, rt.lab.cf, cp.Seed, rt.lab.log)
	if err := s.restore(cp); err != nil {
		return uuid.Nil, nil, err
	}
	id, err := rt.host(s)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return id, s, nil
}

func (rt *Runtime) host(s *Session) (uuid.UUID, error) {
	id := uuid.New()
	s.log = s.log.With("session", id.String())
	ctx, stop := context.WithCancel(rt.base)

	rt.mu.Lock()
	if rt.closed.Load() {
		rt.mu.Unlock()
		stop()
		return uuid.Nil, errs.NewFatal("runtime closed: " + rt.ClosedReason())
	}
	if len(rt.sessions) >= rt.capacity {
		rt.mu.Unlock()
		stop()
		return uuid.Nil, errs.Wrap(ErrRuntimeFull, fmt.Sprintf("capacity %d", rt.capacity))
	}
	rt.sessions[id] = &hosted{s: s, stop: stop, created: time.Now()}
	rt.wg.Add(1)
	rt.mu.Unlock()

	rt.created.Add(1)
	rt.log.Info("session created", "session", id.String(), "rule", s.rules.RuleName, "seed", s.initseed)

	go rt.drive(ctx, id, s)
	return id, nil
}

// drive 跑 Session 的驅動器；panic 時驅逐該局。
func (rt *Runtime) drive(ctx context.Context, id uuid.UUID, s *Session) {
	defer rt.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			rt.panics.Add(1)
			rt.evict(id, fmt.Sprintf("driver panic: %v", r))
		}
	}()
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.log.Warn("session driver stopped", "session", id.String(), "err", err)
	}
}

// Get 取出 Session；不存在時 ok 為 false。
func (rt *Runtime) Get(id uuid.UUID) (*Session, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	h, ok := rt.sessions[id]
	if !ok {
		return nil, false
	}
	return h.s, true
}

// Do 對指定 Session 執行命令。
func (rt *Runtime) Do(ctx context.Context, id uuid.UUID, cmd dto.Command) (snap dto.Snapshot, err error) {
	if err := rt.alive(ctx); err != nil {
		return dto.Snapshot{}, err
	}
	s, ok := rt.Get(id)
	if !ok {
		return dto.Snapshot{}, ErrSessionNotFound
	}
	rt.commands.Add(1)
	defer func() {
		if r := recover(); r != nil {
			rt.panics.Add(1)
			rt.fatals.Add(1)
			rt.evict(id, fmt.Sprintf("command %q panic: %v", cmd, r))
			snap = dto.Snapshot{}
			err = errs.Fatalf("session %s broken and evicted", id)
		}
	}()
	snap, err = s.Do(cmd)
	if errs.IsFatal(err) {
		rt.fatals.Add(1)
		rt.evict(id, err.Error())
	}
	return snap, err
}

// Snapshot 取指定 Session 的畫面。
func (rt *Runtime) Snapshot(id uuid.UUID) (dto.Snapshot, error) {
	s, ok := rt.Get(id)
	if !ok {
		return dto.Snapshot{}, ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

// Checkpoint 匯出指定 Session 的存檔。
func (rt *Runtime) Checkpoint(id uuid.UUID) (string, error) {
	s, ok := rt.Get(id)
	if !ok {
		return "", ErrSessionNotFound
	}
	return s.Checkpoint()
}

// Remove 停止並移除 Session；不存在時回傳 false。
func (rt *Runtime) Remove(id uuid.UUID) bool {
	h := rt.take(id)
	if h == nil {
		return false
	}
	rt.removed.Add(1)
	rt.log.Info("session removed", "session", id.String(), "age", time.Since(h.created).Round(time.Millisecond))
	return true
}

func (rt *Runtime) evict(id uuid.UUID, why string) {
	if rt.take(id) == nil {
		return
	}
	rt.evicted.Add(1)
	rt.log.Error("session evicted", "session", id.String(), "reason", why)
}

func (rt *Runtime) take(id uuid.UUID) *hosted {
	rt.mu.Lock()
	h, ok := rt.sessions[id]
	if ok {
		delete(rt.sessions, id)
	}
	rt.mu.Unlock()
	if !ok {
		return nil
	}
	h.stop()
	h.s.detach()
	return h
}

func (rt *Runtime) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.sessions)
}

func (rt *Runtime) Capacity() int {
	return rt.capacity
}

func (rt *Runtime) Metrics() Metrics {
	return Metrics{
		Capacity: rt.capacity,
		Active:   rt.Len(),
		Created:  rt.created.Load(),
		Removed:  rt.removed.Load(),
		Evicted:  rt.evicted.Load(),
		Commands: rt.commands.Load(),
		Panics:   rt.panics.Load(),
		Fatals:   rt.fatals.Load(),
		Closed:   rt.Closed(),
		Reason:   rt.ClosedReason(),
	}
}

func (rt *Runtime) alive(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.NewWarn("request canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		return errs.NewFatal("runtime closed: " + rt.ClosedReason())
	default:
	}
	return nil
}

// Close 停止所有驅動器並清空 Session。可重複呼叫。
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.mu.Lock()
		rt.closed.Store(true)
		n := len(rt.sessions)
		for _, h := range rt.sessions {
			h.s.detach()
		}
		clear(rt.sessions)
		rt.mu.Unlock()
		close(rt.done)
		rt.cancel()
		rt.wg.Wait()
		rt.log.Info("runtime closed", "reason", reason, "sessions", n)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
