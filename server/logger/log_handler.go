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

// Package logger 組裝 Blocklab 伺服器使用的 *slog.Logger。
//
// 引擎本身（sdk/*、Session、Runtime）只吃 *slog.Logger，不關心輸出到哪裡；
// 輸出格式、等級、是否非阻塞，都在這裡依 LogMode 決定。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/blocklab/errs"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev     LogMode = iota // text / stderr / debug
	ModeProd                   // json / stdout / info
	ModeSilence                // 全部丟棄
)

var modeNames = map[LogMode]string{
	ModeDev:     "dev",
	ModeProd:    "prod",
	ModeSilence: "silence",
}

func (m LogMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseLogMode 解析命令列/設定中的模式字串（dev / prod / silence）。
func ParseLogMode(s string) (LogMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeDev, errs.Warnf("unknown log mode %q (want dev, prod or silence)", s)
}

// New 依 LogMode 建立同步 logger。
func New(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode, nil))
}

// NewAsync 依 LogMode 建立非阻塞 logger；回傳的 handler 需在關機時 Close 以寫完緩衝。
func NewAsync(mode LogMode, buf int) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode, nil), buf)
	return slog.New(ah), ah
}

// NewTo 把 logger 輸出導到 w（測試或自訂輸出用），格式依 mode。
func NewTo(mode LogMode, w io.Writer) *slog.Logger {
	return slog.New(buildHandler(mode, w))
}

// AsyncHandler 把任何 slog.Handler 變成非阻塞：
// Handle 只把 record 放進 channel，由背景 goroutine 寫出；channel 滿時丟棄並計數。
//
// slog.Logger 會忽略 Handle 回傳的 error，I/O 錯誤需由 next 自行處理。
type AsyncHandler struct {
	next slog.Handler
	d    *asyncDispatcher
}

type asyncDispatcher struct {
	ch      chan asyncItem
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

type asyncItem struct {
	ctx     context.Context
	rec     slog.Record
	handler slog.Handler
}

// NewAsyncHandler wraps next with an async dispatcher. buf <= 0 時使用 1024。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev, nil)
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &asyncDispatcher{
		ch:     make(chan asyncItem, buf),
		closed: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.worker()
	return &AsyncHandler{next: next, d: d}
}

// Dropped returns number of dropped log records due to a full buffer or a closed handler.
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil || h.d == nil {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止接收並寫完緩衝中的紀錄。可重複呼叫。
func (h *AsyncHandler) Close() {
	if h == nil || h.d == nil {
		return
	}
	h.d.once.Do(func() { close(h.d.closed) })
	h.d.wg.Wait()
}

func (d *asyncDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case it := <-d.ch:
			_ = it.handler.Handle(it.ctx, it.rec)
		case <-d.closed:
			for {
				select {
				case it := <-d.ch:
					_ = it.handler.Handle(it.ctx, it.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h == nil || h.d == nil {
		return nil
	}
	select {
	case <-h.d.closed:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// Record 內有可變引用，跨 goroutine 前先 Clone
	select {
	case h.d.ch <- asyncItem{ctx: ctx, rec: r.Clone(), handler: h.next}:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}

func buildHandler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		// 正式環境：JSON，給 Loki / Promtail
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.DiscardHandler
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
