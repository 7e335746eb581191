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

// Package app 提供應用程式生命週期管理（App），負責統一啟動與關閉多個 Component。
package app

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// DefaultShutdownTimeout 為優雅關閉的預設期限。
const DefaultShutdownTimeout = 5 * time.Second

// App 啟動所有註冊的 Component，並在收到 OS 信號或任一 Component 結束時，協調優雅關閉。
// 關閉順序與註冊順序相反：先停對外服務（HTTP），再停它依賴的 Runtime。
type App struct {
	comps   []Component
	log     *slog.Logger
	timeout time.Duration
}

// New 建立 App；log 為 nil 時不輸出。
func New(log *slog.Logger) *App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &App{log: log, timeout: DefaultShutdownTimeout}
}

// NewWith 是 New 的語法糖，允許在建立時直接註冊多個 Component。
func NewWith(log *slog.Logger, comps ...Component) *App {
	a := New(log)
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// SetShutdownTimeout 調整優雅關閉期限（<= 0 時忽略）。
func (a *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		a.timeout = d
	}
}

// Run 阻塞直到收到 SIGINT/SIGTERM 或任一 Component 的 Run 返回。
//   - 收到信號：優雅關閉並回傳 nil。
//   - Component 返回：優雅關閉並回傳該 Component 的錯誤。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 與 Run 相同，但以 ctx 取消取代 OS 信號。
func (a *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	var err error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown requested")
	case err = <-errCh:
		if err != nil {
			a.log.Error("component stopped", "err", err)
		}
	}
	a.gracefulShutdown(a.timeout)
	return err
}

// gracefulShutdown 在期限內依註冊的反序呼叫 Shutdown；錯誤只記錄不中斷。
func (a *App) gracefulShutdown(td time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), td)
	defer cancel()
	for i := len(a.comps) - 1; i >= 0; i-- {
		if err := a.comps[i].Shutdown(ctx); err != nil {
			a.log.Warn("shutdown err", "err", err)
		}
	}
	a.log.Info("shutdown complete")
}
