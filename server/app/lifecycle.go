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

package app

import "context"

// Component 抽象任何「可啟動 / 可關閉」的長生命週期元件。
//   - Run() 是阻塞呼叫，直到元件停止為止（正常或錯誤）。
//   - Shutdown(ctx) 要求優雅關閉；實作方應該尊重 ctx deadline/cancel。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Closer 把「只需要在關機時關掉」的資源（例如 Runtime）包成 Component：
// Run 阻塞到 Shutdown 被呼叫為止。
type Closer struct {
	close func()
	done  chan struct{}
}

func NewCloser(close func()) *Closer {
	return &Closer{close: close, done: make(chan struct{})}
}

func (c *Closer) Run() error {
	<-c.done
	return nil
}

func (c *Closer) Shutdown(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}
	c.close()
	close(c.done)
	return ctx.Err()
}
