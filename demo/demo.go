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

// Package demo 把內建的 classic / sprint 規則組成可直接啟動的 Blocklab 與伺服器設定。
package demo

import (
	"log/slog"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/catalog"
	"github.com/zintix-labs/blocklab/demo/demo_configs"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/server/svrcfg"
)

// Catalog 只載入內建規則（不初始化）。
func Catalog() (*catalog.Catalog, error) {
	return catalog.New(demo_configs.FS)
}

// NewBlocklab 以內建規則與預設 PCG64 建立並凍結 Blocklab。
func NewBlocklab(opts ...blocklab.Option) (*blocklab.Blocklab, error) {
	return NewBlocklabWith(core.Default(), opts...)
}

// NewBlocklabWith 同 NewBlocklab，但使用指定的亂數核心工廠。
func NewBlocklabWith(cf core.PRNGFactory, opts ...blocklab.Option) (*blocklab.Blocklab, error) {
	return blocklab.NewAuto(cf, blocklab.Configs(demo_configs.FS), opts...)
}

// NewServerConfig 回傳以內建規則組好的伺服器設定；其他欄位由 Valid 補預設值。
func NewServerConfig(log *slog.Logger) (*svrcfg.SvrCfg, error) {
	lab, err := NewBlocklab(blocklab.WithLogger(log))
	if err != nil {
		return nil, errs.Wrap(err, "new blocklab failed")
	}
	return &svrcfg.SvrCfg{Log: log, Blocklab: lab}, nil
}
