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

package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/errs"
)

const (
	DefaultCapacity     = 256
	DefaultMaxSimGames  = 2000
	DefaultMaxSimPieces = 5000
	DefaultMaxWorkers   = 8
)

// SvrCfg 為伺服器組裝所需的全部依賴；所有欄位都明確注入，server 不讀檔案或環境變數。
type SvrCfg struct {
	Log      *slog.Logger
	Blocklab *blocklab.Blocklab
	Addr     string // 空字串時使用 netsvr.DefaultAddr

	Capacity     int // Runtime 同時承載的 Session 上限
	MaxSimGames  int // /v1/sim 單次最多局數
	MaxSimPieces int // /v1/sim 單局方塊上限
	MaxWorkers   int // /v1/sim 最多 worker 數
}

// Valid 補齊預設值並檢查必要依賴。Blocklab 為必填。
func (sc *SvrCfg) Valid() error {
	if sc == nil {
		return errs.NewFatal("server config is required")
	}
	if sc.Blocklab == nil {
		return errs.NewFatal("blocklab is required")
	}
	if sc.Log == nil {
		sc.Log = slog.New(slog.DiscardHandler)
	}
	if sc.Capacity <= 0 {
		sc.Capacity = DefaultCapacity
	}
	if sc.MaxSimGames <= 0 {
		sc.MaxSimGames = DefaultMaxSimGames
	}
	if sc.MaxSimPieces <= 0 {
		sc.MaxSimPieces = DefaultMaxSimPieces
	}
	if sc.MaxWorkers <= 0 {
		sc.MaxWorkers = DefaultMaxWorkers
	}
	sc.MaxWorkers = min(sc.MaxWorkers, 64)
	return nil
}
