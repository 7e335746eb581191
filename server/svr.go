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

// Package server 是 Blocklab HTTP 服務的組裝器（assembler）與啟動入口。
//
// 它不綁定任何檔案路徑或環境變數；所有依賴都透過 svrcfg.SvrCfg 明確注入。
// 需要把 /v1 掛到既有服務時，直接持有 Blocklab + Runtime 並呼叫 api.RegisterRoutes 即可。
package server

import (
	"fmt"
	"os"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/server/api"
	"github.com/zintix-labs/blocklab/server/app"
	"github.com/zintix-labs/blocklab/server/netsvr"
	"github.com/zintix-labs/blocklab/server/svrcfg"
)

// Build 驗證設定、建立 Runtime 與預設 chi server 並註冊路由，但不啟動。
// 回傳的 Runtime 由呼叫端負責 Close（Run 會自動處理）。
func Build(sCfg *svrcfg.SvrCfg) (*netsvr.ChiAdapter, *blocklab.Runtime, error) {
	if err := sCfg.Valid(); err != nil {
		return nil, nil, err
	}
	rt, err := sCfg.Blocklab.BuildRuntime(sCfg.Capacity)
	if err != nil {
		return nil, nil, err
	}
	svr := netsvr.NewChiServer(sCfg.Addr)
	api.RegisterRoutes(svr, sCfg, rt)
	return svr, rt, nil
}

// Run 以預設 chi server 啟動服務，阻塞直到收到 SIGINT/SIGTERM 或 server 出錯。
func Run(sCfg *svrcfg.SvrCfg) error {
	svr, rt, err := Build(sCfg)
	if err != nil {
		// 設定不可用時 logger 也可能不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return serve(sCfg, svr, rt, svr.Address())
}

// RunWithSvr 與 Run 相同，但使用呼叫端注入的 NetSvr（自訂 listener、TLS、timeout 等）。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		return errs.NewFatal("svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return errs.NewFatal("default server is not ready")
	}
	rt, err := sCfg.Blocklab.BuildRuntime(sCfg.Capacity)
	if err != nil {
		return err
	}
	api.RegisterRoutes(svr, sCfg, rt)
	return serve(sCfg, svr, rt, "")
}

func serve(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, rt *blocklab.Runtime, addr string) error {
	// 註冊順序 = 啟動順序；關閉時反序：先停 HTTP，再關 Runtime
	a := app.NewWith(sCfg.Log, app.NewCloser(rt.Close), svr)
	sCfg.Log.Info("[blocklab] listening", "addr", addr, "capacity", rt.Capacity())
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", "err", err)
		return err
	}
	return nil
}
