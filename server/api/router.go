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

package api

import (
	"log/slog"

	"github.com/zintix-labs/blocklab"
	v1 "github.com/zintix-labs/blocklab/server/api/v1"
	"github.com/zintix-labs/blocklab/server/netsvr"
	"github.com/zintix-labs/blocklab/server/netsvr/middleware"
	"github.com/zintix-labs/blocklab/server/svrcfg"
)

// RegisterRoutes 掛上 middleware 與 /v1 路由。sCfg 必須已通過 Valid。
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg, rt *blocklab.Runtime) {
	registerMiddleware(svr, sCfg.Log)
	registerV1API(svr, sCfg, rt)
}

// 順序：request id → access log → recover → 壓縮
func registerMiddleware(svr netsvr.NetSvr, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Compression)
}

func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg, rt *blocklab.Runtime) {
	rules := v1.NewRulesHandler(sCfg.Blocklab)
	sess := v1.NewSessionHandler(sCfg.Blocklab, rt, sCfg.Log)
	sim := v1.NewSimHandler(sCfg.Blocklab, v1.SimLimits{
		MaxGames:   sCfg.MaxSimGames,
		MaxPieces:  sCfg.MaxSimPieces,
		MaxWorkers: sCfg.MaxWorkers,
	})
	met := v1.NewMetricsHandler(rt)

	svr.Group("/v1", func(r netsvr.NetRouter) {
		r.Get("/rules", rules.List)

		r.Post("/sessions", sess.Create)
		r.Get("/sessions/{id}", sess.Get)
		r.Delete("/sessions/{id}", sess.Delete)
		r.Post("/sessions/{id}/commands", sess.Command)
		r.Get("/sessions/{id}/checkpoint", sess.Checkpoint)
		r.Put("/sessions/{id}/checkpoint", sess.Restore)
		r.Get("/sessions/{id}/ws", sess.Stream)

		r.Get("/sim", sim.Sim)
		r.Post("/sim", sim.Sim)

		r.Get("/metrics", met.Metrics)
	})
}
