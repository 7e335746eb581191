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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/blocklab/demo"
	"github.com/zintix-labs/blocklab/server"
	"github.com/zintix-labs/blocklab/server/logger"
	"github.com/zintix-labs/blocklab/server/svrcfg"
)

// Lab server：內建 classic / sprint 規則，開在 :5808。
// 正式部署請在自己的專案組 SvrCfg（自訂規則目錄、logger）後呼叫 server.Run。
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	Addr      string
	LogMode   string
	Capacity  int
	MaxGames  int
	MaxPieces int
	Workers   int
}

func run() error {
	cfg := new(config)
	flag.StringVar(&cfg.Addr, "addr", "", "listen address (default :5808)")
	flag.StringVar(&cfg.LogMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.IntVar(&cfg.Capacity, "capacity", svrcfg.DefaultCapacity, "max concurrent sessions")
	flag.IntVar(&cfg.MaxGames, "sim-games", svrcfg.DefaultMaxSimGames, "max games per /v1/sim request")
	flag.IntVar(&cfg.MaxPieces, "sim-pieces", svrcfg.DefaultMaxSimPieces, "max pieces per simulated game")
	flag.IntVar(&cfg.Workers, "sim-workers", svrcfg.DefaultMaxWorkers, "max workers per /v1/sim request")
	flag.Parse()

	mode, err := logger.ParseLogMode(cfg.LogMode)
	if err != nil {
		return err
	}
	log, ah := logger.NewAsync(mode, 4096)
	defer ah.Close()

	sCfg, err := demo.NewServerConfig(log)
	if err != nil {
		return err
	}
	sCfg.Addr = cfg.Addr
	sCfg.Capacity = cfg.Capacity
	sCfg.MaxSimGames = cfg.MaxGames
	sCfg.MaxSimPieces = cfg.MaxPieces
	sCfg.MaxWorkers = cfg.Workers
	return server.Run(sCfg)
}
