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
	"log"
	"os"
	"strconv"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/demo"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/spec"
	"github.com/zintix-labs/blocklab/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	rule      string
	id        spec.RID
	worker    int
	games     int
	maxPieces int
	seed      int64
	rng       string
	format    string
	pprofmode string
}

type ridFlag struct{ p *spec.RID }

func (f ridFlag) String() string {
	if f.p == nil {
		return "0"
	}
	return fmt.Sprint(uint32(*f.p))
}

func (f ridFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*f.p = spec.RID(u)
	return nil
}

func bindVar() {
	flag.Var(ridFlag{&cfg.id}, "rid", "target rule id")
	flag.StringVar(&cfg.rule, "rule", "", "target rule name (used when -rid is not set)")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.games, "games", 1000, "games to simulate")
	flag.IntVar(&cfg.maxPieces, "pieces", blocklab.DefaultMaxPieces, "max pieces per game")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed; < 0 picks a random one")
	flag.StringVar(&cfg.rng, "rng", "pcg64", "prng core: pcg64, pcg32")
	flag.StringVar(&cfg.format, "o", "table", "output: table, json, yaml")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()
}

// 解析規則後跑模擬並輸出報表
func executeSimulator() {
	cfg.valid()

	lab, err := demo.NewBlocklabWith(cfg.factory())
	if err != nil {
		log.Fatal(err)
	}
	rid := cfg.id
	if rid == 0 {
		if cfg.rule == "" {
			rid = lab.IDs()[0]
		} else if rid, err = lab.ResolveRID(0, cfg.rule); err != nil {
			log.Fatal(err)
		}
	}

	var s *blocklab.Simulator
	if cfg.seed < 0 {
		s, err = lab.NewSimulator(rid)
	} else {
		s, err = lab.NewSimulatorWithSeed(rid, cfg.seed)
	}
	if err != nil {
		log.Fatal(err)
	}

	// 只有表格輸出時顯示進度條，避免混進 json/yaml
	table := cfg.format == "table"
	if table {
		green := "\033[1;32m"
		reset := "\033[0m"
		p := message.NewPrinter(language.English)
		p.Printf("%s[WORKERS:%d] [RULE:%s] [RNG:%s] [GAMES:%d] [SEED:%d]%s\n", green, cfg.worker, s.RuleName, cfg.rng, cfg.games, s.Seed(), reset)
	}
	st, used, err := s.SimMP(cfg.games, cfg.worker, cfg.maxPieces, table)
	if err != nil {
		log.Fatal(err)
	}

	switch cfg.format {
	case "json":
		err = st.WriteWith(os.Stdout, &stats.JsonStatReportRender{Indent: true})
	case "yaml":
		err = st.WriteWith(os.Stdout, &stats.YAMLStatReportRender{})
	default:
		st.StdOut(used)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (cfg *config) valid() {
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}
	if cfg.games < 1 {
		log.Fatal("value err : games must > 0")
	}
	if cfg.maxPieces < 0 {
		log.Fatal("value err : pieces must >= 0")
	}
	switch cfg.format {
	case "table", "json", "yaml":
	default:
		log.Fatalf("value err : unknown output %q", cfg.format)
	}
	switch cfg.rng {
	case "pcg64", "pcg32":
	default:
		log.Fatalf("value err : unknown rng %q", cfg.rng)
	}
	// 太多 worker 沒有意義
	if cfg.worker > cfg.games {
		cfg.worker = cfg.games
	}
}

// factory 依 -rng 選擇亂數核心；同一個 seed 在不同核心下是不同的序列。
func (cfg *config) factory() core.PRNGFactory {
	if cfg.rng == "pcg32" {
		return &core.PCG32Factory{}
	}
	return core.Default()
}
