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

// Package perf 包裝 runtime/pprof，給模擬器 CLI 產生 profile（也可作為 PGO 的輸入）。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/blocklab/errs"
)

// DefaultDir 為 profile 輸出目錄。
const DefaultDir = "build/profiling"

// Mode 為 profile 種類。
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

// RunPProf 依 mode 執行 exe 並寫出 profile 到 DefaultDir；無法建立 profile 時直接結束程式。
//
// Usage like:
//
//	go run ./cmd/sim -p cpu
func RunPProf(exe func(), mode string) {
	if _, err := Profile(DefaultDir, Mode(mode), exe); err != nil {
		panic(err)
	}
}

// Profile 執行 exe 並依 mode 寫出 profile，回傳檔案路徑（ModeNone 或未知 mode 時只執行 exe，回傳空字串）。
func Profile(dir string, mode Mode, exe func()) (string, error) {
	switch mode {
	case ModeCPU, ModeHeap, ModeAllocs:
	default:
		exe()
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create profiling dir failed")
	}
	path := filepath.Join(dir, string(mode)+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(err, "create "+path+" failed")
	}
	defer f.Close()

	switch mode {
	case ModeCPU:
		if err := pprof.StartCPUProfile(f); err != nil {
			return "", errs.Wrap(err, "start cpu profile failed")
		}
		exe()
		pprof.StopCPUProfile()
	case ModeHeap:
		// 先跑完再拍 in-use 快照；GC 一次讓 live objects 比較準
		exe()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return "", errs.Wrap(err, "write heap profile failed")
		}
	case ModeAllocs:
		// 累積配置，看 -alloc_space / -alloc_objects
		exe()
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			return "", errs.Wrap(err, "write allocs profile failed")
		}
	}
	return path, nil
}
