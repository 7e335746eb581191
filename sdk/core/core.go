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

// Package core 提供遊戲使用的亂數核心。
//
// 遊戲內沒有任何全域亂數：每個 Session 持有自己的 Core，由 seed 決定性地建立，
// 因此同一個 seed 會得到同一條方塊序列（測試、回放、checkpoint 都依賴這點）。
package core

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
type RAND interface {
	// Uint64 回傳 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作、同一版本下 New(seed) 必須是決定性的，
// 相同 seed 產生相同的初始狀態與輸出序列。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 以 PCG64 實作 PRNGFactory。
type DefaultPRNG struct{}

func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32Factory 以 32-bit 輸出的 PCG 實作 PRNGFactory，32-bit 平台上較划算。
type PCG32Factory struct{}

func (f *PCG32Factory) New(seed int64) PRNG {
	return NewPCG32WithSeed(seed)
}

// Core 封裝 PRNG，並提供洗牌。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Shuffle 以 Fisher-Yates 對長度 n 的序列重排，swap 負責交換 i、j 兩個位置。
//
// 每一種排列出現機率嚴格相等（1/n!），O(n) 且不配置記憶體。
// 介面與 math/rand.Shuffle 相同，呼叫端不需要把資料轉成 []int。
func (c *Core) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		swap(i, j)
	}
}
