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

// Package bag 實作 7-bag 隨機器與預覽佇列。
//
// 每一輪把 7 種方塊各放一個進袋子並洗牌，抽完再換新袋，
// 因此任何連續 7 個對齊袋子邊界的方塊恰好是 7 種各一個。
package bag

import "github.com/zintix-labs/blocklab/sdk/piece"

// Shuffler 為洗牌能力，*core.Core 即滿足此介面。
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// NextBag 回傳 7 種方塊的一個均勻隨機排列。
func NextBag(s Shuffler) []piece.Kind {
	b := piece.Kinds()
	s.Shuffle(len(b), func(i, j int) {
		b[i], b[j] = b[j], b[i]
	})
	return b
}

// Bag 為當前這輪尚未抽出的方塊。
type Bag struct {
	rng    Shuffler
	remain []piece.Kind
	drawn  [piece.Count + 1]uint64
	bags   uint64
}

// New 建立新的 Bag，立即洗好第一袋。
func New(rng Shuffler) *Bag {
	b := &Bag{rng: rng}
	b.refill()
	return b
}

func (b *Bag) refill() {
	b.remain = append(b.remain[:0], NextBag(b.rng)...)
	b.bags++
}

// Draw 取出袋子最前面的方塊；袋子空了先換新袋。
func (b *Bag) Draw() piece.Kind {
	if len(b.remain) == 0 {
		b.refill()
	}
	k := b.remain[0]
	b.remain = b.remain[1:]
	b.drawn[k]++
	return k
}

// Remaining 回傳本輪剩餘方塊的拷貝。
func (b *Bag) Remaining() []piece.Kind {
	return append([]piece.Kind(nil), b.remain...)
}

// Bags 回傳至今洗過的袋數。
func (b *Bag) Bags() uint64 {
	return b.bags
}

// Drawn 回傳各種方塊被抽出的次數，索引為 Kind（0 恆為 0）。
func (b *Bag) Drawn() [piece.Count + 1]uint64 {
	return b.drawn
}

// Reset 丟棄剩餘方塊與計數，重新洗一袋。
func (b *Bag) Reset() {
	b.remain = b.remain[:0]
	b.drawn = [piece.Count + 1]uint64{}
	b.bags = 0
	b.refill()
}

// Restore 以外部保存的剩餘方塊覆蓋本輪內容（用於 checkpoint 還原）。
// 空的 remain 代表下一次 Draw 會換新袋。
func (b *Bag) Restore(remain []piece.Kind) {
	b.remain = append(b.remain[:0], remain...)
}

// ============================================================
// ** 預覽佇列 **
// ============================================================

// Queue 為即將出生的方塊序列，由 Bag 補充。
type Queue struct {
	bag   *Bag
	items []piece.Kind
}

// NewQueue 建立空的佇列，補充來源為 bag。
func NewQueue(bag *Bag) *Queue {
	return &Queue{bag: bag}
}

// Fill 從 Bag 抽取直到長度 >= min。
func (q *Queue) Fill(min int) {
	for len(q.items) < min {
		q.items = append(q.items, q.bag.Draw())
	}
}

// Pop 取出佇列頭；佇列為空時先抽一個。
func (q *Queue) Pop() piece.Kind {
	if len(q.items) == 0 {
		q.Fill(1)
	}
	k := q.items[0]
	q.items = q.items[1:]
	return k
}

// Peek 回傳前 n 個方塊的拷貝（不足則回傳全部）。
func (q *Queue) Peek(n int) []piece.Kind {
	if n > len(q.items) {
		n = len(q.items)
	}
	if n <= 0 {
		return []piece.Kind{}
	}
	return append([]piece.Kind(nil), q.items[:n]...)
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Bag 回傳佇列使用的 Bag。
func (q *Queue) Bag() *Bag {
	return q.bag
}

// Reset 清空佇列並重置 Bag。
func (q *Queue) Reset() {
	q.items = q.items[:0]
	q.bag.Reset()
}

// Restore 以外部保存的佇列內容覆蓋目前內容。
func (q *Queue) Restore(items []piece.Kind) {
	q.items = append(q.items[:0], items...)
}
