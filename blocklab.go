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

// Package blocklab 提供 Blocklab 引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// Blocklab 把兩個必需的地基組裝在一起，並提供建立 Session / Simulator / Runtime 的入口：
//  1. Catalog：規則目錄（Single Source of Truth），定義有哪些規則集、各自對應的設定檔名稱。
//  2. PRNGFactory：亂數核心工廠，同一個 seed 產生同一條方塊序列，保證可重現。
//
// 設定檔來源一律以 fs.FS 注入（go:embed 或 os.DirFS），Blocklab 本身不綁定任何檔案路徑。
//
// 使用流程分兩階段：
//   - 組裝階段：New -> Register/RegisterAll -> Freeze。
//   - 執行階段：NewSession / NewSimulatorWithSeed / BuildRuntime。
//
// 遊戲核心在 sdk/* 之下，不依賴本套件；本套件只是宿主。
package blocklab

import (
	"crypto/rand"
	"io/fs"
	"log/slog"
	"math"
	"math/big"

	"github.com/zintix-labs/blocklab/catalog"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/core"
	"github.com/zintix-labs/blocklab/spec"
)

// Configs 把一或多個設定檔來源打包成 New() 需要的參數。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

type Blocklab struct {
	cat *catalog.Catalog
	cf  core.PRNGFactory
	log *slog.Logger
	sum []catalog.Summary
}

// Option 調整 Blocklab 的可選設定。
type Option func(*Blocklab)

// WithLogger 指定 Session / Runtime 使用的 logger，預設全部丟棄。
func WithLogger(l *slog.Logger) Option {
	return func(b *Blocklab) {
		if l != nil {
			b.log = l
		}
	}
}

// New 建立 Blocklab（組裝階段）。cf 不能為 nil，cfgs 至少一個。
func New(cf core.PRNGFactory, cfgs []fs.FS, opts ...Option) (*Blocklab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	lab := &Blocklab{
		cat: cata,
		cf:  cf,
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(lab)
	}
	return lab, nil
}

// NewAuto 建立並直接進入執行階段：登記所有設定檔後 Freeze。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, opts ...Option) (*Blocklab, error) {
	lab, err := New(cf, cfgs, opts...)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (b *Blocklab) Register(ents ...catalog.Entry) error {
	return b.cat.Register(ents...)
}

// RegisterAll 解析所有設定檔，以檔內宣告的 rule_id / rule_name 一次性登記。
//
// Fail-fast 且具原子性：任何一個檔案失敗都不會寫入任何登記。
func (b *Blocklab) RegisterAll() error {
	ents, err := b.cat.Scan()
	if err != nil {
		return err
	}
	if len(ents) == 0 {
		return errs.NewFatal("no config files found to register")
	}
	return b.cat.Register(ents...)
}

func (b *Blocklab) Freeze() {
	b.cat.Freeze()
}

func (b *Blocklab) EntryByID(id spec.RID) (catalog.Entry, bool) {
	return b.cat.GetByID(id)
}

func (b *Blocklab) EntryByName(name string) (catalog.Entry, bool) {
	return b.cat.GetByName(name)
}

func (b *Blocklab) IDs() []spec.RID {
	return b.cat.IDs()
}

// Summaries 列出所有規則摘要（需先 Freeze；結果會快取）。
func (b *Blocklab) Summaries() ([]catalog.Summary, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if b.sum != nil {
		return b.sum, nil
	}
	ids := b.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		rs, err := b.cat.RuleSettingByID(id)
		if err != nil {
			return nil, errs.Wrap(err, "parse rule setting failed")
		}
		cs = append(cs, catalog.NewSummary(rs))
	}
	b.sum = cs
	return b.sum, nil
}

// Rules 回傳該規則集的新實例。
func (b *Blocklab) Rules(id spec.RID) (*spec.RuleSetting, error) {
	if !b.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return b.cat.RuleSettingByID(id)
}

// ResolveRID 把「id 或名稱」解析成 id；兩者都給時必須指向同一組規則。
func (b *Blocklab) ResolveRID(id spec.RID, name string) (spec.RID, error) {
	if name == "" {
		if id == 0 {
			return 0, errs.NewWarn("rid or rule name required")
		}
		if _, ok := b.cat.GetByID(id); !ok {
			return 0, errs.Warnf("rid %d not found", id)
		}
		return id, nil
	}
	e, ok := b.cat.GetByName(name)
	if !ok {
		return 0, errs.Warnf("rule %q not found", name)
	}
	if id != 0 && e.RID != id {
		return 0, errs.Warnf("rid %d does not match rule %q", id, name)
	}
	return e.RID, nil
}

// NewSession 以隨機 seed（crypto/rand）建立 Session。
func (b *Blocklab) NewSession(id spec.RID) (*Session, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return b.NewSessionWithSeed(id, seed)
}

// NewSessionWithSeed 以指定 seed 建立 Session；同一組規則 + 同一個 seed 得到同一條方塊序列。
func (b *Blocklab) NewSessionWithSeed(id spec.RID, seed int64, opts ...SessionOption) (*Session, error) {
	rs, err := b.Rules(id)
	if err != nil {
		return nil, err
	}
	return newSession(rs, b.cf, seed, b.log, opts...), nil
}

func (b *Blocklab) NewSimulator(id spec.RID) (*Simulator, error) {
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return b.NewSimulatorWithSeed(id, seed)
}

func (b *Blocklab) NewSimulatorWithSeed(id spec.RID, seed int64) (*Simulator, error) {
	rs, err := b.Rules(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(rs, b.cf, seed)
}

// BuildRuntime 建立可承載最多 capacity 個 Session 的 Runtime；進入 runtime 前 catalog 會被 Freeze。
func (b *Blocklab) BuildRuntime(capacity int) (*Runtime, error) {
	b.Freeze()
	if len(b.cat.IDs()) == 0 {
		return nil, errs.NewFatal("no rules registered")
	}
	seed, err := cryptoSeed()
	if err != nil {
		return nil, err
	}
	return newRuntime(b, max(1, capacity), seed), nil
}

func cryptoSeed() (int64, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return seed.Int64(), nil
}
