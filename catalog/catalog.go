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

package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/spec"
)

var (
	ErrDupID   = errs.NewFatal("duplicate rule id")
	ErrDupName = errs.NewFatal("duplicate rule name")
)

// Entry 為一組規則在目錄中的登記資料。
type Entry struct {
	RID        spec.RID
	Name       string
	ConfigName string
}

// Summary 為對外列出規則時的摘要。
type Summary struct {
	RID           spec.RID `json:"rid"`
	Name          string   `json:"name"`
	Cols          int      `json:"cols"`
	Rows          int      `json:"rows"`
	Preview       int      `json:"preview"`
	LinesPerLevel int      `json:"lines_per_level"`
	ScoreTable    []int    `json:"score_table"`
}

// NewSummary 以已初始化的規則建立摘要。
func NewSummary(rs *spec.RuleSetting) Summary {
	return Summary{
		RID:           rs.RuleID,
		Name:          rs.RuleName,
		Cols:          rs.Cols,
		Rows:          rs.Rows,
		Preview:       rs.Preview,
		LinesPerLevel: rs.LinesPerLevel,
		ScoreTable:    append([]int(nil), rs.ScoreTable...),
	}
}

type Catalog struct {
	byID   map[spec.RID]Entry
	byName map[string]Entry
	ids    []spec.RID          // 用來穩定排序
	unique map[string]struct{} // 一組規則，檔名需唯一
	config *multiFS
	frozen bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byID:   map[spec.RID]Entry{},
		byName: map[string]Entry{},
		ids:    make([]spec.RID, 0, 16),
		unique: map[string]struct{}{},
		config: multFS,
	}, nil
}

// Register 一次性登記多組規則；任何一筆不合法時全部不寫入。
func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenID := map[spec.RID]struct{}{}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	for i := range metas {
		meta := &metas[i]
		meta.Name = strings.ToLower(strings.TrimSpace(meta.Name))
		if meta.Name == "" {
			return errs.NewFatal("rule name required")
		}
		if err := validFileName(meta.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[meta.ConfigName]; !ok {
			return errs.Fatalf("config file not found: %s", meta.ConfigName)
		}
		if _, ok := c.byID[meta.RID]; ok {
			return ErrDupID
		}
		if _, ok := seenID[meta.RID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := seenName[meta.Name]; ok {
			return ErrDupName
		}
		_, used := c.unique[meta.ConfigName]
		if _, ok := seenCfg[meta.ConfigName]; ok || used {
			return errs.Fatalf("duplicate config name: %s", meta.ConfigName)
		}
		seenID[meta.RID] = struct{}{}
		seenName[meta.Name] = struct{}{}
		seenCfg[meta.ConfigName] = struct{}{}
	}
	for _, meta := range metas {
		c.unique[meta.ConfigName] = struct{}{}
		c.byID[meta.RID] = meta
		c.byName[meta.Name] = meta
		c.ids = append(c.ids, meta.RID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	return nil
}

// Scan 讀取所有來源中的設定檔並產生對應的 Entry（依檔名排序），不寫入目錄。
// 任何一個檔案讀取/解析失敗都立即回傳 Fatal。
func (c *Catalog) Scan() ([]Entry, error) {
	names := make([]string, 0, len(c.config.index))
	for name := range c.config.index {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		rs, err := c.parse(name)
		if err != nil {
			return nil, errs.WrapWithExtra(err, "scan configs failed", name)
		}
		out = append(out, Entry{RID: rs.RuleID, Name: rs.RuleName, ConfigName: name})
	}
	return out, nil
}

func (c *Catalog) GetByID(id spec.RID) (Entry, bool) {
	m, ok := c.byID[id]
	return m, ok
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	m, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

func (c *Catalog) IDs() []spec.RID {
	if len(c.ids) == 0 {
		return nil
	}
	return append([]spec.RID(nil), c.ids...)
}

func (c *Catalog) All() []Entry {
	m := make([]Entry, 0, len(c.ids))
	for _, id := range c.ids {
		m = append(m, c.byID[id])
	}
	return m
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

// RuleSettingByID 讀取並初始化該規則（每次呼叫都是新的實例，可放心修改）。
func (c *Catalog) RuleSettingByID(id spec.RID) (*spec.RuleSetting, error) {
	e, ok := c.GetByID(id)
	if !ok {
		return nil, errs.Warnf("rule id %d does not exist in catalog", id)
	}
	return c.parse(e.ConfigName)
}

func (c *Catalog) RuleSettingByName(name string) (*spec.RuleSetting, error) {
	e, ok := c.GetByName(name)
	if !ok {
		return nil, errs.Warnf("rule %q does not exist in catalog", name)
	}
	return c.parse(e.ConfigName)
}

func (c *Catalog) parse(name string) (*spec.RuleSetting, error) {
	src, ok := c.config.GetFS(name)
	if !ok {
		return nil, errs.Warnf("config %q does not exist in catalog", name)
	}
	raw, err := fs.ReadFile(src, name)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	return parseRuleSettingByExt(name, raw)
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	// 只能是檔名，不能帶路徑
	if strings.ContainsAny(file, `/\:`) {
		return errs.Fatalf("invalid config filename: %q (must be a basename)", file)
	}
	if !isConfigFile(file) {
		return errs.Fatalf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file)
	}
	if strings.HasPrefix(file, ".") {
		return errs.Fatalf("invalid config filename: %q (cannot start with '.')", file)
	}
	return nil
}

func isConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func parseRuleSettingByExt(filename string, raw []byte) (*spec.RuleSetting, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return spec.GetRuleSettingByYAML(raw)
	case ".json":
		return spec.GetRuleSettingByJSON(raw)
	default:
		return nil, errs.Fatalf("unsupported config format: %q", filename)
	}
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.Fatalf("fs[%d] is nil", i)
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 16),
	}

	// 建索引並檢查重複；設定目錄必須是平的
	for i := range src {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.Fatalf("config FS must be flat (no subdirectories): %q", path)
			}
			if strings.HasPrefix(path, ".") || !isConfigFile(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], true
	}
	return nil, false
}
