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

package spec

import (
	"bytes"

	"github.com/zintix-labs/blocklab/errs"
	"gopkg.in/yaml.v3"
)

// DecodeExtra 把 extra 區塊中 key 對應的內容解到 out。
// key 不存在時 out 保持原值並回傳 false。
func DecodeExtra[T any](rs *RuleSetting, key string, out *T) (bool, error) {
	raw, ok := rs.Extra[key]
	if !ok {
		return false, nil
	}
	// 先把 map[string]any -> YAML bytes
	bs, err := yaml.Marshal(raw)
	if err != nil {
		return false, errs.Wrap(err, "spec.extra_decoder : marshal failed")
	}
	// 再把 YAML bytes -> 自定義的型別
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	if err = dec.Decode(out); err != nil {
		return false, errs.Wrap(errs.NewWarn(err.Error()), "spec.extra_decoder : decode failed")
	}
	return true, nil
}
