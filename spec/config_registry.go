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
	"encoding/json"

	"github.com/zintix-labs/blocklab/errs"
	"gopkg.in/yaml.v3"
)

// GetRuleSettingByYAML 解析 YAML 規則檔。未知欄位視為錯誤（拼錯欄位不會被默默忽略）。
func GetRuleSettingByYAML(data []byte) (*RuleSetting, error) {
	rs := &RuleSetting{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(rs); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshal yaml")
	}

	// 設定檔初始化
	if err := rs.init(); err != nil {
		return nil, errs.Wrap(err, "rule setting initialized err")
	}
	return rs, nil
}

func GetRuleSettingByJSON(data []byte) (*RuleSetting, error) {
	rs := &RuleSetting{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(rs); err != nil {
		return nil, errs.Wrap(err, "can not unmarshal json byte")
	}

	if err := rs.init(); err != nil {
		return nil, errs.Wrap(err, "rule setting initialized err")
	}
	return rs, nil
}
