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

package dto

import (
	"encoding/json"

	"github.com/zintix-labs/blocklab/corefmt"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/spec"
)

// CheckpointVersion 為目前的 checkpoint 格式版本。
const CheckpointVersion = 1

// Checkpoint 為可續玩的完整局面：遊戲狀態 + 亂數核心快照。
//
// 傳輸格式：base64url( zstd( json(Checkpoint) ) )。
type Checkpoint struct {
	Version int        `json:"v"`
	RuleID  spec.RID   `json:"rid"`
	Rule    string     `json:"rule"`
	Seed    int64      `json:"seed"`
	Core    []byte     `json:"core"`
	State   game.State `json:"state"`
}

// EncodeCheckpoint 把 checkpoint 編成可放進 URL / JSON 的字串。
func EncodeCheckpoint(cp *Checkpoint) (string, error) {
	if cp == nil {
		return "", errs.NewWarn("nil checkpoint")
	}
	if cp.Version == 0 {
		cp.Version = CheckpointVersion
	}
	b, err := json.Marshal(cp)
	if err != nil {
		return "", errs.Wrap(err, "encode checkpoint failed")
	}
	return corefmt.EncodeBase64URL(corefmt.Compress(b)), nil
}

// DecodeCheckpoint 解析 EncodeCheckpoint 的輸出；任何格式問題都是 Warn（呼叫端輸入錯誤）。
func DecodeCheckpoint(s string) (*Checkpoint, error) {
	if s == "" {
		return nil, errs.NewWarn("empty checkpoint")
	}
	z, err := corefmt.DecodeBase64URL(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode checkpoint failed")
	}
	raw, err := corefmt.Decompress(z)
	if err != nil {
		return nil, errs.Wrap(err, "decode checkpoint failed")
	}
	cp := new(Checkpoint)
	if err := json.Unmarshal(raw, cp); err != nil {
		return nil, errs.WrapAs(errs.Warn, err, "decode checkpoint failed")
	}
	if cp.Version != CheckpointVersion {
		return nil, errs.Warnf("unsupported checkpoint version %d", cp.Version)
	}
	if len(cp.Core) == 0 {
		return nil, errs.NewWarn("checkpoint has no core snapshot")
	}
	return cp, nil
}
