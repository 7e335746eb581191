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
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/sdk/game"
	"github.com/zintix-labs/blocklab/spec"
)

// maxBody 為 POST body 上限（1MiB）。
const maxBody = 1 << 20

// Command 為玩家命令名稱。
type Command string

const (
	CmdLeft        Command = "left"
	CmdRight       Command = "right"
	CmdRotate      Command = "rotate"
	CmdSoftDrop    Command = "soft_drop"
	CmdHardDrop    Command = "hard_drop"
	CmdPause       Command = "pause"
	CmdResume      Command = "resume"
	CmdTogglePause Command = "toggle_pause"
	CmdReset       Command = "reset"
)

var commands = map[Command]func(*game.Game) bool{
	CmdLeft:        (*game.Game).MoveLeft,
	CmdRight:       (*game.Game).MoveRight,
	CmdRotate:      (*game.Game).Rotate,
	CmdSoftDrop:    (*game.Game).SoftDrop,
	CmdHardDrop:    (*game.Game).HardDrop,
	CmdPause:       (*game.Game).Pause,
	CmdResume:      (*game.Game).Resume,
	CmdTogglePause: (*game.Game).TogglePause,
	CmdReset:       (*game.Game).Reset,
}

// ParseCommand 解析命令名稱（大小寫不敏感，允許 "-" 取代 "_"）；未知命令回傳 Warn。
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := commands[c]; !ok {
		return "", errs.Warnf("unknown command %q", s)
	}
	return c, nil
}

// Apply 對 g 執行命令，回傳狀態是否改變。c 必須來自 ParseCommand。
func (c Command) Apply(g *game.Game) bool {
	fn, ok := commands[c]
	if !ok {
		return false
	}
	return fn(g)
}

// CommandRequest 為 HTTP / websocket 上的命令格式：{"cmd":"rotate"}。
type CommandRequest struct {
	Cmd string `json:"cmd"`
}

func (cr CommandRequest) Parse() (Command, error) {
	return ParseCommand(cr.Cmd)
}

// DecodeCommandRequest 解析命令請求：GET 讀 ?cmd=，POST 讀 JSON body（拒絕未知欄位）。
func DecodeCommandRequest(r *http.Request) (Command, error) {
	if r == nil {
		return "", errs.NewWarn("nil request")
	}
	req := new(CommandRequest)
	switch r.Method {
	case http.MethodGet:
		req.Cmd = r.URL.Query().Get("cmd")
	case http.MethodPost:
		if err := decodeStrictJSON(r.Body, req); err != nil {
			return "", err
		}
	default:
		return "", errs.NewWarn("method not allowed")
	}
	return req.Parse()
}

// CreateRequest 建立 session 的請求。RID 與 Rule 擇一；Seed 省略時由伺服器產生；
// Checkpoint 有值時從該 checkpoint 續玩（此時忽略 Seed）。
type CreateRequest struct {
	RID        spec.RID `json:"rid,omitempty"`
	Rule       string   `json:"rule,omitempty"`
	Seed       *int64   `json:"seed,omitempty"`
	Checkpoint string   `json:"checkpoint,omitempty"`
}

// DecodeCreateRequest 解析建立請求：GET 讀 rid/rule/seed，POST 讀 JSON；空 body 視為全預設。
func DecodeCreateRequest(r *http.Request) (*CreateRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(CreateRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Rule = q.Get("rule")
		if s := q.Get("rid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, errs.Warnf("invalid rid: %v", err)
			}
			req.RID = spec.RID(u)
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.Warnf("invalid seed: %v", err)
			}
			req.Seed = &v
		}
	case http.MethodPost:
		if r.ContentLength == 0 {
			return req, nil
		}
		if err := decodeStrictJSON(r.Body, req); err != nil {
			return nil, err
		}
	default:
		return nil, errs.NewWarn("method not allowed")
	}
	return req, nil
}

// SimRequest 模擬請求。
type SimRequest struct {
	RID       spec.RID `json:"rid,omitempty"`
	Rule      string   `json:"rule,omitempty"`
	Games     int      `json:"games"`
	Workers   int      `json:"workers,omitempty"`
	MaxPieces int      `json:"max_pieces,omitempty"`
	Seed      *int64   `json:"seed,omitempty"`
}

// DecodeSimRequest 解析模擬請求；只做型別轉換，範圍檢查交給呼叫端。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(SimRequest)
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Rule = q.Get("rule")
		if s := q.Get("rid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				return nil, errs.Warnf("invalid rid: %v", err)
			}
			req.RID = spec.RID(u)
		}
		ints := []struct {
			key string
			dst *int
		}{
			{"games", &req.Games},
			{"workers", &req.Workers},
			{"max_pieces", &req.MaxPieces},
		}
		for _, it := range ints {
			if s := q.Get(it.key); s != "" {
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, errs.Warnf("invalid %s: %v", it.key, err)
				}
				*it.dst = v
			}
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.Warnf("invalid seed: %v", err)
			}
			req.Seed = &v
		}
	case http.MethodPost:
		if err := decodeStrictJSON(r.Body, req); err != nil {
			return nil, err
		}
	default:
		return nil, errs.NewWarn("method not allowed")
	}
	return req, nil
}

func decodeStrictJSON(body io.Reader, out any) error {
	if body == nil {
		return errs.NewWarn("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errs.WrapAs(errs.Warn, err, "invalid json")
	}
	return nil
}

// CheckpointRequest 以 checkpoint 覆蓋既有 session 的請求。
type CheckpointRequest struct {
	Checkpoint string `json:"checkpoint"`
}

func DecodeCheckpointRequest(r *http.Request) (*CheckpointRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(CheckpointRequest)
	if err := decodeStrictJSON(r.Body, req); err != nil {
		return nil, err
	}
	if req.Checkpoint == "" {
		return nil, errs.NewWarn("checkpoint required")
	}
	return req, nil
}
