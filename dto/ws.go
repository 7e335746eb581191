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

// WebSocket 訊息類型。
const (
	WSTypeSnapshot = "snapshot" // server → client：畫面
	WSTypeError    = "error"    // server → client：命令錯誤
	WSTypeCommand  = "cmd"      // client → server：玩家命令
	WSTypePing     = "ping"     // server → client：keep-alive
	WSTypePong     = "pong"     // client → server
)

// WSMessage 為 /ws 上雙向使用的訊息。client 送命令時可省略 type，只帶 cmd。
type WSMessage struct {
	Type     string    `json:"type,omitempty"`
	Cmd      Command   `json:"cmd,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Error    string    `json:"error,omitempty"`
}
