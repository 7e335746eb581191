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

package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/dto"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/server/httperr"
)

const (
	wsWriteTimeout = 2 * time.Second
	wsPingEvery    = 15 * time.Second
)

// Stream GET /v1/sessions/{id}/ws
//
// 連線後先推一張完整畫面，之後每次狀態改變都推送；client 送 {"cmd":"left"} 操作。
// 命令錯誤以 type=error 回覆，不斷線；Session 被移除時以 StatusGoingAway 關閉。
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	s, ok := h.rt.Get(id)
	if !ok {
		httperr.Errs(w, blocklab.ErrSessionNotFound)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("ws accept failed", "session", id.String(), "err", err)
		return
	}
	defer c.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snaps, unsubscribe := s.Subscribe()
	defer unsubscribe()

	// 寫出：畫面推送 + keep-alive
	go func() {
		defer cancel()
		ping := time.NewTicker(wsPingEvery)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					c.Close(websocket.StatusGoingAway, "session closed")
					return
				}
				if err := wsWrite(ctx, c, dto.WSMessage{Type: dto.WSTypeSnapshot, Snapshot: &snap}); err != nil {
					return
				}
			case <-ping.C:
				if err := wsWrite(ctx, c, dto.WSMessage{Type: dto.WSTypePing}); err != nil {
					return
				}
			}
		}
	}()

	// 讀取：玩家命令
	for {
		var msg dto.WSMessage
		err := wsjson.Read(ctx, c, &msg)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
			return
		}
		if err != nil {
			h.log.Debug("ws read failed", "session", id.String(), "err", err)
			c.Close(websocket.StatusUnsupportedData, "read error")
			return
		}
		if msg.Type == dto.WSTypePong {
			continue
		}
		if msg.Type != "" && msg.Type != dto.WSTypeCommand {
			wsWrite(ctx, c, dto.WSMessage{Type: dto.WSTypeError, Error: "unknown message type " + msg.Type})
			continue
		}
		// 成功的命令會經由訂閱推送畫面，這裡只回報錯誤
		if _, err := h.rt.Do(ctx, id, msg.Cmd); err != nil {
			httperr.Log(h.log, "ws command", err)
			wsWrite(ctx, c, dto.WSMessage{Type: dto.WSTypeError, Error: err.Error()})
			if errs.IsFatal(err) {
				c.Close(websocket.StatusInternalError, "session broken")
				return
			}
		}
	}
}

func wsWrite(ctx context.Context, c *websocket.Conn, msg dto.WSMessage) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, msg)
}
