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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/demo/demo_configs"
	"github.com/zintix-labs/blocklab/dto"
	"github.com/zintix-labs/blocklab/sdk/core"
	v1 "github.com/zintix-labs/blocklab/server/api/v1"
	"github.com/zintix-labs/blocklab/server/netsvr"
	"github.com/zintix-labs/blocklab/server/svrcfg"
)

func newTestServer(t *testing.T, capacity int) (*httptest.Server, *blocklab.Runtime) {
	t.Helper()
	lab, err := blocklab.NewAuto(core.Default(), blocklab.Configs(demo_configs.FS))
	require.NoError(t, err)
	cfg := &svrcfg.SvrCfg{Blocklab: lab, Capacity: capacity, MaxSimGames: 20, MaxSimPieces: 300, MaxWorkers: 2}
	require.NoError(t, cfg.Valid())
	rt, err := lab.BuildRuntime(cfg.Capacity)
	require.NoError(t, err)

	svr := netsvr.NewChiServer("")
	RegisterRoutes(svr, cfg, rt)
	ts := httptest.NewServer(svr.Handler())
	t.Cleanup(func() {
		ts.Close()
		rt.Close()
	})
	return ts, rt
}

func do(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func createSession(t *testing.T, ts *httptest.Server, body string) v1.CreateResponse {
	t.Helper()
	resp, b := do(t, http.MethodPost, ts.URL+"/v1/sessions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))
	var cr v1.CreateResponse
	require.NoError(t, json.Unmarshal(b, &cr))
	return cr
}

func TestRules(t *testing.T) {
	ts, _ := newTestServer(t, 4)
	resp, b := do(t, http.MethodGet, ts.URL+"/v1/rules", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var out struct {
		Rules []struct {
			RID  int    `json:"rid"`
			Name string `json:"name"`
		} `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Rules, 2)
	assert.Equal(t, "classic", out.Rules[0].Name)
	assert.Equal(t, "sprint", out.Rules[1].Name)
}

func TestSessionFlow(t *testing.T) {
	ts, _ := newTestServer(t, 4)
	cr := createSession(t, ts, `{"rid":1,"seed":7}`)
	assert.Equal(t, int64(7), cr.Seed)
	assert.Equal(t, "classic", cr.Snapshot.Rule)
	require.NotNil(t, cr.Snapshot.Active)
	x0 := cr.Snapshot.Active.X

	base := ts.URL + "/v1/sessions/" + cr.ID
	resp, b := do(t, http.MethodPost, base+"/commands", `{"cmd":"left"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var snap dto.Snapshot
	require.NoError(t, json.Unmarshal(b, &snap))
	assert.Equal(t, x0-1, snap.Active.X)

	resp, _ = do(t, http.MethodPost, base+"/commands", `{"cmd":"jump"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, b = do(t, http.MethodPost, base+"/commands", `{"cmd":"hard_drop"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(b, &snap))
	assert.Positive(t, snap.Score)

	resp, b = do(t, http.MethodGet, base+"/checkpoint", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cp v1.CheckpointResponse
	require.NoError(t, json.Unmarshal(b, &cp))
	require.NotEmpty(t, cp.Checkpoint)

	// 從 checkpoint 開新局，畫面要一致
	body, _ := json.Marshal(dto.CreateRequest{Checkpoint: cp.Checkpoint})
	cr2 := createSession(t, ts, string(body))
	assert.NotEqual(t, cr.ID, cr2.ID)
	assert.Equal(t, snap.Grid, cr2.Snapshot.Grid)
	assert.Equal(t, snap.Score, cr2.Snapshot.Score)

	// 覆蓋既有 session
	fresh := createSession(t, ts, `{"rule":"classic","seed":1}`)
	restoreBody, _ := json.Marshal(dto.CheckpointRequest{Checkpoint: cp.Checkpoint})
	resp, b = do(t, http.MethodPut, ts.URL+"/v1/sessions/"+fresh.ID+"/checkpoint", string(restoreBody))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	require.NoError(t, json.Unmarshal(b, &snap))
	assert.Equal(t, cr2.Snapshot.Grid, snap.Grid)

	resp, _ = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRejects(t *testing.T) {
	ts, _ := newTestServer(t, 1)
	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/sessions", `{"rule":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/sessions", `{"checkpoint":"AAAA"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	createSession(t, ts, "")
	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/sessions", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, b := do(t, http.MethodGet, ts.URL+"/v1/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m blocklab.Metrics
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, 1, m.Active)
	assert.Equal(t, 1, m.Capacity)
}

func TestSim(t *testing.T) {
	ts, _ := newTestServer(t, 1)
	resp, b := do(t, http.MethodGet, ts.URL+"/v1/sim?rule=classic&games=4&workers=2&max_pieces=100&seed=3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var out v1.SimResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, int64(3), out.Seed)
	assert.Equal(t, 4, out.Stats.Summary.Games)

	resp, b = do(t, http.MethodPost, ts.URL+"/v1/sim?format=yaml", `{"rid":2,"games":2,"max_pieces":50,"seed":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	assert.True(t, bytes.Contains(b, []byte("rulename: sprint")), string(b))

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/sim?games=21", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/sim?games=2&workers=3", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStream(t *testing.T) {
	ts, rt := newTestServer(t, 2)
	cr := createSession(t, ts, `{"rid":1,"seed":9}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/sessions/" + cr.ID + "/ws"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer c.CloseNow()

	var msg dto.WSMessage
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	require.Equal(t, dto.WSTypeSnapshot, msg.Type)
	require.NotNil(t, msg.Snapshot)
	x0 := msg.Snapshot.Active.X

	require.NoError(t, wsjson.Write(ctx, c, dto.WSMessage{Cmd: dto.CmdRight}))
	for {
		require.NoError(t, wsjson.Read(ctx, c, &msg))
		if msg.Type == dto.WSTypeSnapshot && msg.Snapshot.Active != nil && msg.Snapshot.Active.X == x0+1 {
			break
		}
	}

	require.NoError(t, wsjson.Write(ctx, c, dto.WSMessage{Type: dto.WSTypeCommand, Cmd: "fly"}))
	for {
		require.NoError(t, wsjson.Read(ctx, c, &msg))
		if msg.Type == dto.WSTypeError {
			break
		}
	}

	// 移除 session 時伺服器關閉連線
	id, err := uuidOf(cr.ID)
	require.NoError(t, err)
	require.True(t, rt.Remove(id))
	for {
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
			break
		}
	}
}

func uuidOf(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
