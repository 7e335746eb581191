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

// Package v1 實作 /v1 底下的 HTTP handlers。
//
// handler 只做三件事：解析請求（dto）、呼叫 Blocklab / Runtime、把結果或錯誤（httperr）寫回。
package v1

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/server/netsvr"
	"github.com/zintix-labs/blocklab/spec"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sessionID 解析路由上的 {id}。
func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(netsvr.Param(r, "id"))
	if err != nil {
		return uuid.Nil, errs.WrapAs(errs.Warn, err, "invalid session id")
	}
	return id, nil
}

// resolveRule 把 rid / rule 名稱解析成 id；兩者皆空時使用最小的 id。
func resolveRule(lab *blocklab.Blocklab, rid spec.RID, name string) (spec.RID, error) {
	if rid == 0 && name == "" {
		ids := lab.IDs()
		if len(ids) == 0 {
			return 0, errs.NewFatal("no rules registered")
		}
		return ids[0], nil
	}
	return lab.ResolveRID(rid, name)
}
