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
	"net/http"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/dto"
	"github.com/zintix-labs/blocklab/errs"
	"github.com/zintix-labs/blocklab/server/httperr"
	"github.com/zintix-labs/blocklab/stats"
)

// SimLimits 為單次 /v1/sim 請求的上限，避免一個請求吃滿 CPU。
type SimLimits struct {
	MaxGames   int
	MaxPieces  int
	MaxWorkers int
}

type SimHandler struct {
	lab    *blocklab.Blocklab
	limits SimLimits
}

func NewSimHandler(lab *blocklab.Blocklab, limits SimLimits) *SimHandler {
	return &SimHandler{lab: lab, limits: limits}
}

type SimResponse struct {
	Seed     int64             `json:"seed"`
	Workers  int               `json:"workers"`
	Stats    *stats.StatReport `json:"stats"`
	UsedTime int64             `json:"used_ms"`
}

// Sim GET/POST /v1/sim
//
// ?format=yaml 時回傳 YAML 報表，否則 JSON。
func (h *SimHandler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if err := h.check(req); err != nil {
		httperr.Errs(w, err)
		return
	}
	rid, err := resolveRule(h.lab, req.RID, req.Rule)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	var sim *blocklab.Simulator
	if req.Seed != nil {
		sim, err = h.lab.NewSimulatorWithSeed(rid, *req.Seed)
	} else {
		sim, err = h.lab.NewSimulator(rid)
	}
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "build simulator err"))
		return
	}
	st, used, err := sim.SimMP(req.Games, req.Workers, req.MaxPieces, false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "simulate err"))
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		if err := st.WriteWith(w, &stats.YAMLStatReportRender{}); err != nil {
			httperr.Errs(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, SimResponse{
		Seed:     sim.Seed(),
		Workers:  req.Workers,
		Stats:    st,
		UsedTime: used.Milliseconds(),
	})
}

// check 補齊預設並檢查上限。
func (h *SimHandler) check(req *dto.SimRequest) error {
	if req.Games < 1 || req.Games > h.limits.MaxGames {
		return errs.Warnf("games must be between 1 and %d", h.limits.MaxGames)
	}
	if req.Workers == 0 {
		req.Workers = 1
	}
	if req.Workers < 1 || req.Workers > h.limits.MaxWorkers {
		return errs.Warnf("workers must be between 1 and %d", h.limits.MaxWorkers)
	}
	if req.MaxPieces == 0 {
		req.MaxPieces = min(blocklab.DefaultMaxPieces, h.limits.MaxPieces)
	}
	if req.MaxPieces < 1 || req.MaxPieces > h.limits.MaxPieces {
		return errs.Warnf("max_pieces must be between 1 and %d", h.limits.MaxPieces)
	}
	return nil
}
