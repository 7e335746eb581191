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
	"github.com/zintix-labs/blocklab/server/httperr"
)

type RulesHandler struct {
	lab *blocklab.Blocklab
}

func NewRulesHandler(lab *blocklab.Blocklab) *RulesHandler {
	return &RulesHandler{lab: lab}
}

// List GET /v1/rules
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	sum, err := h.lab.Summaries()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": sum})
}
