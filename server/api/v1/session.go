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
	"log/slog"
	"net/http"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/dto"
	"github.com/zintix-labs/blocklab/server/httperr"
)

// SessionHandler 管理 Runtime 上的 Session（建立、操作、存檔、移除、ws）。
type SessionHandler struct {
	lab *blocklab.Blocklab
	rt  *blocklab.Runtime
	log *slog.Logger
}

func NewSessionHandler(lab *blocklab.Blocklab, rt *blocklab.Runtime, log *slog.Logger) *SessionHandler {
	return &SessionHandler{lab: lab, rt: rt, log: log}
}

type CreateResponse struct {
	ID       string       `json:"id"`
	Seed     int64        `json:"seed"`
	Snapshot dto.Snapshot `json:"snapshot"`
}

type CheckpointResponse struct {
	ID         string `json:"id"`
	Checkpoint string `json:"checkpoint"`
}

// Create POST /v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeCreateRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	var s *blocklab.Session
	var resp CreateResponse
	if req.Checkpoint != "" {
		id, ss, err := h.rt.CreateFromCheckpoint(r.Context(), req.Checkpoint)
		if err != nil {
			httperr.Log(h.log, "create session from checkpoint", err)
			httperr.Errs(w, err)
			return
		}
		resp.ID, s = id.String(), ss
	} else {
		rid, err := resolveRule(h.lab, req.RID, req.Rule)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		id, ss, err := h.rt.Create(r.Context(), rid, req.Seed)
		if err != nil {
			httperr.Log(h.log, "create session", err)
			httperr.Errs(w, err)
			return
		}
		resp.ID, s = id.String(), ss
	}
	resp.Seed = s.Seed()
	resp.Snapshot = s.Snapshot()
	writeJSON(w, http.StatusCreated, resp)
}

// Get GET /v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	snap, err := h.rt.Snapshot(id)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Command POST /v1/sessions/{id}/commands
func (h *SessionHandler) Command(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	cmd, err := dto.DecodeCommandRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	snap, err := h.rt.Do(r.Context(), id, cmd)
	if err != nil {
		httperr.Log(h.log, "session command", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Checkpoint GET /v1/sessions/{id}/checkpoint
func (h *SessionHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	cp, err := h.rt.Checkpoint(id)
	if err != nil {
		httperr.Log(h.log, "session checkpoint", err)
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckpointResponse{ID: id.String(), Checkpoint: cp})
}

// Restore PUT /v1/sessions/{id}/checkpoint：以 checkpoint 覆蓋既有 Session。
func (h *SessionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	req, err := dto.DecodeCheckpointRequest(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	s, ok := h.rt.Get(id)
	if !ok {
		httperr.Errs(w, blocklab.ErrSessionNotFound)
		return
	}
	if err := s.RestoreCheckpoint(req.Checkpoint); err != nil {
		httperr.Errs(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Delete DELETE /v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if !h.rt.Remove(id) {
		httperr.Errs(w, blocklab.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
