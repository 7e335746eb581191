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

// Package httperr 把引擎錯誤映射成 HTTP 回應。
//
// 放在 server/* 而不是 errs，避免核心錯誤包依賴 net/http。
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/errs"
)

// Body 為錯誤回應的 JSON 形狀。
type Body struct {
	Error string `json:"error"`
	Level string `json:"level"`
}

// StatusCode 將錯誤映射成 HTTP status code。
//
//   - ctx timeout/cancel      → 504/408
//   - session 不存在            → 404
//   - runtime 已滿             → 429
//   - errs.Warn / errs.Log    → 400
//   - errs.Fatal / 非 *errs.E → 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, blocklab.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, blocklab.ErrRuntimeFull):
		return http.StatusTooManyRequests
	}
	switch errs.LevelOf(err) {
	case errs.Warn, errs.Log:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Errs 寫回 JSON 錯誤；err 為 nil 時不做事。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	Write(w, StatusCode(err), err.Error(), errs.LevelOf(err).String())
}

// Write 直接以指定狀態碼寫回 JSON 錯誤。
func Write(w http.ResponseWriter, status int, msg string, level string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Error: msg, Level: level})
}

// Log 依狀態碼決定記錄等級：客戶端可自行處理的 4xx 不記錄。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	switch status := StatusCode(err); {
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		log.Warn(msg, slog.Any("err", err), slog.Int("status", status))
	case status >= 500:
		log.Error(msg, slog.Any("err", err), slog.Int("status", status))
	}
}
