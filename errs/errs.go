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

// Package errs 提供 blocklab 統一的分級錯誤型別。
//
// 遊戲核心（sdk/*）的玩家操作永遠不回傳錯誤：非法移動、暫停中的指令都是靜默 no-op。
// 錯誤只出現在邊界：設定檔解析、checkpoint 還原、runtime 與 HTTP。
package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None  ErrLevel = iota
	Fatal          // 狀態不可信：session 需淘汰、設定不可用
	Warn           // 請求/參數問題：呼叫端可修正
	Log            // 僅供紀錄
)

// String 回傳分級名稱。
func (l ErrLevel) String() string {
	switch l {
	case Fatal:
		return "fatal"
	case Warn:
		return "warn"
	case Log:
		return "log"
	default:
		return ""
	}
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端追加的上下文；Cause 串接下層錯誤（wrap）。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

// Error 實作 error 介面。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", e.ErrLv, e.Message)
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E { return New(Fatal, msg) }

func NewWarn(msg string) *E { return New(Warn, msg) }

func Fatalf(format string, a ...any) *E { return NewFatal(fmt.Sprintf(format, a...)) }

func Warnf(format string, a ...any) *E { return NewWarn(fmt.Sprintf(format, a...)) }

// Wrap 以訊息包裝底層錯誤。
//
// ErrLevel 規則：
//   - cause 已經是 *E：沿用其 ErrLv（保持原本嚴重度）。
//   - cause 來自標準庫或三方依賴：一律視為 Fatal。
//
// 若已判斷是「可預期且可處理」的情境，請直接用 New / NewWarn 建立，而不是 Wrap。
func Wrap(cause error, msg string) *E {
	r := New(LevelOf(cause), msg)
	r.Cause = cause
	return r
}

// WrapAs 以指定分級包裝底層錯誤；用於「已知是呼叫端輸入問題」的三方錯誤（例如 base64 解碼失敗）。
func WrapAs(errLv ErrLevel, cause error, msg string) *E {
	r := New(errLv, msg)
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，並附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

// LevelOf 回傳錯誤鏈上第一個 *E 的分級；非 *E 的錯誤視為 Fatal，nil 為 None。
func LevelOf(err error) ErrLevel {
	if err == nil {
		return None
	}
	var e *E
	if errors.As(err, &e) {
		return e.ErrLv
	}
	return Fatal
}

// IsFatal 判斷錯誤是否代表「狀態不可信」。
func IsFatal(err error) bool {
	return err != nil && LevelOf(err) == Fatal
}
