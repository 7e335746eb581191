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

package netsvr

import (
	"net/http"

	"github.com/zintix-labs/blocklab/server/app"
)

// NetSvr 封裝「路由行為 + 服務啟停」的抽象介面。
//   - 只暴露給最外層組裝使用，其他層只需面向 NetRouter。
//   - 目前實作基於標準庫 net/http + chi；換框架時只要提供相容 net/http handler 的實作。
//   - NetSvr 本身實作了 app.Component，可以直接交給 app.App 管理生命週期。
type NetSvr interface {
	NetRouter
	app.Component
	// Handler 回傳根 handler（httptest 用）。
	Handler() http.Handler
}

// NetRouter 定義純路由行為；Group 回呼只會拿到 NetRouter，看不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
