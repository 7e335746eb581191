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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/blocklab"
	"github.com/zintix-labs/blocklab/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errs.Wrap(context.Canceled, "req"), http.StatusRequestTimeout},
		{blocklab.ErrSessionNotFound, http.StatusNotFound},
		{errs.Wrap(blocklab.ErrRuntimeFull, "capacity 1"), http.StatusTooManyRequests},
		{errs.NewWarn("bad"), http.StatusBadRequest},
		{errs.NewFatal("broken"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("%v: got %d want %d", c.err, got, c.want)
		}
	}
}

func TestErrsWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.NewWarn("bad cmd"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code %d", rec.Code)
	}
	var b Body
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("body: %v", err)
	}
	if b.Level != errs.Warn.String() || b.Error == "" {
		t.Fatalf("body: %+v", b)
	}
	rec = httptest.NewRecorder()
	Errs(rec, nil)
	if rec.Body.Len() != 0 {
		t.Fatalf("nil error should write nothing")
	}
}
