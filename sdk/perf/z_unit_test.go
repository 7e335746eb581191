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

package perf

import (
	"os"
	"testing"
)

func TestProfileNoneOnlyRuns(t *testing.T) {
	dir := t.TempDir()
	ran := false
	path, err := Profile(dir, ModeNone, func() { ran = true })
	if err != nil || path != "" || !ran {
		t.Fatalf("none: %q %v %v", path, err, ran)
	}
}

func TestProfileWritesFiles(t *testing.T) {
	for _, m := range []Mode{ModeCPU, ModeHeap, ModeAllocs} {
		dir := t.TempDir()
		path, err := Profile(dir, m, func() {
			s := make([]int, 0)
			for i := 0; i < 1000; i++ {
				s = append(s, i)
			}
			_ = s
		})
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		st, err := os.Stat(path)
		if err != nil || st.Size() == 0 {
			t.Fatalf("%s: profile not written: %v", m, err)
		}
	}
}
