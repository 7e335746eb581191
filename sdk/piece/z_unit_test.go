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

package piece

import "testing"

func countCells(m Matrix) int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

func TestCatalogShapes(t *testing.T) {
	for _, k := range Kinds() {
		for r := 0; r < States(k); r++ {
			m := Shape(k, r)
			if got := countCells(m); got != 4 {
				t.Fatalf("%s rot %d has %d cells", k, r, got)
			}
			for _, row := range m {
				if len(row) != m.Size() {
					t.Fatalf("%s rot %d is not square", k, r)
				}
			}
			if len(Offsets(k, r)) != 4 {
				t.Fatalf("%s rot %d offsets mismatch", k, r)
			}
		}
	}
	if States(O) != 1 || Size(O) != 2 {
		t.Fatalf("O should have one 2x2 state")
	}
	if States(I) != 4 || Size(I) != 4 {
		t.Fatalf("I should have four 4x4 states")
	}
	if States(T) != 4 || Size(T) != 3 {
		t.Fatalf("T should have four 3x3 states")
	}
}

func TestShapeRotationModulo(t *testing.T) {
	if &Shape(T, 5)[0][0] != &Shape(T, 1)[0][0] {
		t.Fatalf("rot 5 should equal rot 1")
	}
	if &Shape(T, -1)[0][0] != &Shape(T, 3)[0][0] {
		t.Fatalf("rot -1 should equal rot 3")
	}
	if &Shape(O, 3)[0][0] != &Shape(O, 0)[0][0] {
		t.Fatalf("O rotation should always be state 0")
	}
}

func TestIShapeRows(t *testing.T) {
	m := Shape(I, 0)
	for x := 0; x < 4; x++ {
		if !m[1][x] || m[0][x] || m[2][x] {
			t.Fatalf("I rot 0 should fill row 1 only")
		}
	}
	m = Shape(I, 1)
	for y := 0; y < 4; y++ {
		if !m[y][1] {
			t.Fatalf("I rot 1 should fill column 1")
		}
	}
}

func TestColorAndParse(t *testing.T) {
	want := map[Kind]string{I: "bg-rose-400", J: "bg-rose-500", L: "bg-rose-600", O: "bg-rose-300", S: "bg-rose-700", T: "bg-rose-800", Z: "bg-rose-900"}
	for k, c := range want {
		if Color(k) != c {
			t.Fatalf("%s color %s, want %s", k, Color(k), c)
		}
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseKind(%s) = %v,%v", k, got, ok)
		}
	}
	if _, ok := ParseKind("X"); ok {
		t.Fatalf("X is not a kind")
	}
	if k, ok := ParseKind(" t "); !ok || k != T {
		t.Fatalf("lowercase parse failed")
	}
}

func TestUnknownKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown kind")
		}
	}()
	Shape(Kind(42), 0)
}

func TestPieceCellsAndMoves(t *testing.T) {
	p := Piece{Kind: O, X: 4, Y: -2}
	var got [][2]int
	for x, y := range p.Cells() {
		got = append(got, [2]int{x, y})
	}
	want := [][2]int{{4, -2}, {5, -2}, {4, -1}, {5, -1}}
	if len(got) != len(want) {
		t.Fatalf("cells = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cells = %v, want %v", got, want)
		}
	}
	q := p.Moved(-1, 3)
	if q.X != 3 || q.Y != 1 || p.X != 4 {
		t.Fatalf("Moved should copy: %v %v", p, q)
	}
	r := Piece{Kind: I, Rot: 3}.Rotated()
	if r.Rot != 0 {
		t.Fatalf("I rot 3 -> %d", r.Rot)
	}
	if w, h := Dims(I); w != 4 || h != 4 {
		t.Fatalf("I dims %d,%d", w, h)
	}
}
