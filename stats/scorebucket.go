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

package stats

import "sort"

// 分數分桶的左邊界；最後一桶為 [100000,+inf)。
var scoreEdges = []int{0, 1000, 2500, 5000, 10000, 25000, 50000, 100000}

var scoreLabels = []string{"[0,1000)", "[1000,2500)", "[2500,5000)", "[5000,10000)", "[10000,25000)", "[25000,50000)", "[50000,100000)", "[100000,+inf)"}

// ScoreBucketStr 回傳分桶標籤（拷貝）。
func ScoreBucketStr() []string {
	return append([]string(nil), scoreLabels...)
}

// ScoreBucketIndex 回傳 score 所在的桶索引；負分視為 0。
func ScoreBucketIndex(score int) int {
	if score < 0 {
		score = 0
	}
	// 第一個 > score 的邊界，往前一格即為所在桶
	return sort.SearchInts(scoreEdges, score+1) - 1
}
