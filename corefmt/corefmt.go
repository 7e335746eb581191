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

// Package corefmt 負責 checkpoint 等二進位資料在文字通道上的編碼。
package corefmt

import (
	"encoding/base64"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/blocklab/errs"
)

// MaxBlobBytes 為解壓縮後的上限，避免不受信任的 checkpoint 造成大量配置。
const MaxBlobBytes = 4 << 20

// zstd encoder/decoder 皆可並發使用 EncodeAll/DecodeAll，整個行程共用一份。
var (
	zenc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	zdec, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(MaxBlobBytes))
)

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.WrapAs(errs.Warn, err, "decode base64url failed")
	}
	return b, nil
}

// Compress 以 zstd 壓縮 b。
func Compress(b []byte) []byte {
	return zenc.EncodeAll(b, make([]byte, 0, len(b)/2+16))
}

// Decompress 解開 Compress 的輸出；格式錯誤或超過 MaxBlobBytes 回傳 Warn。
func Decompress(b []byte) ([]byte, error) {
	out, err := zdec.DecodeAll(b, nil)
	if err != nil {
		return nil, errs.WrapAs(errs.Warn, err, "zstd decode failed")
	}
	return out, nil
}
