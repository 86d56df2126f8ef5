// Package wire implements the frame codec: turning whatever bytes the
// upstream transport handed us into a JSON string, tolerating either
// plain UTF-8 JSON or brotli-compressed JSON, and never failing the
// pipeline — malformed input just yields "no frame here".
package wire

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/brotli"
)

// brotliWindow mirrors the 4 KiB decompression buffer the reference
// implementation uses; flashblock frames are small so this is never a
// throughput concern, just a sane default buffer size.
const brotliWindow = 4096

// Decode turns raw transport bytes into a JSON text payload. It first
// tries the UTF-8-JSON fast path (valid UTF-8, and after skipping
// leading whitespace the first rune is '{'); failing that it attempts
// streaming brotli decompression and re-validates the result as UTF-8.
// Returns ("", false) if neither succeeds — callers must treat that as
// "skip this frame", never as an error.
func Decode(data []byte) (string, bool) {
	if looksLikeJSON(data) {
		return string(data), true
	}

	br := bufio.NewReaderSize(brotli.NewReader(bytes.NewReader(data)), brotliWindow)
	decompressed, err := io.ReadAll(br)
	if err != nil || len(decompressed) == 0 {
		return "", false
	}
	if !utf8.Valid(decompressed) {
		return "", false
	}
	return string(decompressed), true
}

func looksLikeJSON(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}
