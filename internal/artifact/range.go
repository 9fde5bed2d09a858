// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// chunkSize bounds how much of the artifact is held in memory at once
// while streaming.
const chunkSize = 1 << 20 // 1 MiB

// byteRange is a half-open request clamped to the artifact size.
type byteRange struct {
	start, end int64 // inclusive
	partial    bool  // true when the client actually asked for a range
}

// parseRange interprets a Range header against size. The artifact can
// shrink or rotate at any moment, so malformed or unsatisfiable ranges
// degrade to the whole file rather than a 416.
func parseRange(header string, size int64) byteRange {
	whole := byteRange{start: 0, end: size - 1}
	if header == "" || size <= 0 {
		return whole
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return whole
	}
	// Only the first range of a multi-range request is honored.
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return whole
	}

	if startStr == "" {
		// Suffix form: last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return whole
		}
		if n > size {
			n = size
		}
		return byteRange{start: size - n, end: size - 1, partial: true}
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return whole
	}
	end := size - 1
	if endStr != "" {
		e, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return whole
		}
		end = e
	}

	// Clamp instead of rejecting.
	if start > size-1 {
		start = size - 1
	}
	if end > size-1 {
		end = size - 1
	}
	if end < start {
		return whole
	}
	return byteRange{start: start, end: end, partial: true}
}

// ServeRange streams a byte range of the artifact to the client:
// 206 with Content-Range when a range was requested, 200 otherwise.
// The response is marked non-cacheable since the file is volatile, and
// a short read mid-stream ends the response rather than erroring.
func ServeRange(w http.ResponseWriter, r *http.Request, info Info) {
	f, err := os.Open(info.Path)
	if err != nil {
		http.Error(w, "artifact not available", http.StatusNotFound)
		return
	}
	defer f.Close()

	rng := parseRange(r.Header.Get("Range"), info.Size)
	length := rng.end - rng.start + 1
	if info.Size == 0 {
		length = 0
	}

	contentType := mime.TypeByExtension(filepath.Ext(info.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))

	if rng.partial {
		w.Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, info.Size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead || length == 0 {
		return
	}

	if _, err := f.Seek(rng.start, io.SeekStart); err != nil {
		return
	}

	remaining := length
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := f.Read(buf[:n])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return // Client went away
			}
			remaining -= int64(read)
		}
		if err != nil {
			// EOF before the promised length means the file was
			// truncated or rotated under us. End of stream, not an
			// error.
			return
		}
	}
}
