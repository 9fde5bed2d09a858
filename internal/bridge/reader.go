// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bufio"
	"io"
)

const maxScanTokenSize = 1024 * 1024 // 1 MB

// readLoop consumes the renderer's merged stdout/stderr for the
// lifetime of one process generation. Every line is appended verbatim
// to the log ring buffer, then classified; recognized prompts
// transition the awaiting flag. Unrecognized lines are just progress
// noise and cause no transition. The loop terminates silently at EOF,
// which is how process death is observed.
func (b *Bridge) readLoop(gen uint64, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		// A superseded loop must not leak the old process's output
		// into the log the new session is writing to.
		if !b.current(gen) {
			return
		}

		line := scanner.Text()
		if b.logBuf != nil {
			b.logBuf.Write(line)
		}

		switch b.classifier.Classify(line) {
		case SignalAwaitImage:
			// Image requests clear any pending primary/secondary state.
			b.setAwaiting(gen, SignalAwaitImage)
		case SignalAwaitPrimary:
			b.setAwaiting(gen, SignalAwaitPrimary)
		case SignalAwaitSecondary:
			b.setAwaiting(gen, SignalAwaitSecondary)
		}
	}
	// EOF or read error: the process is gone. The writer loop is not
	// blocked on us; it polls with a bounded interval and exits via the
	// stop channel or a failed write.
}
