package journal

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/outpostdns/outpost/pkg/kv"
)

// CheckVerbosity gates how much of Check's progress is logged; the returned
// CheckReport is unaffected by it.
type CheckVerbosity int

const (
	// CheckSilent logs nothing.
	CheckSilent CheckVerbosity = iota
	// CheckWarn logs each detected Inconsistency at warn level.
	CheckWarn
	// CheckInfo additionally logs an informational trace of metadata and
	// per-changeset progress.
	CheckInfo
)

// Inconsistency describes one invariant violation found by Check.
// ChunkIndex holds the 1-based position of the offending changeset in the
// chain walk, not a chunk index within a changeset; it is 0 for findings
// not tied to one changeset.
type Inconsistency struct {
	ChunkIndex int
	Serial     uint32
	Message    string
}

// CheckReport is the structured result of a read-only invariant walk.
type CheckReport struct {
	Inconsistencies []Inconsistency
	TotalBytes      int64
	ChangesetCount  int
}

// OK reports whether the journal passed every invariant check.
func (r CheckReport) OK() bool { return len(r.Inconsistencies) == 0 }

// Check validates invariants I1-I4 and I6 against the journal's current
// state without mutating anything. I5 (the merged changeset's serial_to
// linking into the main chain) is not checked.
func (h *Handle) Check(verbosity CheckVerbosity) (CheckReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.opened {
		return CheckReport{}, fmt.Errorf("%w: journal not open", ErrInval)
	}

	var report CheckReport
	err := h.withTxn(false, func(c *ctx) error {
		r, err := checkInvariants(c, h.log, verbosity)
		report = r
		return err
	})
	if err != nil {
		return CheckReport{}, err
	}
	return report, nil
}

func checkInvariants(c *ctx, log zerolog.Logger, verbosity CheckVerbosity) (CheckReport, error) {
	var report CheckReport
	m := c.shadow

	if verbosity >= CheckInfo {
		log.Info().
			Bool("serial_to_valid", m.serialToValid()).
			Uint32("first_serial", m.firstSerial).
			Uint32("last_serial", m.lastSerial).
			Uint32("last_serial_to", m.lastSerialTo).
			Bool("merged_valid", m.mergedSerialValid()).
			Msg("journal metadata")
	}

	// I4: merged validity matches presence of exactly one changeset.
	mergedCount, err := c.count(kv.BucketMerged)
	if err != nil {
		return report, err
	}
	if m.mergedSerialValid() && mergedCount != 1 {
		report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
			Serial:  m.mergedSerial,
			Message: fmt.Sprintf("MERGED_SERIAL_VALID set but merged bucket holds %d keys, want 1", mergedCount),
		})
	}
	if !m.mergedSerialValid() && mergedCount != 0 {
		report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
			Message: fmt.Sprintf("MERGED_SERIAL_VALID clear but merged bucket holds %d keys, want 0", mergedCount),
		})
	}

	// I6: dirty serial must never be valid on a settled journal.
	if m.dirtySerialValid() {
		report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
			Serial:  m.dirtySerial,
			Message: "DIRTY_SERIAL_VALID set on an opened journal (cleanup did not run)",
		})
	}

	if !m.serialToValid() {
		dataCount, err := c.count(kv.BucketData)
		if err != nil {
			return report, err
		}
		if dataCount != 0 {
			report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
				Message: fmt.Sprintf("SERIAL_TO_VALID clear but data bucket holds %d keys, want 0", dataCount),
			})
		}
		return report, nil
	}

	// I1, I2: walk the main chain checking continuity and that
	// first/last_serial bound it correctly.
	idx := 0
	expect := m.firstSerial
	sawFirst := false
	sawLast := false
	err = walkChangesets(c, kv.BucketData, m.firstSerial, m.lastSerial, func(serialFrom uint32, h chunkHeader, chunks [][]byte) error {
		idx++
		report.ChangesetCount++
		for _, ch := range chunks {
			report.TotalBytes += int64(len(ch))
		}

		if serialFrom != expect {
			report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
				ChunkIndex: idx,
				Serial:     serialFrom,
				Message:    fmt.Sprintf("continuity break: expected serial_from %d, got %d", expect, serialFrom),
			})
		}
		if serialFrom == m.firstSerial {
			sawFirst = true
		}
		if serialFrom == m.lastSerial {
			sawLast = true
		}
		expect = h.serialTo

		if verbosity >= CheckInfo {
			log.Info().Int("index", idx).Uint32("serial_from", serialFrom).Uint32("serial_to", h.serialTo).Msg("changeset")
		}
		return nil
	})
	if err != nil {
		if verbosity >= CheckWarn {
			log.Warn().Err(err).Msg("journal check: walk failed")
		}
		report.Inconsistencies = append(report.Inconsistencies, Inconsistency{Message: err.Error()})
		return report, nil
	}

	// I3: last_flushed, if valid, must name a changeset in the chain (or
	// the merged changeset).
	if m.lastFlushedValid() && m.lastFlushed != m.mergedSerial {
		if _, err := c.find(kv.BucketData, firstChunkKey(m.lastFlushed)); err != nil {
			report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
				Serial:  m.lastFlushed,
				Message: "LAST_FLUSHED_VALID names a serial absent from the main chain",
			})
		}
	}

	if !sawFirst {
		report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
			Serial: m.firstSerial, Message: "first_serial not found while walking the chain",
		})
	}
	if !sawLast {
		report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
			Serial: m.lastSerial, Message: "last_serial not found while walking the chain",
		})
	}

	if verbosity >= CheckWarn {
		for _, inc := range report.Inconsistencies {
			log.Warn().Uint32("serial", inc.Serial).Msg(inc.Message)
		}
	}

	return report, nil
}
