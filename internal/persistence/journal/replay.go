package journal

import (
	"errors"
	"fmt"

	"github.com/WirelessLan/AAFDynamicPositioner/internal/positioner"
)

// ErrDigestMismatch reports a replayed registry that diverged from the journal.
var ErrDigestMismatch = errors.New("digest mismatch")

type ReplayOptions struct {
	FromSeq uint64
	ToSeq   uint64 // 0 = no upper bound
}

type ReplayStats struct {
	Applied  int
	Checked  int
	Restarts int
	LastSeq  uint64
}

// Replay feeds the commands journaled in dir to reg in order and compares the registry
// digest after each one. A sequence that starts over at 1 marks a server restart and resets
// the registry. Entries outside [FromSeq, ToSeq] are applied but not checked.
func Replay(dir string, reg *positioner.Registry, opts ReplayOptions) (ReplayStats, error) {
	var st ReplayStats
	var prev uint64
	err := ReadDir(dir, func(e positioner.Entry) error {
		switch {
		case e.Seq == 1 && prev != 0:
			reg.Reset()
			st.Restarts++
		case prev != 0 && e.Seq != prev+1:
			return fmt.Errorf("sequence gap: %d after %d", e.Seq, prev)
		}
		prev = e.Seq
		st.LastSeq = e.Seq

		if _, err := reg.Apply(e.Command); err != nil {
			return fmt.Errorf("seq %d %s: %w", e.Seq, e.Command.Kind, err)
		}
		st.Applied++

		if e.Seq < opts.FromSeq || (opts.ToSeq != 0 && e.Seq > opts.ToSeq) {
			return nil
		}
		if got := reg.Digest(); got != e.Digest {
			return fmt.Errorf("%w at seq %d (%s): got=%s want=%s", ErrDigestMismatch, e.Seq, e.Command.Kind, got, e.Digest)
		}
		st.Checked++
		return nil
	})
	return st, err
}
