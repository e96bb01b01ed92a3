package task

import (
	"strings"

	"github.com/Qudix/mob/internal/config"
)

// CleanFlags is a bitmask describing which cleanup sub-steps a task's clean
// phase should perform.
type CleanFlags int

const (
	CleanNothing     CleanFlags = 0
	CleanRedownload  CleanFlags = 1 << 0
	CleanReextract   CleanFlags = 1 << 1
	CleanReconfigure CleanFlags = 1 << 2
	CleanRebuild     CleanFlags = 1 << 3
)

// Has reports whether every bit of f is set in c.
func (c CleanFlags) Has(f CleanFlags) bool {
	return c&f == f
}

// String returns the pipe-joined names of the set flags, in the order
// redownload, reextract, reconfigure, rebuild. CleanNothing yields "".
func (c CleanFlags) String() string {
	var v []string

	if c.Has(CleanRedownload) {
		v = append(v, "redownload")
	}
	if c.Has(CleanReextract) {
		v = append(v, "reextract")
	}
	if c.Has(CleanReconfigure) {
		v = append(v, "reconfigure")
	}
	if c.Has(CleanRebuild) {
		v = append(v, "rebuild")
	}

	return strings.Join(v, "|")
}

// MakeCleanFlags combines the clean sub-flags selected by the global
// configuration into one bitmask.
func MakeCleanFlags(g config.Globals) CleanFlags {
	c := CleanNothing

	if g.Redownload {
		c |= CleanRedownload
	}
	if g.Reextract {
		c |= CleanReextract
	}
	if g.Reconfigure {
		c |= CleanReconfigure
	}
	if g.Rebuild {
		c |= CleanRebuild
	}

	return c
}
