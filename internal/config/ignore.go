package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/paclair/paclair/internal/cmdlogger"
)

// IgnoreFile lists vulnerabilities to leave out of reports, possibly for a
// limited time.
type IgnoreFile struct {
	IgnoredVulns []*IgnoreEntry `toml:"IgnoredVulns"`

	// The path to the file this was loaded from
	LoadPath string `toml:"-"`
}

type IgnoreEntry struct {
	ID          string    `toml:"id"`
	IgnoreUntil time.Time `toml:"ignoreUntil,omitempty"`
	Reason      string    `toml:"reason,omitempty"`
}

// LoadIgnoreFile parses the ignore file at path, rejecting unknown keys.
func LoadIgnoreFile(path string) (IgnoreFile, error) {
	var file IgnoreFile
	m, err := toml.DecodeFile(path, &file)
	if err != nil {
		return IgnoreFile{}, err
	}

	if unknownKeys := m.Undecoded(); len(unknownKeys) > 0 {
		keys := make([]string, 0, len(unknownKeys))
		for _, key := range unknownKeys {
			keys = append(keys, key.String())
		}

		return IgnoreFile{}, fmt.Errorf("unknown keys in ignore file %s: %s", path, strings.Join(keys, ", "))
	}

	file.LoadPath = path
	file.warnAboutDuplicates()

	return file, nil
}

func (f IgnoreFile) ShouldIgnore(vulnID string) (bool, *IgnoreEntry) {
	index := slices.IndexFunc(f.IgnoredVulns, func(e *IgnoreEntry) bool { return e.ID == vulnID })
	if index == -1 {
		return false, &IgnoreEntry{}
	}
	ignoredLine := f.IgnoredVulns[index]

	return shouldIgnoreTimestamp(ignoredLine.IgnoreUntil), ignoredLine
}

// Active returns the IDs that are currently ignored.
func (f IgnoreFile) Active() []string {
	active := make([]string, 0, len(f.IgnoredVulns))
	for _, entry := range f.IgnoredVulns {
		if slices.Contains(active, entry.ID) {
			continue
		}

		if ignore, line := f.ShouldIgnore(entry.ID); ignore {
			cmdlogger.Debugf("%s is ignored because: %s", line.ID, line.Reason)
			active = append(active, entry.ID)
		}
	}

	return active
}

func shouldIgnoreTimestamp(ignoreUntil time.Time) bool {
	if ignoreUntil.IsZero() {
		// If IgnoreUntil is not set, should ignore.
		return true
	}
	// Should ignore if IgnoreUntil is still after current time
	// Takes timezone offsets into account if it is specified. otherwise it's using local time
	return ignoreUntil.After(time.Now())
}

func (f *IgnoreFile) warnAboutDuplicates() {
	seen := make(map[string]struct{})

	for _, vuln := range f.IgnoredVulns {
		if _, ok := seen[vuln.ID]; ok {
			cmdlogger.Warnf("warning: %s has multiple ignores for %s - only the first will be used!", f.LoadPath, vuln.ID)
		}
		seen[vuln.ID] = struct{}{}
	}
}
