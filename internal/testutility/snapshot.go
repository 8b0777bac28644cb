package testutility

import (
	"regexp"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

var serverURLPattern = regexp.MustCompile(`http://127\.0\.0\.1:\d+`)

type Snapshot struct{}

// NewSnapshot creates a snapshot that can be passed around within tests
func NewSnapshot() Snapshot {
	return Snapshot{}
}

// MatchText asserts the existing snapshot matches what was gotten in the test,
// with the address of any mock server replaced by "<server>"
func (s Snapshot) MatchText(t *testing.T, got string) {
	t.Helper()

	snaps.MatchSnapshot(t, serverURLPattern.ReplaceAllString(got, "<server>"))
}

// CleanSnapshots ensures that snapshots are relevant and sorted for consistency
func CleanSnapshots(m *testing.M) {
	_, _ = snaps.Clean(m, snaps.CleanOpts{Sort: true})
}
