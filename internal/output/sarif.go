package output

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/version"
)

// sarifLevel maps a Clair severity to a SARIF result level.
func sarifLevel(severity string) string {
	switch strings.ToLower(severity) {
	case "defcon1", "critical", "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "note"
	}
}

// PrintSARIFReport prints report rows as a SARIF log. artifact locates the
// analysed resource, usually an image package url.
func PrintSARIFReport(w io.Writer, artifact string, rows []clair.Row) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}

	run := sarif.NewRunWithInformationURI("paclair", "https://github.com/paclair/paclair")
	run.Tool.Driver.WithVersion(version.PaclairVersion)
	run.AddDistinctArtifact(artifact)

	byCVE := make(map[string][]clair.Row)
	for _, r := range rows {
		byCVE[r.CVE] = append(byCVE[r.CVE], r)
	}

	// Sort the IDs to have deterministic rules
	cves := make([]string, 0, len(byCVE))
	for cve := range byCVE {
		cves = append(cves, cve)
	}
	slices.Sort(cves)

	for _, cve := range cves {
		first := byCVE[cve][0]

		rule := run.AddRule(cve).
			WithName(cve).
			WithShortDescription(sarif.NewMultiformatMessageString(cve + " (" + first.Severity + ")")).
			WithFullDescription(sarif.NewMultiformatMessageString(first.Description))
		if first.Link != "" {
			rule.WithHelpURI(first.Link)
		}

		for _, r := range byCVE[cve] {
			message := fmt.Sprintf("Package '%s@%s' is vulnerable to '%s'", r.Package, r.Current, cve)
			if r.Fixed != "" {
				message += fmt.Sprintf(", fixed in '%s'", r.Fixed)
			}
			if r.Introduced != "" {
				message += fmt.Sprintf(" (introduced by layer %s)", r.Introduced)
			}

			run.CreateResultForRule(cve).
				WithLevel(sarifLevel(r.Severity)).
				WithMessage(sarif.NewTextMessage(message + ".")).
				AddLocation(
					sarif.NewLocationWithPhysicalLocation(
						sarif.NewPhysicalLocation().
							WithArtifactLocation(sarif.NewSimpleArtifactLocation(artifact)),
					))
		}
	}

	report.AddRun(run)

	if err := report.PrettyWrite(w); err != nil {
		return err
	}
	fmt.Fprintln(w)

	return nil
}
