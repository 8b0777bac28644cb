package clair

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"
)

// Finding is one vulnerability of one feature, normalised across the Clair
// APIs.
type Finding struct {
	CVE         string
	Severity    string
	FixedBy     string
	Description string
	Link        string
	// Metadata is always a JSON object, empty when Clair sent none or sent
	// something that could not be decoded.
	Metadata gjson.Result

	Feature string
	Version string
	// Layer is the layer that introduced the feature.
	Layer string
}

func newFinding(vuln, feature CIMap, fixedByKey, layer string) Finding {
	metadata, _ := vuln.Get("Metadata")

	return Finding{
		CVE:         vuln.String("Name"),
		Severity:    vuln.String("Severity"),
		FixedBy:     vuln.String(fixedByKey),
		Description: vuln.String("Description"),
		Link:        vuln.String("Link"),
		Metadata:    decodeMetadata(metadata),
		Feature:     feature.String("Name"),
		Version:     feature.String("Version"),
		Layer:       layer,
	}
}

var emptyMetadata = gjson.Parse("{}")

// decodeMetadata accepts both a JSON encoded string and an already decoded
// object.
func decodeMetadata(v any) gjson.Result {
	var raw []byte
	switch m := v.(type) {
	case string:
		raw = []byte(m)
	case map[string]any:
		var err error
		if raw, err = json.Marshal(m); err != nil {
			return emptyMetadata
		}
	default:
		return emptyMetadata
	}

	if !gjson.ValidBytes(raw) {
		return emptyMetadata
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return emptyMetadata
	}

	return parsed
}

// Fixable reports whether a fixed version is known.
func (f Finding) Fixable() bool {
	return f.FixedBy != ""
}

// Vectors returns the NVD CVSSv2 vector, if any.
func (f Finding) Vectors() string {
	return f.Metadata.Get("NVD.CVSSv2.Vectors").String()
}

// Score returns the NVD CVSSv2 score, computing it from the vector when only
// the vector is known. It is "" when neither is usable.
func (f Finding) Score() string {
	if score := f.Metadata.Get("NVD.CVSSv2.Score"); score.Exists() {
		return score.String()
	}

	if score, ok := baseScore(f.Vectors()); ok {
		return strconv.FormatFloat(score, 'f', 1, 64)
	}

	return ""
}

// Statistics counts fixable findings by severity, leaving out whitelisted
// CVEs.
func Statistics(findings []Finding, whitelisted func(cve string) bool) map[string]int {
	stats := make(map[string]int)
	for _, f := range findings {
		if !f.Fixable() || whitelisted(f.CVE) {
			continue
		}
		stats[f.Severity]++
	}

	return stats
}

// Row is a line of a vulnerability report.
type Row struct {
	ID          int
	CVE         string
	Severity    string
	Package     string
	Current     string
	Fixed       string
	Introduced  string
	Description string
	Link        string
	Vectors     map[string]string
	Score       string
}

// Columns returns the row keyed by report column name, as handed to html
// templates.
func (r Row) Columns() map[string]any {
	return map[string]any{
		"ID":          r.ID,
		"CVE":         r.CVE,
		"SEVERITY":    r.Severity,
		"PACKAGE":     r.Package,
		"CURRENT":     r.Current,
		"FIXED":       r.Fixed,
		"INTRODUCED":  r.Introduced,
		"DESCRIPTION": r.Description,
		"LINK":        r.Link,
		"VECTORS":     r.Vectors,
		"SCORE":       r.Score,
	}
}

// BuildRows turns every non whitelisted finding into a report row,
// numbered from 1.
func BuildRows(findings []Finding, whitelisted func(cve string) bool) []Row {
	rows := make([]Row, 0, len(findings))
	for _, f := range findings {
		if whitelisted(f.CVE) {
			continue
		}

		rows = append(rows, Row{
			ID:          len(rows) + 1,
			CVE:         f.CVE,
			Severity:    f.Severity,
			Package:     f.Feature,
			Current:     f.Version,
			Fixed:       f.FixedBy,
			Introduced:  f.Layer,
			Description: f.Description,
			Link:        f.Link,
			Vectors:     SplitVectors(f.Vectors()),
			Score:       f.Score(),
		})
	}

	return rows
}

// CountRows counts rows by severity.
func CountRows(rows []Row) map[string]int {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Severity]++
	}

	return counts
}
