package licenseserver

import (
	"strings"

	"license-agent/core/models"
)

// Parser turns the raw output of a vendor query tool into a report.
// Parse is total: lines it does not recognize are skipped.
type Parser interface {
	Parse(raw string) *models.ServerReport
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(raw string) *models.ServerReport

func (f ParserFunc) Parse(raw string) *models.ServerReport {
	return f(raw)
}

// Registry returns the parser of every supported server type.
func Registry() map[models.ServerType]Parser {
	return map[models.ServerType]Parser{
		models.ServerTypeFlexLM:   ParserFunc(ParseFlexLM),
		models.ServerTypeRLM:      ParserFunc(ParseRLM),
		models.ServerTypeLMX:      ParserFunc(ParseLMX),
		models.ServerTypeLSDyna:   ParserFunc(ParseLSDyna),
		models.ServerTypeOLicense: ParserFunc(ParseOLicense),
		models.ServerTypeDSLS:     ParserFunc(ParseDSLS),
	}
}

// Lookup returns the parser for t.
func Lookup(t models.ServerType) (Parser, bool) {
	p, ok := Registry()[t]
	return p, ok
}

func lines(raw string) []string {
	out := strings.Split(raw, "\n")
	for i, l := range out {
		out[i] = strings.TrimRight(l, "\r")
	}
	return out
}

// addCount accumulates the vendor totals of a feature. Pools of the same
// feature (different versions) add up.
func addCount(r *models.ServerReport, feature string, total, used int) {
	fc := r.Features[feature]
	fc.Total += total
	fc.Used += max(used, 0)
	r.Features[feature] = fc
}

func addRecord(r *models.ServerReport, feature, user, host string, qty int) {
	if feature == "" || user == "" || host == "" || qty < 0 {
		return
	}
	r.Records = append(r.Records, models.UsageRecord{
		Feature:  feature,
		User:     user,
		LeadHost: host,
		Quantity: qty,
	})
}
