package licenseserver

import (
	"regexp"

	"license-agent/core/models"
	"license-agent/core/utils"
)

var (
	flexlmHeader = regexp.MustCompile(`^\s*Users of ([^:\s]+):\s+\(Total of (\d+) licenses? issued;\s+Total of (\d+) licenses? in use\)`)
	flexlmUsers  = regexp.MustCompile(`^\s*Users of `)
	flexlmUsage  = regexp.MustCompile(`^\s*(\S+)\s+(\S+)(?:\s+\S+)?\s+\(v[^)]*\)\s+\([^)]*\),\s*start\s+\w+\s+\d{1,2}/\d{1,2}\s+\d{1,2}:\d{2}(?:,\s*(\d+)\s+licenses?)?`)
)

// ParseFlexLM parses `lmutil lmstat -a`. Checkout lines belong to the
// preceding "Users of" header and count one license unless stated otherwise.
func ParseFlexLM(raw string) *models.ServerReport {
	report := models.NewServerReport()
	current := ""

	for _, line := range lines(raw) {
		if m := flexlmHeader.FindStringSubmatch(line); m != nil {
			total, ok1 := utils.ToInt(m[2])
			used, ok2 := utils.ToInt(m[3])
			if !ok1 || !ok2 {
				current = ""
				continue
			}
			current = m[1]
			addCount(report, current, total, used)
			continue
		}
		if flexlmUsers.MatchString(line) {
			// Uncounted or errored feature.
			current = ""
			continue
		}
		if current == "" {
			continue
		}
		m := flexlmUsage.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, ok := utils.ToIntDefault(m[3], 1)
		if !ok {
			continue
		}
		addRecord(report, current, m[1], m[2], qty)
	}

	return report
}
