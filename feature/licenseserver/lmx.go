package licenseserver

import (
	"regexp"

	"license-agent/core/models"
	"license-agent/core/utils"
)

var (
	lmxFeature = regexp.MustCompile(`^\s*Feature:\s+(\S+)\s+Version:`)
	lmxCount   = regexp.MustCompile(`^\s*(\d+)\s+of\s+(\d+)\s+license\(s\)\s+used`)
	lmxUsage   = regexp.MustCompile(`^\s*(\d+)\s+license\(s\)\s+used\s+by\s+([^@\s]+)@(\S+)`)
)

// ParseLMX parses `lmxendutil -licstat`.
func ParseLMX(raw string) *models.ServerReport {
	report := models.NewServerReport()
	current := ""

	for _, line := range lines(raw) {
		if m := lmxFeature.FindStringSubmatch(line); m != nil {
			current = m[1]
			continue
		}
		if current == "" {
			continue
		}
		if m := lmxUsage.FindStringSubmatch(line); m != nil {
			if qty, ok := utils.ToInt(m[1]); ok {
				addRecord(report, current, m[2], m[3], qty)
			}
			continue
		}
		if m := lmxCount.FindStringSubmatch(line); m != nil {
			used, ok1 := utils.ToInt(m[1])
			total, ok2 := utils.ToInt(m[2])
			if ok1 && ok2 {
				addCount(report, current, total, used)
			}
		}
	}

	return report
}
