package licenseserver

import (
	"regexp"

	"license-agent/core/models"
	"license-agent/core/utils"
)

var (
	rlmPool  = regexp.MustCompile(`^\s*(\S+)\s+v[0-9][\w.\-]*\s*$`)
	rlmCount = regexp.MustCompile(`^\s*count:\s*(\d+),\s*#\s*reservations:\s*(\d+),\s*inuse:\s*(\d+)`)
	rlmUsage = regexp.MustCompile(`^\s*(\S+)\s+v[0-9][\w.\-]*:\s+([^@\s]+)@(\S+)\s+(\d+)/\d+\s+at\s`)
)

// ParseRLM parses `rlmutil rlmstat -a`.
func ParseRLM(raw string) *models.ServerReport {
	report := models.NewServerReport()
	pool := ""

	for _, line := range lines(raw) {
		if m := rlmUsage.FindStringSubmatch(line); m != nil {
			if qty, ok := utils.ToInt(m[4]); ok {
				addRecord(report, m[1], m[2], m[3], qty)
			}
			continue
		}
		if m := rlmPool.FindStringSubmatch(line); m != nil {
			pool = m[1]
			continue
		}
		if pool == "" {
			continue
		}
		if m := rlmCount.FindStringSubmatch(line); m != nil {
			total, ok1 := utils.ToInt(m[1])
			used, ok2 := utils.ToInt(m[3])
			if ok1 && ok2 {
				addCount(report, pool, total, used)
			}
			pool = ""
		}
	}

	return report
}
