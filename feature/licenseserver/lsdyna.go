package licenseserver

import (
	"regexp"

	"license-agent/core/models"
	"license-agent/core/utils"
)

var (
	lsdynaFeature = regexp.MustCompile(`^\s*(\S+)\s+\d{1,2}/\d{1,2}/\d{4}\s+\S+\s+(\d+)\s+(\d+)\s*\|\s*\d+`)
	lsdynaRow     = regexp.MustCompile(`^\s*\S+\s+\d{1,2}/\d{1,2}/\d{4}\s`)
	lsdynaUsage   = regexp.MustCompile(`^\s*(\S+)\s+\d+@(\S+)\s+(\d+)\s*$`)
)

// ParseLSDyna parses `lstc_qrun -R`. The USED column is often "-", so usage
// is derived as MAX - FREE.
func ParseLSDyna(raw string) *models.ServerReport {
	report := models.NewServerReport()
	current := ""

	for _, line := range lines(raw) {
		if m := lsdynaFeature.FindStringSubmatch(line); m != nil {
			free, ok1 := utils.ToInt(m[2])
			total, ok2 := utils.ToInt(m[3])
			if !ok1 || !ok2 {
				current = ""
				continue
			}
			current = m[1]
			addCount(report, current, total, total-free)
			continue
		}
		if lsdynaRow.MatchString(line) {
			// Feature row without numeric counts.
			current = ""
			continue
		}
		if current == "" {
			continue
		}
		if m := lsdynaUsage.FindStringSubmatch(line); m != nil {
			if qty, ok := utils.ToInt(m[3]); ok {
				addRecord(report, current, m[1], m[2], qty)
			}
		}
	}

	return report
}
