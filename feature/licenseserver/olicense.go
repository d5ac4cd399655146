package licenseserver

import (
	"regexp"
	"strings"

	"license-agent/core/models"
	"license-agent/core/utils"
)

var (
	olicenseFeature = regexp.MustCompile(`^\s*(\S+)\s+(\d+)\s+FloatsLockedBy:\s*$`)
	olicenseUsage   = regexp.MustCompile(`^\s*([^@\s]+)@(\S+)\s+#(\d+)\s*$`)
)

// ParseOLicense parses `olixtool -listusage`. Headers only carry the total;
// used is the sum of the lock lines below them.
func ParseOLicense(raw string) *models.ServerReport {
	report := models.NewServerReport()
	current := ""

	for _, line := range lines(raw) {
		if m := olicenseFeature.FindStringSubmatch(line); m != nil {
			total, ok := utils.ToInt(m[2])
			if !ok {
				current = ""
				continue
			}
			current = m[1]
			addCount(report, current, total, 0)
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "=") {
			current = ""
			continue
		}
		if current == "" {
			continue
		}
		if m := olicenseUsage.FindStringSubmatch(line); m != nil {
			qty, ok := utils.ToInt(m[3])
			if !ok {
				continue
			}
			addRecord(report, current, m[1], m[2], qty)
			addCount(report, current, 0, qty)
		}
	}

	return report
}
