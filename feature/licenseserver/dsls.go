package licenseserver

import (
	"encoding/csv"
	"strings"

	"license-agent/core/models"
	"license-agent/core/utils"
)

// ParseDSLS parses `DSLicSrv -admin -run getLicenseUsage -csv`. Everything up
// to the CSV header row is ignored. Rows without a user carry the feature
// totals; rows with a user are checkouts.
func ParseDSLS(raw string) *models.ServerReport {
	report := models.NewServerReport()
	var cols map[string]int

	for _, line := range lines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, ok := csvFields(line)
		if !ok {
			continue
		}
		if cols == nil {
			cols = dslsHeader(fields)
			continue
		}

		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return strings.TrimSpace(fields[i])
		}

		feature := get("feature")
		if feature == "" || strings.EqualFold(feature, "feature") {
			continue
		}

		user := get("user")
		if user == "" {
			total, ok1 := utils.ToInt(get("count"))
			used, ok2 := utils.ToInt(get("inuse"))
			if ok1 && ok2 {
				addCount(report, feature, total, used)
			}
			continue
		}

		host := get("host")
		if f := strings.Fields(host); len(f) > 0 {
			host = f[0]
		}
		qty, ok := utils.ToIntDefault(get("tokens"), 1)
		if !ok || qty == 0 {
			qty = 1
		}
		addRecord(report, feature, user, host, qty)
	}

	return report
}

// dslsHeader returns the column index map if fields is the header row.
func dslsHeader(fields []string) map[string]int {
	cols := make(map[string]int, len(fields))
	for i, f := range fields {
		cols[strings.ToLower(strings.TrimSpace(f))] = i
	}
	_, hasFeature := cols["feature"]
	_, hasCount := cols["count"]
	if !hasFeature || !hasCount {
		return nil
	}
	return cols
}

func csvFields(line string) ([]string, bool) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, false
	}
	return fields, true
}
