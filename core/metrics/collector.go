package metrics

import (
	"license-agent/core/models"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	featureLabels = []string{"product", "feature"}

	featureTotalDesc     = prometheus.NewDesc("license_agent_feature_total", "The number of licenses the server issues for a feature.", featureLabels, nil)
	featureUsedDesc      = prometheus.NewDesc("license_agent_feature_used", "The number of licenses checked out on the license server.", featureLabels, nil)
	featureBookedDesc    = prometheus.NewDesc("license_agent_feature_booked", "The number of licenses booked by dispatched jobs.", featureLabels, nil)
	featureReservedDesc  = prometheus.NewDesc("license_agent_feature_reserved", "The number of licenses kept aside.", featureLabels, nil)
	featureAvailableDesc = prometheus.NewDesc("license_agent_feature_available", "The number of licenses available for new jobs.", featureLabels, nil)
	activeBookingsDesc   = prometheus.NewDesc("license_agent_active_bookings", "The number of bookings held by jobs.", nil, nil)
)

// LedgerSource is what the collector reads on every scrape. booking.Ledger satisfies it.
type LedgerSource interface {
	Features() []models.Feature
	Jobs() []models.Job
}

// FeatureCollector exports the ledger's per-feature counts.
type FeatureCollector struct {
	Ledger LedgerSource
}

var _ prometheus.Collector = new(FeatureCollector)

func (*FeatureCollector) Describe(descCh chan<- *prometheus.Desc) {
	descCh <- featureTotalDesc
	descCh <- featureUsedDesc
	descCh <- featureBookedDesc
	descCh <- featureReservedDesc
	descCh <- featureAvailableDesc
	descCh <- activeBookingsDesc
}

func (fc *FeatureCollector) Collect(metricsCh chan<- prometheus.Metric) {
	for _, f := range fc.Ledger.Features() {
		metricsCh <- prometheus.MustNewConstMetric(featureTotalDesc, prometheus.GaugeValue, float64(f.Total), f.Product, f.Name)
		metricsCh <- prometheus.MustNewConstMetric(featureUsedDesc, prometheus.GaugeValue, float64(f.Used), f.Product, f.Name)
		metricsCh <- prometheus.MustNewConstMetric(featureBookedDesc, prometheus.GaugeValue, float64(f.Booked), f.Product, f.Name)
		metricsCh <- prometheus.MustNewConstMetric(featureReservedDesc, prometheus.GaugeValue, float64(f.Reserved), f.Product, f.Name)
		metricsCh <- prometheus.MustNewConstMetric(featureAvailableDesc, prometheus.GaugeValue, float64(f.Available), f.Product, f.Name)
	}

	bookings := 0
	for _, j := range fc.Ledger.Jobs() {
		bookings += len(j.Bookings)
	}
	metricsCh <- prometheus.MustNewConstMetric(activeBookingsDesc, prometheus.GaugeValue, float64(bookings))
}
