// Package licenseserver parses the status output of vendor license servers.
//
// One parser exists per server family (FlexLM, RLM, LMX, LS-DYNA, OLicense and
// DSLS). Every parser is pure and never fails: it matches line by line and
// skips whatever it does not recognize. The result is a models.ServerReport
// holding the totals the vendor reports per feature and one usage record per
// checkout line.
//
// A line that matches nothing leaves the report unchanged wherever it appears.
// Lines that look like a section start but carry no usable counts end the
// current section instead, so the checkout lines after them are dropped
// rather than attributed to the previous feature: a FlexLM "Users of" header
// without totals, an LS-DYNA dated feature row without numbers and an
// OLicense "=" separator.
//
// Adapter binds a parser to a command template and satisfies reconcile.Adapter.
package licenseserver
