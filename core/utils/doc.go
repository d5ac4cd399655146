// Package utils provides small helpers shared by the parsers and the booking ledger.
// It includes lenient integer conversion for regex captures and hostname comparison
// used to attribute vendor usage lines to a job's lead host.
package utils
