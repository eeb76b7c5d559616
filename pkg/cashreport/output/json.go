// Package output serializes extraction results.
package output

import (
	"encoding/json"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/models"
)

// ToJSON serializes a report.
func ToJSON(rep *models.Report, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(rep, "", "  ")
	}
	return json.Marshal(rep)
}
