// Package export turns summary tables into downloadable artifacts: an XLSX
// workbook, a standalone HTML chart and a static SVG chart.
package export

const (
	MIMESpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEHTML        = "text/html"
	MIMESVG         = "image/svg+xml"

	SpreadsheetFilename = "data_download.xlsx"
	ChartFilename       = "plot.html"
	ImageFilename       = "plot.svg"
)

// Artifact is an immutable payload ready for download. It is built on
// demand and never cached.
type Artifact struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Size returns the payload length in bytes.
func (a *Artifact) Size() int { return len(a.Data) }
