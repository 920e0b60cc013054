package render

import (
	"html/template"
	"io"
	"time"
)

var reportTemplate *template.Template

func init() {
	reportTmpl := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>GO Enrichment Report</title>
		<style>
			body { font-family: sans-serif; margin: 2em; }
			table.goterms { border-collapse: collapse; }
			table.goterms th, table.goterms td { border: 1px solid #999; padding: 4px 8px; font-size: 0.85rem; }
			table.goterms th { background: #eee; }
			.heatmap img { max-width: 100%; }
			.meta { color: #666; font-size: 0.8rem; }
		</style>
	</head>
	<body>
		<header>
			<h1>GO Enrichment Report</h1>
			<p class="meta">{{len .Clusters}} clusters — generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>
		</header>
		<div class="heatmap">
			<h2>Cluster x GO term heatmap</h2>
			<img src="{{.ImageFile}}" alt="GO term heatmap" />
		</div>
		{{template "termtable" .}}
	</body>
	</html>`

	termTableTmpl := `
	{{define "termtable"}}
		<h2>Filtered GO terms</h2>
		<table class="goterms">
			<tr>
				<th>Lineage/Cluster</th><th>Source</th><th>Term ID</th>
				<th>Name</th><th>p-value</th><th>Significant</th>
			</tr>
			{{range .Rows}}
			<tr>
				<td>{{.Cluster}}</td>
				<td>{{.Term.Source}}</td>
				<td>{{.Term.Native}}</td>
				<td>{{.Term.Name}}</td>
				<td>{{printf "%.3g" .Term.PValue}}</td>
				<td>{{.Term.Significant}}</td>
			</tr>
			{{end}}
		</table>
	{{end}}`

	reportTemplate = template.New("go-report")
	reportTemplate = template.Must(reportTemplate.Parse(reportTmpl))
	reportTemplate = template.Must(reportTemplate.Parse(termTableTmpl))
}

// ReportData feeds the HTML report: the heatmap image (relative path, so the
// report stays portable next to the PNG) and the aggregated rows.
type ReportData struct {
	Clusters    []string
	ImageFile   string
	Rows        []CombinedRow
	GeneratedAt time.Time
}

// RenderReport writes the HTML report.
func RenderReport(w io.Writer, data ReportData) error {
	return reportTemplate.Execute(w, data)
}
