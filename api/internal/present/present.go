package present

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"paddy-doctor/api/internal/diagnose"
)

var Columns = []string{"Disease Name", "Confidence Score", "Next Steps"}

// AcceptTypes mirrors the upload widget's allowed extensions.
const AcceptTypes = ".jpeg,.jpg,.gif,.png"

type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns a single-row table, or nil for a failed extraction.
func NewTable(r diagnose.ClassificationResult) *Table {
	if !r.Present {
		return nil
	}
	return &Table{
		Columns: Columns,
		Rows:    [][]string{{r.DiseaseName, r.ConfidenceScore, r.NextSteps}},
	}
}

// View: всё, что нужно странице: форма, таблица или ошибка.
type View struct {
	Title    string
	Accept   string
	Engines  []string
	Selected string
	FileName string
	// Image: data: URL загруженной картинки для превью.
	Image template.URL
	Table *Table
	Error string
}

type Presenter struct {
	tpl *template.Template
}

func New() *Presenter {
	return &Presenter{tpl: template.Must(template.New("page").Parse(pageHTML))}
}

func (p *Presenter) RenderHTML(w io.Writer, v View) error {
	if v.Title == "" {
		v.Title = "Paddy Diseases Classification"
	}
	if v.Accept == "" {
		v.Accept = AcceptTypes
	}
	return p.tpl.Execute(w, v)
}

// Preview returns the data URL shown next to the result, or "" before encoding.
// Encoded is base64 of a sniffed jpeg/png/gif, so the URL is safe for src.
func Preview(req diagnose.ClassificationRequest) template.URL {
	if req.Encoded == "" || req.MIME == "" {
		return ""
	}
	return template.URL(req.DataURL())
}

// ErrorView maps a pipeline failure to the inline error block; a
// table is never attached to it.
func ErrorView(base View, err error) View {
	base.Table = nil
	base.Error = ErrorText(err)
	return base
}

// ErrorText is the single user-visible diagnostic for a failed submission.
func ErrorText(err error) string {
	var (
		ee *diagnose.EncodingError
		te *diagnose.TransportError
		xe *diagnose.ExtractionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ee):
		return "Error encoding image: " + ee.Error()
	case errors.As(err, &te):
		return "API request error: " + te.Error()
	case errors.As(err, &xe):
		return "Unexpected response format. Please try again. Model reply: " + xe.Raw
	default:
		return "Classification failed: " + err.Error()
	}
}

// Text renders the result for chat surfaces.
func Text(r diagnose.ClassificationResult) string {
	t := NewTable(r)
	if t == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Classification Result\n\n")
	for i, col := range t.Columns {
		fmt.Fprintf(&b, "%s: %s\n", col, t.Rows[0][i])
	}
	return strings.TrimRight(b.String(), "\n")
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>🌾🔍 {{.Title}} 🌾🔍</h1>
<h3>Classification for Paddy Diseases: Blast, False Smut, and Boron Deficiency Only</h3>
<form method="post" action="/classify" enctype="multipart/form-data">
  <input type="file" name="image" accept="{{.Accept}}" required>
  {{- if .Engines}}
  <select name="llm_name">
    {{- range .Engines}}
    <option value="{{.}}"{{if eq . $.Selected}} selected{{end}}>{{.}}</option>
    {{- end}}
  </select>
  {{- end}}
  <button type="submit">Classify Image</button>
</form>
{{- if .Image}}
<figure>
  <img src="{{.Image}}" alt="Uploaded Image" style="max-width:480px">
  <figcaption>📸 Uploaded Image{{if .FileName}}: {{.FileName}}{{end}}</figcaption>
</figure>
{{- else if .FileName}}
<p>📸 Uploaded Image: {{.FileName}}</p>
{{- end}}
{{- if .Error}}
<div class="error" role="alert">
  <p>{{.Error}}</p>
</div>
{{- end}}
{{- with .Table}}
<h2>Classification Result</h2>
<table border="1">
  <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody>
  {{- range .Rows}}
    <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
  {{- end}}
  </tbody>
</table>
{{- end}}
</body>
</html>
`
