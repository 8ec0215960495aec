package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #111827; margin: 0; }
  h1 { font-size: 22px; margin-bottom: 2px; }
  h2 { font-size: 15px; color: #16a34a; border-bottom: 1px solid #e2e8f0; padding-bottom: 4px; margin-top: 22px; }
  .meta { color: #6b7280; font-size: 11px; }
  table { width: 100%; border-collapse: collapse; font-size: 12px; margin-top: 8px; }
  th { text-align: left; background: #f1f5f9; padding: 6px 8px; }
  td { padding: 6px 8px; border-bottom: 1px solid #e2e8f0; }
  .verdict { display: inline-block; background: #dcfce7; color: #16a34a; font-weight: bold;
             padding: 4px 12px; border-radius: 4px; font-size: 16px; }
  .example { max-width: 220px; border-radius: 6px; margin-top: 8px; }
  .qr { width: 90px; float: right; }
</style>
</head>
<body>
  {{if .QRDataURI}}<img class="qr" src="{{.QRDataURI}}" alt="">{{end}}
  <h1>Diagnóstico de lechuga</h1>
  <p class="meta">Usuario: {{.P.DisplayName}} · Atención: {{.P.AttemptID}} · {{.P.GeneratedAt.Format "2006-01-02 15:04"}} · Cultivo: {{.P.Location}}</p>

  <p><span class="verdict">{{.P.Image.Label}}</span></p>

  <h2>{{.P.Image.Source}}</h2>
  <table>
    <tr><th>Etiqueta</th><th>Probabilidad</th></tr>
    {{range $label, $prob := .P.Image.Distribution}}<tr><td>{{$label}}</td><td>{{pct $prob}}</td></tr>{{end}}
  </table>

  <h2>{{.P.Tabular.Source}}</h2>
  <table>
    <tr><th>Etiqueta</th><th>Probabilidad</th></tr>
    {{range $label, $prob := .P.Tabular.Distribution}}<tr><td>{{$label}}</td><td>{{pct $prob}}</td></tr>{{end}}
  </table>

  <h2>Respuestas del cuestionario</h2>
  <table>
    <tr><th>#</th><th>Pregunta</th><th>Respuesta</th></tr>
    {{range .P.QA}}<tr><td>{{.Ordinal}}</td><td>{{.Question}}</td><td>{{.Answer}}</td></tr>{{end}}
  </table>

  <h2>Tratamientos recomendados</h2>
  <table>
    <tr><th>Tratamiento</th><th>Descripción</th></tr>
    {{range .P.Treatments}}<tr><td>{{.Title}}</td><td>{{.Description}}</td></tr>{{end}}
  </table>

  {{if .ExampleDataURI}}
  <h2>Imagen de referencia</h2>
  <img class="example" src="{{.ExampleDataURI}}" alt="{{.P.Image.Label}}">
  {{end}}
</body>
</html>`))

type templateData struct {
	P              Payload
	QRDataURI      template.URL
	ExampleDataURI template.URL
}

// renderHTML produces the report HTML document. qrPNG may be nil.
func renderHTML(payload Payload, qrPNG []byte) ([]byte, error) {
	data := templateData{P: payload}
	if len(qrPNG) > 0 {
		data.QRDataURI = pngDataURI(qrPNG)
	}
	if payload.ExampleImagePath != "" {
		if img, err := os.ReadFile(payload.ExampleImagePath); err == nil {
			data.ExampleDataURI = template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img))
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

func pngDataURI(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}
