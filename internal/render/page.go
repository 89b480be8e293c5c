package render

import (
	"bytes"
	"html/template"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
</head>
<body>
<form method="post" action="{{.Action}}">
<label for="cedula">Cédula</label>
<input type="text" id="cedula" name="cedula" value="{{.Identifier}}">
<button type="submit">Generar</button>
</form>
{{.Body}}
</body>
</html>
`))

// PageData is what the page shell needs around a rendered fragment
type PageData struct {
	Title      string
	Action     string
	Identifier string
	// Body is inserted verbatim; callers pass markup they built and escaped
	Body template.HTML
}

// Page wraps a fragment in a full HTML document with the identifier form
func Page(data PageData) (string, error) {
	if data.Title == "" {
		data.Title = "Curvas de crecimiento"
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
