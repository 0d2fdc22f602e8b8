package payment

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/GlideMe/commerce/internal/module/payment/gateway"
)

// defaultPostRedirectPage auto-submits the gateway's POST redirect. Used when
// no operator template is configured.
var defaultPostRedirectPage = template.Must(template.New("post-redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting…</title></head>
<body onload="document.forms[0].submit()">
<form action="{{.ActionURL}}" method="post">
{{- range $name, $value := .Fields}}
<input type="hidden" name="{{$name}}" value="{{$value}}"/>
{{- end}}
<noscript><button type="submit">Continue</button></noscript>
</form>
</body>
</html>
`))

// selfSubmitPage sends the customer on to the order's return URL after a
// gateway POSTs back directly to the completion endpoint.
var selfSubmitPage = template.Must(template.New("self-submit").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Payment received</title>
<meta http-equiv="refresh" content="0;url={{.TargetURL}}"/>
</head>
<body onload="window.location.replace({{.TargetURL}})">
<a href="{{.TargetURL}}">Continue</a>
</body>
</html>
`))

type postRedirectData struct {
	ActionURL string
	Fields    map[string]string
}

// renderPostRedirect builds the HTML page that forwards a POST-style gateway
// redirect. templatePath, when set, names an operator-provided template given
// the target URL and pre-rendered hidden inputs.
func renderPostRedirect(res *gateway.Response, templatePath string) (string, error) {
	if templatePath != "" {
		tmpl, err := template.ParseFiles(templatePath)
		if err != nil {
			return "", fmt.Errorf("parse redirect template: %w", err)
		}
		var sb strings.Builder
		data := struct {
			ActionURL string
			Inputs    template.HTML
		}{
			ActionURL: res.RedirectURL,
			Inputs:    hiddenInputs(res.RedirectData),
		}
		if err := tmpl.Execute(&sb, data); err != nil {
			return "", fmt.Errorf("render redirect template: %w", err)
		}
		return sb.String(), nil
	}

	var sb strings.Builder
	err := defaultPostRedirectPage.Execute(&sb, postRedirectData{
		ActionURL: res.RedirectURL,
		Fields:    res.RedirectData,
	})
	if err != nil {
		return "", fmt.Errorf("render redirect page: %w", err)
	}
	return sb.String(), nil
}

// renderSelfSubmit builds the confirmation page pointing at targetURL.
func renderSelfSubmit(targetURL string) (string, error) {
	var sb strings.Builder
	err := selfSubmitPage.Execute(&sb, struct{ TargetURL string }{TargetURL: targetURL})
	if err != nil {
		return "", fmt.Errorf("render confirmation page: %w", err)
	}
	return sb.String(), nil
}

func hiddenInputs(fields map[string]string) template.HTML {
	var sb strings.Builder
	for name, value := range fields {
		sb.WriteString(fmt.Sprintf(
			`<input type="hidden" name="%s" value="%s"/>`,
			template.HTMLEscapeString(name),
			template.HTMLEscapeString(value),
		))
		sb.WriteByte('\n')
	}
	return template.HTML(sb.String())
}
