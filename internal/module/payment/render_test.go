package payment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlideMe/commerce/internal/module/payment/gateway"
)

func TestRenderPostRedirectDefaultPage(t *testing.T) {
	res := &gateway.Response{
		RedirectURL:  "https://pay.example/submit",
		RedirectData: map[string]string{"session": "sess_1", "sig": "abc"},
	}

	html, err := renderPostRedirect(res, "")
	require.NoError(t, err)

	assert.Contains(t, html, `action="https://pay.example/submit"`)
	assert.Contains(t, html, `name="session"`)
	assert.Contains(t, html, `value="sess_1"`)
	assert.Contains(t, html, `name="sig"`)
	assert.Contains(t, html, "document.forms[0].submit()")
}

func TestRenderPostRedirectOperatorTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redirect.html")
	tmpl := `<html><body data-target="{{.ActionURL}}">{{.Inputs}}</body></html>`
	require.NoError(t, os.WriteFile(path, []byte(tmpl), 0o600))

	res := &gateway.Response{
		RedirectURL:  "https://pay.example/submit",
		RedirectData: map[string]string{"token": "tok_1"},
	}

	html, err := renderPostRedirect(res, path)
	require.NoError(t, err)

	assert.Contains(t, html, `data-target="https://pay.example/submit"`)
	assert.Contains(t, html, `name="token"`)
	assert.Contains(t, html, `value="tok_1"`)
}

func TestRenderPostRedirectMissingTemplate(t *testing.T) {
	res := &gateway.Response{RedirectURL: "https://pay.example/submit"}

	_, err := renderPostRedirect(res, "/nonexistent/template.html")
	assert.Error(t, err)
}

func TestRenderSelfSubmitEscapesTarget(t *testing.T) {
	html, err := renderSelfSubmit("https://shop.example/thanks?order=1&x=2")
	require.NoError(t, err)

	assert.Contains(t, html, "https://shop.example/thanks?order=1")
	assert.Contains(t, html, "meta http-equiv=\"refresh\"")
}
