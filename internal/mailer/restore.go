package mailer

import (
	"bytes"
	"html/template"
	"net/url"
	"time"
)

var restoreTemplate = template.Must(template.New("restore").Parse(`<p>Olá, {{.Name}}.</p>
<p>Recebemos um pedido para redefinir a sua senha.</p>
<p><a href="{{.Link}}">Clique aqui para escolher uma nova senha</a>. O link expira às {{.Expires}} (UTC).</p>
<p>Se não foi você, ignore este e-mail.</p>`))

// RestorePasswordEmail builds the message carrying a password restore link.
func RestorePasswordEmail(to, name, baseURL, code string, validUntil time.Time) (Email, error) {
	link := baseURL
	if u, err := url.Parse(baseURL); err == nil {
		q := u.Query()
		q.Set("code", code)
		u.RawQuery = q.Encode()
		link = u.String()
	}

	var html bytes.Buffer
	err := restoreTemplate.Execute(&html, struct {
		Name, Link, Expires string
	}{name, link, validUntil.UTC().Format("15:04")})
	if err != nil {
		return Email{}, err
	}

	return Email{
		To:       []string{to},
		Subject:  "Redefinição de senha",
		HTMLBody: html.String(),
		Body:     "Use o link para redefinir a sua senha: " + link,
	}, nil
}
