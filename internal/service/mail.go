package service

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	subjectVerifyEmail   = "Verify your email address"
	subjectPasswordReset = "Reset your password"
	subjectEmailChange   = "Confirm your new email address"
)

type mailData struct {
	Name string
	Link string
}

var verifyMailTmpl = template.Must(template.New("verify").Parse(`<p>Hi {{.Name}},</p>
<p>Welcome! Please confirm your email address by clicking the link below.</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>The link expires shortly. If you did not create this account, you can ignore this message.</p>`))

var resetMailTmpl = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to choose a new one.</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>The link expires shortly. If you did not request a reset, you can ignore this message and your password will stay unchanged.</p>`))

var emailChangeMailTmpl = template.Must(template.New("emailchange").Parse(`<p>Hi {{.Name}},</p>
<p>Please confirm that this is your new email address by clicking the link below.</p>
<p><a href="{{.Link}}">Confirm my new email</a></p>
<p>The link expires shortly. If you did not request this change, you can ignore this message.</p>`))

func renderMail(tmpl *template.Template, name, link string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, mailData{Name: name, Link: link}); err != nil {
		return "", fmt.Errorf("execute mail template: %w", err)
	}
	return buf.String(), nil
}
