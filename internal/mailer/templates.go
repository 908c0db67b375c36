package mailer

import (
	"bytes"
	"html/template"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "verification"}}<p>Your confirmation code: <strong>{{.Code}}</strong></p>
<p>The code is valid for 10 minutes.</p>{{end}}

{{define "reset"}}<p>To reset your password follow the link: <a href="{{.URL}}">{{.URL}}</a></p>
<p>The link is valid for 24 hours.</p>{{end}}

{{define "welcome"}}<h2>Welcome, {{.Name}}!</h2>
<p>Your account is ready. Find events that match your interests and meet people who share them.</p>{{end}}

{{define "password"}}<h2>Hello, {{.Name}}!</h2>
<p>An administrator set a password for your account: <strong>{{.Password}}</strong></p>
<p>Please change it after signing in.</p>{{end}}

{{define "changed"}}<h2>Your password was changed</h2>
<p>If you did not do this, reset your password immediately.</p>{{end}}

{{define "reminder"}}<h2>Hello, {{.Name}}!</h2>
<p>A reminder that the event you joined starts soon:</p>
<h3>{{.Title}}</h3>
<p>Starts: {{.Start}}</p>{{end}}

{{define "match_request"}}<h2>Hello, {{.Name}}!</h2>
<p>{{.From}} would like to go to <strong>{{.Title}}</strong> together with you.</p>
{{if .Message}}<blockquote>{{.Message}}</blockquote>{{end}}
<p>Open your requests to answer.</p>{{end}}

{{define "match_accepted"}}<h2>Hello, {{.Name}}!</h2>
<p>{{.From}} accepted your request for <strong>{{.Title}}</strong>.</p>{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
