package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(`
<h2>Welcome {{.Name}}!</h2>
<p>Your account has been created successfully.</p>
<p>Start reporting and tracking security issues securely.</p>
`))

	loginTmpl = template.Must(template.New("login").Parse(`
<h3>Login Activity</h3>
<p>Hi {{.Name}},</p>
<p>A new login was detected on your ApniSec account.</p>
<p><strong>Time:</strong> {{.Time}}</p>
<p>If this wasn't you, please change your password immediately.</p>
`))

	profileTmpl = template.Must(template.New("profile").Parse(`
<p>Hi {{.Name}}, your profile details were updated successfully.</p>
<p><strong>Updated fields:</strong> {{.Fields}}</p>
<p>If this wasn't you, please contact support immediately.</p>
`))

	issueTmpl = template.Must(template.New("issue").Parse(`
<h3>New Issue Reported</h3>
<p><strong>Issue ID:</strong> #{{.ID}}</p>
<p><strong>Title:</strong> {{.Title}}</p>
<p><strong>Type:</strong> {{.Type}}</p>
<p><strong>Created by:</strong> {{.Email}}</p>
<p><strong>Description:</strong></p>
<p>{{.Description}}</p>
`))
)

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
