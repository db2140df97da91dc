package reminder

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/turtacn/ContractKeeper/internal/domain/contract"
	domain "github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// MessageData is the input to every reminder template.
type MessageData struct {
	Stage         domain.Stage
	ContractID    int64
	ContractName  string
	Vendor        string
	Deadline      string
	RecipientName string
	URL           string
}

// IsFinal reports whether the data is for the final stage.
func (d MessageData) IsFinal() bool { return d.Stage == domain.StageFinal }

// Email is a rendered two-part email.
type Email struct {
	Subject string
	HTML    string
	Plain   string
}

const chatTemplate = `{{if .IsFinal}}⚠️ **Final cancellation reminder**{{else}}📋 **Cancellation reminder**{{end}}

Contract "{{.ContractName}}" ({{.Vendor}}) must be cancelled by **{{.Deadline}}**{{if .IsFinal}}!{{else}}.{{end}}
{{if .IsFinal}}This is the last reminder before the deadline.{{else}}This is the first reminder.{{end}}{{if .URL}}

{{.URL}}{{end}}`

const emailPlainTemplate = `Hello {{.RecipientName}},

your contract "{{.ContractName}}" with {{.Vendor}} {{if .IsFinal}}expires in a few days{{else}}expires soon{{end}}.
The cancellation deadline is {{.Deadline}}.
{{if .URL}}
Open the contract: {{.URL}}
{{end}}`

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<p>Hello {{.RecipientName}},</p>
<p>your contract <strong>{{.ContractName}}</strong> with {{.Vendor}} {{if .IsFinal}}expires in a few days{{else}}expires soon{{end}}.</p>
<p>The cancellation deadline is <strong>{{.Deadline}}</strong>.</p>
{{if .URL}}<p><a href="{{.URL}}">Open the contract</a></p>{{end}}
</body>
</html>`

var (
	chatTmpl       = texttemplate.Must(texttemplate.New("chat").Parse(chatTemplate))
	emailPlainTmpl = texttemplate.Must(texttemplate.New("email_plain").Parse(emailPlainTemplate))
	emailHTMLTmpl  = htmltemplate.Must(htmltemplate.New("email_html").Parse(emailHTMLTemplate))
)

// Renderer builds reminder messages.
type Renderer struct {
	appURL string
}

// NewRenderer returns a Renderer linking to appURL.  An empty appURL omits
// links.
func NewRenderer(appURL string) *Renderer {
	return &Renderer{appURL: strings.TrimRight(appURL, "/")}
}

// Data assembles template input for c.
func (r *Renderer) Data(c *contract.Contract, stage domain.Stage, deadline time.Time, recipient string) MessageData {
	d := MessageData{
		Stage:         stage,
		ContractID:    c.ID,
		ContractName:  c.Name,
		Vendor:        c.Vendor,
		Deadline:      contract.FormatDeadline(deadline),
		RecipientName: recipient,
	}
	if r.appURL != "" {
		d.URL = r.appURL + "/contracts/" + strconv.FormatInt(c.ID, 10)
	}
	return d
}

// Chat renders the chat message.
func (r *Renderer) Chat(d MessageData) (string, error) {
	var buf bytes.Buffer
	if err := chatTmpl.Execute(&buf, d); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to render chat message")
	}
	return buf.String(), nil
}

// Email renders subject and both bodies.
func (r *Renderer) Email(d MessageData) (*Email, error) {
	subject := "Reminder: " + d.ContractName + " expires soon"
	if d.IsFinal() {
		subject = "Reminder: " + d.ContractName + " expires in a few days"
	}

	var html, plain bytes.Buffer
	if err := emailHTMLTmpl.Execute(&html, d); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to render email html")
	}
	if err := emailPlainTmpl.Execute(&plain, d); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to render email text")
	}
	return &Email{Subject: subject, HTML: html.String(), Plain: plain.String()}, nil
}

//Personal.AI order the ending
