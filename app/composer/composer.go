package composer

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/vibast-solutions/ms-go-contact/app/dto"
)

const subjectPrefix = "Portfolio Contact Form: Message from "

// Payload is the notification email built from one submission.
type Payload struct {
	Subject     string
	HTMLBody    string
	ReplyTo     string
	ReplyToName string
}

var bodyTemplate = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333; border-bottom: 2px solid #4F46E5; padding-bottom: 10px;">
    New Contact Form Submission
  </h2>
  <div style="background-color: #f9fafb; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p style="margin: 10px 0;"><strong>Name:</strong> {{.Name}}</p>
    <p style="margin: 10px 0;"><strong>Email:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
    <p style="margin: 10px 0;"><strong>Message:</strong></p>
    <div style="background-color: white; padding: 15px; border-left: 4px solid #4F46E5; margin-top: 10px;">
      {{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}
    </div>
  </div>
  <p style="color: #666; font-size: 12px; margin-top: 20px;">
    This message was sent from your portfolio contact form.
  </p>
</div>
`))

type bodyData struct {
	Name  string
	Email string
	Lines []string
}

// Compose builds the notification payload. The request must already be
// validated; sender-supplied fields are escaped by the template.
func Compose(req dto.SubmissionRequest) Payload {
	message := strings.ReplaceAll(req.Message, "\r\n", "\n")

	var buf bytes.Buffer
	// Execute only fails on template or writer errors; neither happens here.
	_ = bodyTemplate.Execute(&buf, bodyData{
		Name:  req.Name,
		Email: req.Email,
		Lines: strings.Split(message, "\n"),
	})

	return Payload{
		Subject:     subjectPrefix + singleLine(req.Name),
		HTMLBody:    buf.String(),
		ReplyTo:     req.Email,
		ReplyToName: singleLine(req.Name),
	}
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
