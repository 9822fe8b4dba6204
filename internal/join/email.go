package join

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/jgxilos/wdd231/internal/notify"
)

var summaryEmail = template.Must(template.New("summary").Parse(`<h2>New membership application</h2>
<table>
<tr><th>Name</th><td>{{.App.FullName}}</td></tr>
{{with .App.Title}}<tr><th>Title</th><td>{{.}}</td></tr>
{{end}}<tr><th>Email</th><td>{{.App.Email}}</td></tr>
<tr><th>Phone</th><td>{{.App.Phone}}</td></tr>
<tr><th>Organization</th><td>{{.App.Organization}}</td></tr>
{{with .Level}}<tr><th>Level</th><td>{{.}}</td></tr>
{{end}}<tr><th>Submitted</th><td>{{.Submitted}}</td></tr>
</table>
{{with .App.Description}}<p>{{.}}</p>
{{end}}`))

// SummaryMessage builds the office notification for a.
func SummaryMessage(a Application, to string) (notify.Message, error) {
	data := struct {
		App       Application
		Level     string
		Submitted string
	}{App: a, Submitted: FormatTimestamp(a.Timestamp)}
	if a.MembershipLevel != "" {
		data.Level = LevelLabel(a.MembershipLevel)
	}
	var buf bytes.Buffer
	if err := summaryEmail.Execute(&buf, data); err != nil {
		return notify.Message{}, fmt.Errorf("failed to render summary email: %w", err)
	}
	return notify.Message{
		To:      []string{to},
		Subject: "New membership application: " + a.Organization,
		HTML:    buf.String(),
		ReplyTo: a.Email,
	}, nil
}

// Notify sends the summary of a to the office address.
func Notify(ctx context.Context, sender notify.Sender, a Application, to string) error {
	msg, err := SummaryMessage(a, to)
	if err != nil {
		return err
	}
	if _, err := sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to notify office: %w", err)
	}
	return nil
}
