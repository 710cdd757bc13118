package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>You've been invited to join {{.OrganizationName}}</h2>
  <p>{{.InviterName}} has invited you to join <strong>{{.OrganizationName}}</strong> on Evently as {{.Role}}.</p>
  <p><a href="{{.Link}}" style="background:#4f46e5;color:#fff;padding:10px 18px;text-decoration:none;border-radius:4px;">Accept invitation</a></p>
  <p>Or copy this link into your browser:<br>{{.Link}}</p>
  <p style="color:#666;font-size:12px;">This invitation expires on {{.ExpiresAt}}.</p>
</body>
</html>`))

var reminderTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Reminder: {{.EventTitle}}</h2>
  <p>Hi {{.RecipientName}},</p>
  <p>This is a reminder that <strong>{{.EventTitle}}</strong> starts on {{.StartsAt}}.</p>
  <p><a href="{{.Link}}">View event</a></p>
</body>
</html>`))

type InviteEmail struct {
	AppURL           string
	Token            string
	Email            string
	OrganizationName string
	InviterName      string
	Role             string
	ExpiresAt        time.Time
}

// InviteLink is the link the invitee follows. It depends only on the app URL and the token.
func InviteLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/invite/" + token
}

func RenderInvite(data InviteEmail) (Message, error) {
	link := InviteLink(data.AppURL, data.Token)
	var buf bytes.Buffer
	err := inviteTemplate.Execute(&buf, map[string]string{
		"OrganizationName": data.OrganizationName,
		"InviterName":      data.InviterName,
		"Role":             strings.ToLower(data.Role),
		"Link":             link,
		"ExpiresAt":        data.ExpiresAt.UTC().Format("January 2, 2006"),
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render invite email: %w", err)
	}

	return Message{
		To:       data.Email,
		Subject:  fmt.Sprintf("You've been invited to join %s on Evently", data.OrganizationName),
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf("%s has invited you to join %s on Evently.\n\nAccept the invitation: %s\n",
			data.InviterName, data.OrganizationName, link),
	}, nil
}

type ReminderEmail struct {
	AppURL        string
	EventID       string
	EventTitle    string
	StartsAt      time.Time
	RecipientName string
	Email         string
}

func RenderReminder(data ReminderEmail) (Message, error) {
	link := strings.TrimRight(data.AppURL, "/") + "/events/" + data.EventID
	startsAt := data.StartsAt.UTC().Format("Mon, Jan 2 2006 at 15:04 MST")
	var buf bytes.Buffer
	err := reminderTemplate.Execute(&buf, map[string]string{
		"EventTitle":    data.EventTitle,
		"RecipientName": data.RecipientName,
		"StartsAt":      startsAt,
		"Link":          link,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render reminder email: %w", err)
	}

	return Message{
		To:       data.Email,
		ToName:   data.RecipientName,
		Subject:  fmt.Sprintf("Reminder: %s", data.EventTitle),
		HTMLBody: buf.String(),
		TextBody: fmt.Sprintf("%s starts on %s.\n%s\n", data.EventTitle, startsAt, link),
	}, nil
}
