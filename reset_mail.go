package pinreset

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

var resetMailHTML = template.Must(template.New("reset_pin").Parse(`<h1>PIN Reset Request</h1>
<h2>From: {{.Sender}}</h2>
<p>Click the link below to reset your PIN. This link will expire in {{.Minutes}} minutes:</p>
<a href="{{.Link}}">{{.Link}}</a>
<p>If you didn't request this, please ignore this email.</p>
`))

type resetMailData struct {
	Sender  string
	Link    string
	Minutes int
}

// resetLink joins base with /reset-pin and the query-escaped token.
func resetLink(base, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("reset url base must be absolute")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/reset-pin"
	u.RawQuery = url.Values{"token": []string{token}}.Encode()
	return u.String(), nil
}

func buildResetMessage(cfg Config, to, token string, ttl time.Duration) (Message, error) {
	link, err := resetLink(cfg.Mail.ResetURLBase, token)
	if err != nil {
		return Message{}, err
	}

	data := resetMailData{
		Sender:  cfg.Institution.Name,
		Link:    link,
		Minutes: int((ttl + time.Minute - 1) / time.Minute),
	}
	if data.Sender == "" {
		data.Sender = cfg.Institution.EmailDomain
	}

	var html bytes.Buffer
	if err := resetMailHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf(
		"PIN Reset Request\nFrom: %s\n\nOpen the link below to reset your PIN. This link will expire in %d minutes:\n%s\n\nIf you didn't request this, please ignore this email.\n",
		data.Sender, data.Minutes, data.Link,
	)

	subject := cfg.Mail.Subject
	if subject == "" {
		subject = "Reset Your PIN"
	}

	return Message{
		To:      to,
		Subject: subject,
		HTML:    html.String(),
		Text:    text,
	}, nil
}

// maskEmail keeps the first character of the local part for log correlation.
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
