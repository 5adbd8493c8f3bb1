// Package notify sends templated email notifications off the request path.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSignup          Kind = "signup"
	KindPasswordChanged Kind = "password_changed"
	KindResetLink       Kind = "reset_link"
	KindModerationAlert Kind = "moderation_alert"
)

type Message struct {
	ID        string
	Kind      Kind
	To        string
	Subject   string
	HTML      string
	CreatedAt time.Time
}

var bodies = template.Must(template.New("mail").Parse(`
{{define "signup"}}<h1>You successfully signed up!</h1>{{end}}
{{define "password_changed"}}<h1>You successfully changed your password!</h1>{{end}}
{{define "reset_link"}}<h1>You requested a password reset.</h1>
<h2>Click this <a href="{{.Link}}">link</a> to set a new password. It expires in {{.TTL}}.</h2>{{end}}
{{define "moderation_alert"}}<h1>Warning! Please delete the Event.</h1>
<p>Your event "{{.Title}}" has been reported {{.Reports}} times.</p>{{end}}
`))

func newMessage(kind Kind, to, subject string, data any) Message {
	var buf bytes.Buffer
	// Templates are fixed at init and data is plain values, so execution
	// only fails on a programming error.
	if err := bodies.ExecuteTemplate(&buf, string(kind), data); err != nil {
		panic(fmt.Sprintf("notify: render %s: %v", kind, err))
	}
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		Subject:   subject,
		HTML:      buf.String(),
		CreatedAt: time.Now().UTC(),
	}
}

func SignupConfirmation(to string) Message {
	return newMessage(KindSignup, to, "Sign up succeeded!", nil)
}

func PasswordChanged(to string) Message {
	return newMessage(KindPasswordChanged, to, "Password changed!", nil)
}

func ResetLink(to, link string, ttl time.Duration) Message {
	return newMessage(KindResetLink, to, "Password Reset", struct {
		Link string
		TTL  time.Duration
	}{link, ttl})
}

func ModerationAlert(to, eventTitle string, reports int) Message {
	subject := fmt.Sprintf("Your Event with title %s has been reported many times.", eventTitle)
	return newMessage(KindModerationAlert, to, subject, struct {
		Title   string
		Reports int
	}{eventTitle, reports})
}
