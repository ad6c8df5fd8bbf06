package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/ngamolsky/Curbd/config"
	"github.com/ngamolsky/Curbd/pkg/models"
)

const sendTimeout = 5 * time.Second

type Notifier interface {
	SendPost(ctx context.Context, to string, post models.GeneratedPost) error
}

type MailerSendNotifier struct {
	ms   *mailersend.Mailersend
	from mailersend.From
}

func NewMailerSendNotifier(cfg config.Email) *MailerSendNotifier {
	return &MailerSendNotifier{
		ms:   mailersend.NewMailersend(cfg.APIKey),
		from: mailersend.From{Name: cfg.FromName, Email: cfg.From},
	}
}

func (n *MailerSendNotifier) SendPost(ctx context.Context, to string, post models.GeneratedPost) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	message := n.ms.Email.NewMessage()
	message.SetFrom(n.from)
	message.SetRecipients([]mailersend.Recipient{{Email: to}})
	message.SetSubject(Subject(post))
	message.SetHTML(RenderHTML(post))
	message.SetText(RenderText(post))

	if _, err := n.ms.Email.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send post to %s: %w", to, err)
	}
	return nil
}

func Subject(post models.GeneratedPost) string {
	return "Your Curbd post: " + post.Title
}

func RenderText(post models.GeneratedPost) string {
	return post.Title + "\n\n" + post.Description + "\n\n" + strings.Join(post.NormalizedHashtags(), " ")
}

func RenderHTML(post models.GeneratedPost) string {
	var b strings.Builder
	b.WriteString("<h1>" + html.EscapeString(post.Title) + "</h1>")
	b.WriteString("<p>" + html.EscapeString(post.Description) + "</p><p>")
	for i, tag := range post.NormalizedHashtags() {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("<span>" + html.EscapeString(tag) + "</span>")
	}
	b.WriteString("</p>")
	return b.String()
}
