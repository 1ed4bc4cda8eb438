package streams

import (
	"fmt"
	"html/template"
	"strings"

	"letters-backend/domain"
)

// renderedEmail is a notification ready to hand to the sender.
type renderedEmail struct {
	Subject string
	HTML    string
}

var commentTemplate = template.Must(template.New("comment").Parse(`
<p><strong>{{.UserName}}</strong> commented on <em>{{.ItemTitle}}</em>:</p>
<blockquote>{{.Excerpt}}</blockquote>
<p><a href="{{.Link}}">Read the conversation</a></p>
`))

var reactionTemplate = template.Must(template.New("reaction").Parse(`
<p>Someone appreciated your comment.</p>
<p><a href="{{.Link}}">See it</a></p>
`))

var messageTemplate = template.Must(template.New("message").Parse(`
<p><strong>{{.SenderName}}</strong> sent you a message:</p>
<blockquote>{{.Excerpt}}</blockquote>
<p><a href="{{.Link}}">Reply</a></p>
`))

const excerptLimit = 100

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + "..."
}

func renderCommentEmail(comment domain.Comment, baseURL string) renderedEmail {
	title := comment.ItemTitle
	if title == "" {
		title = "a letter"
	}
	var body strings.Builder
	_ = commentTemplate.Execute(&body, map[string]string{
		"UserName":  fallback(comment.UserName, "Someone"),
		"ItemTitle": title,
		"Excerpt":   excerpt(comment.CommentText),
		"Link":      fmt.Sprintf("%s/letters/%s", baseURL, comment.ItemID),
	})
	return renderedEmail{
		Subject: fmt.Sprintf("%s commented on %s", fallback(comment.UserName, "Someone"), title),
		HTML:    body.String(),
	}
}

func renderReactionEmail(reaction domain.Reaction, baseURL string) renderedEmail {
	var body strings.Builder
	_ = reactionTemplate.Execute(&body, map[string]string{
		"Link": fmt.Sprintf("%s/letters/%s", baseURL, reaction.ItemID),
	})
	return renderedEmail{
		Subject: "Someone reacted to your comment",
		HTML:    body.String(),
	}
}

func renderMessageEmail(msg domain.Message, baseURL string) renderedEmail {
	var body strings.Builder
	_ = messageTemplate.Execute(&body, map[string]string{
		"SenderName": fallback(msg.SenderName, "Someone"),
		"Excerpt":    excerpt(msg.MessageText),
		"Link":       fmt.Sprintf("%s/messages/%s", baseURL, msg.ConvID),
	})
	return renderedEmail{
		Subject: fmt.Sprintf("New message from %s", fallback(msg.SenderName, "Someone")),
		HTML:    body.String(),
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
