package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Split separates "/name@bot payload" into "/name" and "payload".
// Text that is not a command yields an empty name.
func Split(text string) (name, payload string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	name, payload, _ = strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return name, strings.TrimSpace(payload)
}

// Payload returns the argument part of the command carried by c.
func Payload(c tele.Context) string {
	if m := c.Message(); m != nil && m.Payload != "" {
		return m.Payload
	}
	_, payload := Split(c.Text())
	return payload
}
