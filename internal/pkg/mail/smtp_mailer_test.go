package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("no-reply@armonyco.com", "a@b.com", "Hello", "<p>hi</p>"))

	assert.True(t, strings.HasPrefix(msg, "From: no-reply@armonyco.com\r\nTo: a@b.com\r\nSubject: Hello\r\n"))
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

func TestInvitationBodyEscapes(t *testing.T) {
	body := InvitationBody("Hotel <Miramare>", "Ada", "https://app.armonyco.com/invite?token=abc&x=1")

	assert.Contains(t, body, "Hotel &lt;Miramare&gt;")
	assert.Contains(t, body, "token=abc&amp;x=1")
}

func TestSendRequiresHost(t *testing.T) {
	err := (&SMTPMailer{}).Send("a@b.com", "s", "b")
	assert.Error(t, err)
}
