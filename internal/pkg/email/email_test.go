package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	to   []string
	msg  string
}

func newCapturing(cfg SMTPConfig, fail error) (*EmailServiceImpl, *[]captured) {
	var sent []captured
	s := NewEmailService(cfg, zerolog.Nop())
	s.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		if fail != nil {
			return fail
		}
		sent = append(sent, captured{addr: addr, to: to, msg: string(msg)})
		return nil
	}
	return s, &sent
}

func TestSendMessageNotification(t *testing.T) {
	s, sent := newCapturing(SMTPConfig{Host: "smtp.test", Port: 587, FromEmail: "noreply@madrasa.nl", FromName: "Madrasa", SchoolName: "Madrasa Al-Huda"}, nil)

	err := s.SendMessageNotification(MessageNotification{
		ToEmail:    "ouder@example.nl",
		ToName:     "Fam. de Vries",
		SenderName: "Secretariaat",
		Title:      "Schoolreis <morgen>",
		Type:       "urgent",
		SentAt:     time.Date(2025, 10, 3, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "smtp.test:587", got.addr)
	assert.Equal(t, []string{"ouder@example.nl"}, got.to)
	assert.Contains(t, got.msg, "Subject: ")
	assert.Contains(t, got.msg, "Schoolreis &lt;morgen&gt;", "title is escaped in the body")
	assert.Contains(t, got.msg, "03-10-2025 09:30")
	assert.True(t, strings.Contains(got.msg, "\r\n\r\n<html>"))
}

func TestSendMessageNotification_Disabled(t *testing.T) {
	s, sent := newCapturing(SMTPConfig{}, nil)
	assert.False(t, s.Enabled())
	require.NoError(t, s.SendMessageNotification(MessageNotification{ToEmail: "x@y.nl", Title: "t"}))
	assert.Empty(t, *sent)
}

func TestSendAccountNotice_PropagatesErrors(t *testing.T) {
	s, _ := newCapturing(SMTPConfig{Host: "smtp.test", Port: 25, FromEmail: "a@b.nl"}, errors.New("connection refused"))
	err := s.SendAccountNotice("new@b.nl", "guardian", "https://app.madrasa.nl")
	assert.ErrorContains(t, err, "connection refused")
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("School", "a@b.nl", "x@y.nl\r\nBcc: evil@z.nl", "hi", "<p>x</p>", time.Unix(0, 0)))
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.Contains(t, msg, "To: x@y.nlBcc: evil@z.nl\r\n")
}
