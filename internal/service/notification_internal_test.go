package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type capturingSender struct {
	subjects []string
}

func (c *capturingSender) Send(_ context.Context, _, subject, _ string) error {
	c.subjects = append(c.subjects, subject)
	return nil
}

func TestSendTemplatedEmail_SubjectHasNoLineBreaks(t *testing.T) {
	sender := &capturingSender{}
	svc := &NotificationService{sender: sender, caser: cases.Title(language.English)}

	err := svc.SendTemplatedEmail(context.Background(), "u1@example.com", TemplateOverdueNotice, map[string]interface{}{
		"Name":         "Una",
		"TemplateName": "check-in\r\nBcc: victim@example.com",
		"ClientName":   "Acme\nX-Injected: yes",
		"DueDate":      "2024-01-08",
	})
	require.NoError(t, err)
	require.Len(t, sender.subjects, 1)
	subject := sender.subjects[0]
	assert.NotContains(t, subject, "\r")
	assert.NotContains(t, subject, "\n")
	assert.Contains(t, subject, "Acme X-Injected: yes")
}
