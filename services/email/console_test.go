package emailsvc_test

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	appfs "github.com/meryambn/mimiScaleUp-sub005/fs"
	emailsvc "github.com/meryambn/mimiScaleUp-sub005/services/email"
	"github.com/meryambn/mimiScaleUp-sub005/testutil"
)

func TestConsoleService_SendMessages(t *testing.T) {
	logger := &testutil.Logger{}
	core.ParseEmailTemplates(appfs.FS, "templates/email", logger, true)
	require.Empty(t, logger.Entries("ERROR"))

	conf := &core.Config{AppName: "ScaleUp", FrontendBaseURL: "http://front.test"}
	svc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ResetSentMessages()

	to := []mail.Address{{Name: "Amina", Address: "amina@startup.test"}}
	tests := []struct {
		name     string
		msg      *core.EmailMessage
		wantSent bool
		wantText []string
	}{
		{
			name: "winner announcement",
			msg: &core.EmailMessage{
				To:           to,
				Subject:      "Winner",
				TemplateName: "winner_announcement",
				TemplateData: map[string]interface{}{"Name": "Amina", "Candidature": "Team Rocket", "Program": "Spring 2026"},
			},
			wantSent: true,
			wantText: []string{"Hello Amina", `"Team Rocket"`, `"Spring 2026"`, "http://front.test/programmes"},
		},
		{
			name:     "plain body",
			msg:      &core.EmailMessage{To: to, Subject: "Hi", BodyStr: "plain content"},
			wantSent: true,
			wantText: []string{"plain content"},
		},
		{
			name:     "no recipients",
			msg:      &core.EmailMessage{Subject: "Nobody", BodyStr: "lost"},
			wantSent: false,
		},
		{
			name:     "unknown template",
			msg:      &core.EmailMessage{To: to, Subject: "Empty", TemplateName: "does_not_exist"},
			wantSent: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(emailsvc.GetSentMessages())
			svc.SendMessages(tt.msg)
			sent := emailsvc.GetSentMessages()

			if !tt.wantSent {
				assert.Len(t, sent, before)
				return
			}
			require.Len(t, sent, before+1)
			got := sent[len(sent)-1]
			assert.Equal(t, tt.msg.Subject, got.Subject)
			for _, s := range tt.wantText {
				assert.True(t, strings.Contains(got.TextContent, s), "%q not in %q", s, got.TextContent)
			}
		})
	}
	assert.Empty(t, logger.Entries("ERROR"))
}
