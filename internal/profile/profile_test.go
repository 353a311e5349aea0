package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	p := &Profile{
		Mode:   "dev",
		Data:   t.TempDir(),
		Driver: "sqlite",
	}
	require.NoError(t, p.Validate())

	require.Equal(t, filepath.Join(p.Data, "wingman_dev.db"), p.DSN)
	require.Equal(t, 10*time.Second, p.GroupReuseWindow)
	require.Equal(t, 10*time.Second, p.ReplyCycleWindow)
	require.Equal(t, 10*time.Minute, p.ReaperInterval)
	require.Equal(t, "gpt-4o-mini", p.OpenAIModel)
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	p := &Profile{
		Mode:             "prod",
		Data:             t.TempDir(),
		Driver:           "sqlite",
		DSN:              "/tmp/custom.db",
		GroupReuseWindow: 30 * time.Second,
		OpenAIModel:      "gpt-4o",
	}
	require.NoError(t, p.Validate())
	require.Equal(t, "/tmp/custom.db", p.DSN)
	require.Equal(t, 30*time.Second, p.GroupReuseWindow)
	require.Equal(t, "gpt-4o", p.OpenAIModel)
}

func TestValidateUnknownModeFallsBack(t *testing.T) {
	p := &Profile{Mode: "staging", Data: t.TempDir(), Driver: "sqlite"}
	require.NoError(t, p.Validate())
	require.Equal(t, "demo", p.Mode)
	require.True(t, p.IsDev())
}

func TestHasReplyProvider(t *testing.T) {
	require.False(t, (&Profile{}).HasReplyProvider())
	require.True(t, (&Profile{ReplyAPIBaseURL: "https://api.example.com"}).HasReplyProvider())
	require.True(t, (&Profile{OpenAIAPIKey: "sk-test"}).HasReplyProvider())
}
