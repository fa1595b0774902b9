package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearProfileEnv(t *testing.T) {
	for _, k := range []string{"API_KEY", "API_BASE_URL", "API_MODEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadProfileMissingFileFallsBackToEnv(t *testing.T) {
	clearProfileEnv(t)
	t.Setenv("API_KEY", "env-key")
	p, warnings, err := LoadProfile("base", filepath.Join(t.TempDir(), "api"), BaseProfileEnv, DefaultTextModel)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, "env-key", p.Key)
	require.Equal(t, DefaultBaseURL, p.BaseURL)
	require.Equal(t, DefaultTextModel, p.Model)
}

func TestLoadProfileRegexOverridesEnv(t *testing.T) {
	clearProfileEnv(t)
	t.Setenv("API_MODEL", "env-model")
	path := writeProfile(t, "api", "APIKEY = sk-abc\nBase_URL: \"https://llm.example.com/v1\",\nmodel='qwen-vl'\n")
	p, warnings, err := LoadProfile("base", path, BaseProfileEnv, DefaultTextModel)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, "sk-abc", p.Key)
	require.Equal(t, "https://llm.example.com/v1", p.BaseURL)
	require.Equal(t, "qwen-vl", p.Model)
}

func TestLoadProfilePartialFileKeepsDefaults(t *testing.T) {
	clearProfileEnv(t)
	path := writeProfile(t, "api", "baseurl=http://localhost:11434/v1\napikey: k1\n")
	p, _, err := LoadProfile("base", path, BaseProfileEnv, DefaultTextModel)
	require.NoError(t, err)
	require.Equal(t, "k1", p.Key)
	require.Equal(t, "http://localhost:11434/v1", p.BaseURL)
	require.Equal(t, DefaultTextModel, p.Model)
}

func TestLoadProfileBareKeyLine(t *testing.T) {
	clearProfileEnv(t)
	path := writeProfile(t, "api", "\n  sk-bare-key  \n")
	p, _, err := LoadProfile("base", path, BaseProfileEnv, DefaultTextModel)
	require.NoError(t, err)
	require.Equal(t, "sk-bare-key", p.Key)
}

func TestLoadProfileYAML(t *testing.T) {
	t.Setenv("VIDEO_API_KEY", "")
	t.Setenv("VIDEO_API_BASE_URL", "")
	t.Setenv("VIDEO_API_MODEL", "")
	path := writeProfile(t, "video.yaml", "apikey: yk\nmodel: gpt-4o\n")
	p, _, err := LoadProfile("video", path, VideoProfileEnv, DefaultVisionModel)
	require.NoError(t, err)
	require.Equal(t, "yk", p.Key)
	require.Equal(t, "gpt-4o", p.Model)
	require.Equal(t, DefaultBaseURL, p.BaseURL)
	require.Equal(t, "video", p.Name)
}

func TestLoadUsesPortOverride(t *testing.T) {
	t.Setenv("PORT", "8081")
	require.Equal(t, ":8081", Load().APIAddr)
}
