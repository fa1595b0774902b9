package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"learncards/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultTextModel   = "gpt-3.5-turbo"
	DefaultVisionModel = "gpt-4o-mini"
)

// ProfileEnv names the environment variables that seed a profile.
type ProfileEnv struct {
	Key     string
	BaseURL string
	Model   string
}

var (
	BaseProfileEnv  = ProfileEnv{Key: "API_KEY", BaseURL: "API_BASE_URL", Model: "API_MODEL"}
	VideoProfileEnv = ProfileEnv{Key: "VIDEO_API_KEY", BaseURL: "VIDEO_API_BASE_URL", Model: "VIDEO_API_MODEL"}
)

var (
	keyPattern   = regexp.MustCompile(`(?i)apikey\s*[:=]\s*(\S+)`)
	basePattern  = regexp.MustCompile(`(?i)base[_-]?url\s*[:=]\s*["']?([^"'\s,]+)["']?`)
	modelPattern = regexp.MustCompile(`(?i)model\s*[:=]\s*["']?([^"'\s,]+)["']?`)
)

// LoadProfile resolves one API profile. Environment values and the built-in
// defaults come first; anything found in the file at path overrides them.
// A missing file is not an error: the caller gets a warning instead.
func LoadProfile(name, path string, env ProfileEnv, defaultModel string) (models.ApiProfile, []string, error) {
	p := models.ApiProfile{
		Name:    name,
		Key:     os.Getenv(env.Key),
		BaseURL: getenv(env.BaseURL, DefaultBaseURL),
		Model:   getenv(env.Model, defaultModel),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, []string{fmt.Sprintf("%s profile file %q not found; provide %s via environment or create the file", name, path, env.Key)}, nil
	}
	if err != nil {
		return p, nil, fmt.Errorf("read %s profile %s: %w", name, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := applyYAML(&p, raw); err != nil {
			return p, nil, fmt.Errorf("parse %s profile %s: %w", name, path, err)
		}
	default:
		applyText(&p, string(raw))
	}
	return p, nil, nil
}

func applyText(p *models.ApiProfile, raw string) {
	keyMatch := keyPattern.FindStringSubmatch(raw)
	if keyMatch != nil {
		p.Key = strings.TrimSpace(keyMatch[1])
	}
	if m := basePattern.FindStringSubmatch(raw); m != nil {
		p.BaseURL = strings.TrimSpace(m[1])
	}
	if m := modelPattern.FindStringSubmatch(raw); m != nil {
		p.Model = strings.TrimSpace(m[1])
	}
	// A file holding nothing but the key is accepted as-is.
	if keyMatch == nil {
		for _, line := range strings.Split(raw, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				p.Key = line
				break
			}
		}
	}
}

type yamlProfile struct {
	APIKey  string `yaml:"apikey"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

func applyYAML(p *models.ApiProfile, raw []byte) error {
	var y yamlProfile
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return err
	}
	if v := strings.TrimSpace(y.APIKey); v != "" {
		p.Key = v
	}
	if v := strings.TrimSpace(y.BaseURL); v != "" {
		p.BaseURL = v
	}
	if v := strings.TrimSpace(y.Model); v != "" {
		p.Model = v
	}
	return nil
}
