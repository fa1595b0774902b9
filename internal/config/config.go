package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIAddr           string
	StaticDir         string
	UploadDir         string
	FrameDir          string
	FrameCount        int
	FrameWidth        int
	DefaultCardCount  int
	MaxUploadMB       int
	MaxSourceRunes    int
	LLMTimeout        time.Duration
	PipelineTimeout   time.Duration
	PollInterval      time.Duration
	ProfileFile       string
	VideoProfileFile  string
	LLMProvider       string
	PostgresURL       string
	TemporalAddress   string
	TemporalTaskQueue string
	LogMode           string
	FFmpegPath        string
	FFprobePath       string
}

func Load() Config {
	return Config{
		APIAddr:           apiAddr(),
		StaticDir:         getenv("LEARNCARDS_STATIC_DIR", "./web"),
		UploadDir:         getenv("LEARNCARDS_UPLOAD_DIR", "./data/uploads"),
		FrameDir:          getenv("LEARNCARDS_FRAME_DIR", "./data/frames"),
		FrameCount:        getenvInt("LEARNCARDS_FRAME_COUNT", 4),
		FrameWidth:        getenvInt("LEARNCARDS_FRAME_WIDTH", 512),
		DefaultCardCount:  getenvInt("LEARNCARDS_DEFAULT_CARD_COUNT", 5),
		MaxUploadMB:       getenvInt("LEARNCARDS_MAX_UPLOAD_MB", 200),
		MaxSourceRunes:    getenvInt("LEARNCARDS_MAX_SOURCE_RUNES", 60000),
		LLMTimeout:        time.Duration(getenvInt("LEARNCARDS_LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		PipelineTimeout:   time.Duration(getenvInt("LEARNCARDS_PIPELINE_TIMEOUT_SECONDS", 600)) * time.Second,
		PollInterval:      time.Duration(getenvInt("LEARNCARDS_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		ProfileFile:       getenv("LEARNCARDS_PROFILE_FILE", "api"),
		VideoProfileFile:  getenv("LEARNCARDS_VIDEO_PROFILE_FILE", "api_video"),
		LLMProvider:       getenv("LEARNCARDS_LLM_PROVIDER", "openai"),
		PostgresURL:       getenv("LEARNCARDS_POSTGRES_URL", ""),
		TemporalAddress:   getenv("LEARNCARDS_TEMPORAL_ADDRESS", ""),
		TemporalTaskQueue: getenv("LEARNCARDS_TEMPORAL_TASK_QUEUE", "learncards"),
		LogMode:           getenv("LEARNCARDS_LOG_MODE", "dev"),
		FFmpegPath:        getenv("LEARNCARDS_FFMPEG", "ffmpeg"),
		FFprobePath:       getenv("LEARNCARDS_FFPROBE", "ffprobe"),
	}
}

// apiAddr honours a bare PORT the way hosting platforms set it.
func apiAddr() string {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		return ":" + port
	}
	return getenv("LEARNCARDS_API_ADDR", ":3000")
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
