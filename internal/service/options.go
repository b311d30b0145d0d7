package service

import (
	"time"

	"github.com/mmynk/mamachef/internal/config"
	"github.com/mmynk/mamachef/internal/conversation"
)

// Options tune how the services call the model.
type Options struct {
	ChatModel     string
	VisionModel   string
	ImageModel    string
	VideoModel    string
	Temperature   float64
	HistoryWindow int

	// MaxTries bounds attempts per model call; only network errors are retried.
	MaxTries      uint
	RetryInterval time.Duration

	// Timeout bounds one model call including retries. Zero means no limit.
	Timeout time.Duration

	// VideoTimeout replaces Timeout for video generation, which runs for minutes.
	VideoTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		ChatModel:     "gemini-2.5-flash",
		VisionModel:   "gemini-2.5-flash",
		ImageModel:    "gemini-2.5-flash-image",
		VideoModel:    "veo-3.1-fast-generate-preview",
		Temperature:   0.7,
		HistoryWindow: conversation.DefaultWindow,
		MaxTries:      3,
		RetryInterval: 500 * time.Millisecond,
		Timeout:       60 * time.Second,
		VideoTimeout:  6 * time.Minute,
	}
}

// OptionsFromConfig copies the model settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.ChatModel = cfg.ChatModel
	opts.VisionModel = cfg.VisionModel
	opts.ImageModel = cfg.ImageModel
	opts.VideoModel = cfg.VideoModel
	opts.Temperature = cfg.Temperature
	opts.HistoryWindow = cfg.HistoryWindow
	opts.MaxTries = cfg.GatewayMaxTries
	opts.Timeout = cfg.GatewayTimeout
	opts.VideoTimeout = cfg.VideoTimeout
	return opts
}
