package config

import "parrotbot/internal/markov"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled: false,
			},
			Discord: DiscordConfig{
				Enabled: false,
			},
			CLI: CLIConfig{
				UserID:   1,
				Username: "me",
			},
		},
		Archive: ArchiveConfig{
			DBPath:       "~/.parrotbot/archive.db",
			HistoryLimit: 0,
		},
		Parrot: ParrotConfig{
			MaxTokens:   markov.DefaultMaxTokens,
			Burst:       5,
			PerMinute:   20,
			Concurrency: 3,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
			Path:    "/metrics",
		},
	}
}
