package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	StorePath    string `mapstructure:"STORE_PATH"`
	PublishRoot  string `mapstructure:"PUBLISH_ROOT"`
	StaticMirror string `mapstructure:"STATIC_MIRROR"`
	GitRemote    string `mapstructure:"GIT_REMOTE"`
	GitBranch    string `mapstructure:"GIT_BRANCH"`

	LLMAPIKey string `mapstructure:"LLM_API_KEY"`
	LLMModel  string `mapstructure:"LLM_MODEL"`

	ChatToken      string        `mapstructure:"CHAT_TOKEN"`
	AllowedChatIDs []string      `mapstructure:"ALLOWED_CHAT_IDS"`
	ChatTimeout    time.Duration `mapstructure:"CHAT_TIMEOUT"`
	CalendarURL    string        `mapstructure:"CALENDAR_URL"`

	STTAPIKey string `mapstructure:"STT_API_KEY"`
	STTURL    string `mapstructure:"STT_URL"`

	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	AirbnbICalURL      string        `mapstructure:"AIRBNB_ICAL_URL"`
	AirbnbSyncInterval time.Duration `mapstructure:"AIRBNB_SYNC_INTERVAL"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("STORE_PATH", "./reservations.csv")
	viper.SetDefault("GIT_REMOTE", "origin")
	viper.SetDefault("CHAT_TIMEOUT", 30*time.Second)
	viper.SetDefault("AIRBNB_SYNC_INTERVAL", time.Hour)

	viper.BindEnv("LLM_API_KEY")
	viper.BindEnv("LLM_MODEL")
	viper.BindEnv("CHAT_TOKEN")
	viper.BindEnv("ALLOWED_CHAT_IDS")
	viper.BindEnv("CALENDAR_URL")
	viper.BindEnv("STT_API_KEY")
	viper.BindEnv("STT_URL")
	viper.BindEnv("PUBLISH_ROOT")
	viper.BindEnv("STATIC_MIRROR")
	viper.BindEnv("GIT_BRANCH")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	viper.BindEnv("AIRBNB_ICAL_URL")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
