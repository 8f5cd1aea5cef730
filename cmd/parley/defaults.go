package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global LLM fallbacks; profiles may override per tenant.
	viper.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.request_timeout", 90*time.Second)

	viper.SetDefault("profile_dir", "profiles")
	viper.SetDefault("history_dir", "data/history")
	viper.SetDefault("status_path", "data/tenants.json")

	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 8620)
	viper.SetDefault("server.queue_size", 256)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}
