// Package config handles loading and validating the bot configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Loading a .env file into the process environment
//   - Overriding with environment variables (DISCORD_TOKEN, MQTT_BROKER, ...)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The Discord token and MQTT password should be set via environment variables
//   - The config file and .env file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	if err := config.LoadEnvFile(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Topic)
package config
