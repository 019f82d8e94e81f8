package config

import "github.com/kelseyhightower/envconfig"

// Fulfillment is the storefront service configuration. KafkaBrokers is
// optional: with no brokers the service runs without event publishing.
type Fulfillment struct {
	Port         string   `envconfig:"PORT" default:"8080"`
	PostgresURL  string   `envconfig:"POSTGRES_URL" required:"true"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
}

// Notifier is the event worker configuration.
type Notifier struct {
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS" required:"true"`
	EmailServiceURL string   `envconfig:"EMAIL_SERVICE_URL" required:"true"`
}

// Email is the stub email delivery service configuration.
type Email struct {
	Port string `envconfig:"PORT" default:"8083"`
}

func LoadFulfillment() (*Fulfillment, error) {
	var cfg Fulfillment
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadNotifier() (*Notifier, error) {
	var cfg Notifier
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadEmail() (*Email, error) {
	var cfg Email
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
