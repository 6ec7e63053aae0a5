package config

type Config struct {
	RateServiceAddr string
	RateTimeout     string
}
