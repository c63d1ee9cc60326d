// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values for the manager.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the manager API
	HTTPPort int

	// Kafka broker addresses
	KafkaBrokers []string

	// Consumer group id for the feedback consumers
	KafkaGroupID string

	// Base URL of the grid calibrator service
	CalibratorURL string

	// OTLP collector endpoint for traces
	OTELEndpoint string

	// Minimum log level: debug, info, warn or error
	LogLevel string

	// API rate limit per client address. 0 means unlimited.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbUrl := os.Getenv("DATABASE_URL")
	if dbUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port := 8080 // Default
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		port = p
	}

	brokers := []string{"localhost:9092"}
	if brokersStr := os.Getenv("KAFKA_BROKERS"); brokersStr != "" {
		brokers = brokers[:0]
		for _, b := range strings.Split(brokersStr, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		if len(brokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS contains no addresses")
		}
	}

	groupID := os.Getenv("KAFKA_GROUP_ID")
	if groupID == "" {
		groupID = "scrapeplane-manager"
	}

	calibratorURL := os.Getenv("CALIBRATOR_URL")
	if calibratorURL == "" {
		calibratorURL = "http://localhost:8085"
	}

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	rps := 10.0 // Default
	if rpsStr := os.Getenv("RATE_LIMIT_RPS"); rpsStr != "" {
		r, err := strconv.ParseFloat(rpsStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
		rps = r
	}

	burst := 20 // Default
	if burstStr := os.Getenv("RATE_LIMIT_BURST"); burstStr != "" {
		b, err := strconv.Atoi(burstStr)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		burst = b
	}

	return &Config{
		DatabaseURL:    dbUrl,
		HTTPPort:       port,
		KafkaBrokers:   brokers,
		KafkaGroupID:   groupID,
		CalibratorURL:  calibratorURL,
		OTELEndpoint:   otelEndpoint,
		LogLevel:       logLevel,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}, nil
}
