package config

import "time"

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDBPath = "pagerelay.db"

	DefaultMessengerBaseURL    = "https://graph.facebook.com"
	DefaultMessengerAPIVersion = "v12.0"
	DefaultMessengerTimeout    = 10 * time.Second

	DefaultReplyTemplate = "Thanks for your message! Our team will get back to you shortly."

	// Daily at 04:00.
	DefaultMaintenanceSchedule = "0 4 * * *"
)
