// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSecuritySettings(&settings.Security, settings.WebServer.Enabled); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateQueueSettings(&settings.Notification.Queue); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateEmailSettings(&settings.Notification.Email); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry is enabled but no DSN is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid web server port: %q", settings.Port)
	}
	return nil
}

func validateSecuritySettings(settings *SecuritySettings, webEnabled bool) error {
	if webEnabled && settings.SessionSecret == "" {
		return fmt.Errorf("security.sessionsecret must be set when the web server is enabled")
	}
	if settings.SessionName == "" {
		return fmt.Errorf("security.sessionname must not be empty")
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch settings.Type {
	case DatabaseSQLite:
		if settings.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path must not be empty")
		}
	case DatabaseMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return fmt.Errorf("database.mysql host and database must be set")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", settings.Type)
	}
	return nil
}

func validateQueueSettings(settings *QueueSettings) error {
	switch settings.Type {
	case QueueMemory:
		if settings.BufferSize <= 0 {
			return fmt.Errorf("notification.queue.buffersize must be positive")
		}
	case QueueMQTT:
		if settings.MQTT.Broker == "" || settings.MQTT.Topic == "" {
			return fmt.Errorf("notification.queue.mqtt broker and topic must be set")
		}
		if settings.MQTT.QoS > 2 {
			return fmt.Errorf("notification.queue.mqtt.qos must be 0, 1 or 2")
		}
	case QueueWebhook:
		u, err := url.Parse(settings.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("notification.queue.webhook.url must be an http(s) URL")
		}
	default:
		return fmt.Errorf("unsupported notification queue type: %q", settings.Type)
	}
	return nil
}

func validateEmailSettings(settings *EmailSettings) error {
	if settings.SMTPURL != "" && !strings.HasPrefix(settings.SMTPURL, "smtp://") {
		return fmt.Errorf("notification.email.smtpurl must use the smtp:// scheme")
	}
	if settings.RateLimit < 0 {
		return fmt.Errorf("notification.email.ratelimit must not be negative")
	}
	if settings.Burst < 1 {
		return fmt.Errorf("notification.email.burst must be at least 1")
	}
	if settings.SiteURL != "" && !strings.HasPrefix(settings.SiteURL, "http://") && !strings.HasPrefix(settings.SiteURL, "https://") {
		return fmt.Errorf("notification.email.siteurl must be an http(s) URL")
	}
	return nil
}
