// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "debatetab")

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", "logs/debatetab.log")
	viper.SetDefault("logging.fileoutput.level", "info")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.sessionname", "debatetab_session")
	viper.SetDefault("security.cookiesecure", false)

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "debatetab.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.username", "debatetab")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "debatetab")

	viper.SetDefault("notification.queue.type", QueueMemory)
	viper.SetDefault("notification.queue.buffersize", 100)
	viper.SetDefault("notification.queue.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("notification.queue.mqtt.topic", "debatetab/notifications")
	viper.SetDefault("notification.queue.mqtt.clientid", "debatetab")
	viper.SetDefault("notification.queue.mqtt.qos", 1)
	viper.SetDefault("notification.queue.webhook.url", "")
	viper.SetDefault("notification.queue.webhook.timeout", 10*time.Second)

	viper.SetDefault("notification.email.smtpurl", "")
	viper.SetDefault("notification.email.from", "")
	viper.SetDefault("notification.email.timeout", 30*time.Second)
	viper.SetDefault("notification.email.ratelimit", 2.0)
	viper.SetDefault("notification.email.burst", 5)
	viper.SetDefault("notification.email.siteurl", "http://localhost:8080")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
}
