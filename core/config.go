package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
)

type (
	DatabaseConfig struct {
		Engine        string
		Path          string // sqlite file
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	ServerConfig struct {
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	ReportsConfig struct {
		UpcomingDays      int
		CriticalAfterDays int
		AlertDays         int
		GroupCapacity     int
	}

	ReminderConfig struct {
		Schedule   string
		ExportDir  string
		Recipients []string // digest emails, none when empty
	}

	EmailConfig struct {
		SendgridApiKey string
		FromName       string
		FromAddress    string
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		Timezone     string
		RollbarToken string

		Database DatabaseConfig
		Server   ServerConfig
		Reports  ReportsConfig
		Reminder ReminderConfig
		Email    EmailConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location returns the school's time zone. Falls back to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the environment name, e.g. DEV_DATABASE_ENGINE.
func NewConfig() *Config {
	v := viper.New()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Tuition")
	v.SetDefault("build", "develop")
	v.SetDefault("workDir", wd)
	v.SetDefault("timezone", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("database.engine", EngineSQLite)
	v.SetDefault("database.path", "db.sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tuition")
	v.SetDefault("database.password", "tuition")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.name", "tuition")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.address", "127.0.0.1:8000")
	v.SetDefault("server.debugHost", "127.0.0.1:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("reports.upcomingDays", 3)
	v.SetDefault("reports.criticalAfterDays", 5)
	v.SetDefault("reports.alertDays", 7)
	v.SetDefault("reports.groupCapacity", 20)

	v.SetDefault("reminder.schedule", "0 9 * * *")
	v.SetDefault("reminder.exportDir", "")
	v.SetDefault("reminder.recipients", "") // comma separated

	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.fromName", "Tuition")
	v.SetDefault("email.fromAddress", "noreply@tuition.local")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		WorkDir:      v.GetString("workDir"),
		Timezone:     v.GetString("timezone"),
		RollbarToken: v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Path:          v.GetString("database.path"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Reports: ReportsConfig{
			UpcomingDays:      v.GetInt("reports.upcomingDays"),
			CriticalAfterDays: v.GetInt("reports.criticalAfterDays"),
			AlertDays:         v.GetInt("reports.alertDays"),
			GroupCapacity:     v.GetInt("reports.groupCapacity"),
		},
		Reminder: ReminderConfig{
			Schedule:   v.GetString("reminder.schedule"),
			ExportDir:  v.GetString("reminder.exportDir"),
			Recipients: splitList(v.GetString("reminder.recipients")),
		},
		Email: EmailConfig{
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
			FromName:       v.GetString("email.fromName"),
			FromAddress:    v.GetString("email.fromAddress"),
		},
	}
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
