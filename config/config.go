package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"
)

// SysConfig system level configuration
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig HTTP API server configuration
type WebConfig struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	Secret        string `yaml:"secret" json:"secret"`
	JwtExpireDays int    `yaml:"jwt_expire_days" json:"jwt_expire_days"`
}

// DBConfig database configuration, supports postgres and sqlite
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig logger configuration
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// OtpConfig one-time-password configuration. DemoMode echoes the generated
// code back in the send-otp response so clients can be tested without a
// real delivery channel.
type OtpConfig struct {
	TTLMinutes int  `yaml:"ttl_minutes" json:"ttl_minutes"`
	DemoMode   bool `yaml:"demo_mode" json:"demo_mode"`
}

// AdminConfig admin API configuration
type AdminConfig struct {
	ApiKey string `yaml:"api_key" json:"api_key"`
}

type AppConfig struct {
	System   SysConfig   `yaml:"system" json:"system"`
	Web      WebConfig   `yaml:"web" json:"web"`
	Database DBConfig    `yaml:"database" json:"database"`
	Logger   LogConfig   `yaml:"logger" json:"logger"`
	Otp      OtpConfig   `yaml:"otp" json:"otp"`
	Admin    AdminConfig `yaml:"admin" json:"admin"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "OshirO",
		Location: "Asia/Kolkata",
		Workdir:  "/var/oshiro",
		Debug:    true,
	},
	Web: WebConfig{
		Host:          "0.0.0.0",
		Port:          8001,
		Secret:        "oshiro_secret_key_change_in_production",
		JwtExpireDays: 30,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "oshiro_v1",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/oshiro/oshiro.log",
	},
	Otp: OtpConfig{
		TTLMinutes: 10,
		DemoMode:   true,
	},
	Admin: AdminConfig{
		ApiKey: "oshiro_admin_2024",
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue == "true" || evalue == "1" || evalue == "on")
	}
}

func setEnvIntValue(name string, f func(v int)) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	p, err := strconv.ParseInt(evalue, 10, 64)
	if err == nil {
		f(int(p))
	}
}

// LoadConfig loads the yaml configuration file and applies OSHIRO_*
// environment overrides. A missing file falls back to defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(filepath.Clean(cfile)); err == nil {
			fcfg := new(AppConfig)
			if err := yaml.Unmarshal(data, fcfg); err == nil {
				cfg = fcfg
			}
		}
	}

	setEnvValue("OSHIRO_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvBoolValue("OSHIRO_SYSTEM_DEBUG", func(v bool) { cfg.System.Debug = v })

	setEnvValue("OSHIRO_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvIntValue("OSHIRO_WEB_PORT", func(v int) { cfg.Web.Port = v })
	setEnvValue("OSHIRO_WEB_SECRET", func(v string) { cfg.Web.Secret = v })

	setEnvValue("OSHIRO_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("OSHIRO_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvIntValue("OSHIRO_DB_PORT", func(v int) { cfg.Database.Port = v })
	setEnvValue("OSHIRO_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("OSHIRO_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("OSHIRO_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvBoolValue("OSHIRO_DB_DEBUG", func(v bool) { cfg.Database.Debug = v })

	setEnvValue("OSHIRO_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })
	setEnvBoolValue("OSHIRO_LOGGER_FILE_ENABLE", func(v bool) { cfg.Logger.FileEnable = v })

	setEnvIntValue("OSHIRO_OTP_TTL_MINUTES", func(v int) { cfg.Otp.TTLMinutes = v })
	setEnvBoolValue("OSHIRO_OTP_DEMO_MODE", func(v bool) { cfg.Otp.DemoMode = v })

	setEnvValue("OSHIRO_ADMIN_API_KEY", func(v string) { cfg.Admin.ApiKey = v })

	return cfg
}
