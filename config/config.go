package config

import (
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// SysConfig holds process-level settings.
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig holds the admin API / websocket listener settings.
type WebConfig struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	Secret        string `yaml:"secret" json:"secret"`
	JwtExpireHour int    `yaml:"jwt_expire_hour" json:"jwt_expire_hour"`
}

// DBConfig holds relational database settings. Type is "postgres" or "sqlite".
type DBConfig struct {
	Type   string `yaml:"type" json:"type"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Name   string `yaml:"name" json:"name"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
	Debug  bool   `yaml:"debug" json:"debug"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// WhatsappConfig holds gateway-facing settings.
type WhatsappConfig struct {
	// PrintQR echoes pairing QR codes to the terminal (development only).
	PrintQR bool `yaml:"print_qr" json:"print_qr"`
	// RouterWorkers bounds concurrently running routing executions.
	RouterWorkers int `yaml:"router_workers" json:"router_workers"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system" json:"system"`
	Web      WebConfig      `yaml:"web" json:"web"`
	Database DBConfig       `yaml:"database" json:"database"`
	Logger   LogConfig      `yaml:"logger" json:"logger"`
	Whatsapp WhatsappConfig `yaml:"whatsapp" json:"whatsapp"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "zapticket",
		Location: "America/Sao_Paulo",
		Workdir:  "/var/zapticket",
		Debug:    true,
	},
	Web: WebConfig{
		Host:          "0.0.0.0",
		Port:          3000,
		Secret:        "dev-secret",
		JwtExpireHour: 8,
	},
	Database: DBConfig{
		Type:   "postgres",
		Host:   "127.0.0.1",
		Port:   5432,
		Name:   "zapticket",
		User:   "postgres",
		Passwd: "postgres",
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/zapticket/zapticket.log",
	},
	Whatsapp: WhatsappConfig{
		PrintQR:       false,
		RouterWorkers: 64,
	},
}

func setEnvValue(name string, val *string) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = cast.ToInt(evalue)
	}
}

// LoadConfig reads the yaml config file and applies environment overrides.
// A missing file is not an error; defaults are used.
func LoadConfig(cfile string) *AppConfig {
	defaults := *DefaultAppConfig
	cfg := &defaults
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			fileCfg := new(AppConfig)
			if err := yaml.Unmarshal(data, fileCfg); err == nil {
				cfg = fileCfg
			}
		}
	}

	setEnvValue("ZAPTICKET_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvBoolValue("ZAPTICKET_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("ZAPTICKET_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("ZAPTICKET_WEB_PORT", &cfg.Web.Port)
	setEnvValue("ZAPTICKET_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("ZAPTICKET_DB_TYPE", &cfg.Database.Type)
	setEnvValue("ZAPTICKET_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("ZAPTICKET_DB_PORT", &cfg.Database.Port)
	setEnvValue("ZAPTICKET_DB_NAME", &cfg.Database.Name)
	setEnvValue("ZAPTICKET_DB_USER", &cfg.Database.User)
	setEnvValue("ZAPTICKET_DB_PASSWD", &cfg.Database.Passwd)

	setEnvValue("ZAPTICKET_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("ZAPTICKET_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("ZAPTICKET_LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvBoolValue("ZAPTICKET_WHATSAPP_PRINT_QR", &cfg.Whatsapp.PrintQR)
	setEnvIntValue("ZAPTICKET_WHATSAPP_ROUTER_WORKERS", &cfg.Whatsapp.RouterWorkers)

	return cfg
}
