package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type CORS struct {
	AllowOrigins []string
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
	CORS  CORS
}

type Log struct {
	Level string
	JSON  bool
	// 文件切割（File 为空则只写 stdout）
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// 注册模式
const (
	RegistrationOpen       = "open"
	RegistrationPrivileged = "privileged"
)

type Auth struct {
	Secret              string
	Issuer              string
	AccessTokenTTLMin   int
	RefreshTokenTTLDays int
	LeewaySec           int
	BcryptCost          int
	Registration        string // open | privileged
	PurgeIntervalMin    int    // 0 关闭过期 token 清理
	UserCacheTTLSec     int
}

func (a Auth) AccessTTL() time.Duration { return time.Duration(a.AccessTokenTTLMin) * time.Minute }
func (a Auth) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}
func (a Auth) Leeway() time.Duration { return time.Duration(a.LeewaySec) * time.Second }

// Bootstrap 启动时带外创建的账号（如首个 super_admin）
type Bootstrap struct {
	Email    string
	Password string
	Role     string
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App       App
	Log       Log
	Auth      Auth
	Bootstrap Bootstrap
	DB        DB
	Redis     Redis `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.cors.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 7)
	v.SetDefault("log.maxAgeDays", 30)

	v.SetDefault("auth.issuer", "go-gin-gorm-auth")
	v.SetDefault("auth.accessTokenTTLMin", 30)
	v.SetDefault("auth.refreshTokenTTLDays", 7)
	v.SetDefault("auth.bcryptCost", 10)
	v.SetDefault("auth.registration", RegistrationOpen)
	v.SetDefault("auth.purgeIntervalMin", 0)
	v.SetDefault("auth.userCacheTTLSec", 60)

	v.SetDefault("bootstrap.role", "super_admin")

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")
}

// Read 读取配置文件 + APP_ 前缀环境变量；path 为空或文件不存在时只用默认值与环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv 只对已知 key 生效，无默认值的 key 需显式绑定
	for _, k := range []string{"auth.secret", "bootstrap.email", "bootstrap.password", "db.dsn", "db.username", "db.password", "redis.addr", "redis.password", "redis.db", "log.json", "log.file", "log.compress"} {
		_ = v.BindEnv(k)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load 启动期使用，失败直接退出
func Load(path string) *Config {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	c, err := Read(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func (c *Config) Validate() error {
	switch {
	case c.Auth.Secret == "":
		return errors.New("auth.secret is required")
	case c.Auth.AccessTokenTTLMin <= 0:
		return errors.New("auth.accessTokenTTLMin must be positive")
	case c.Auth.RefreshTokenTTLDays <= 0:
		return errors.New("auth.refreshTokenTTLDays must be positive")
	case c.Auth.Registration != RegistrationOpen && c.Auth.Registration != RegistrationPrivileged:
		return fmt.Errorf("auth.registration must be %q or %q", RegistrationOpen, RegistrationPrivileged)
	case c.DB.Driver != "mysql" && c.DB.Driver != "postgres" && c.DB.Driver != "memory":
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	case c.Redis.Addr != "" && c.Auth.UserCacheTTLSec <= 0:
		return errors.New("auth.userCacheTTLSec must be positive when redis.addr is set")
	}
	if c.Bootstrap.Email != "" && c.Bootstrap.Password == "" {
		return errors.New("bootstrap.password is required when bootstrap.email is set")
	}
	return nil
}
