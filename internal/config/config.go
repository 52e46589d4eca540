package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 配置校验错误
var (
	ErrServerURLMissing  = errors.New("未配置 CAS 服务器地址 (cas.server_url)")
	ErrServiceURLMissing = errors.New("未配置 CAS 客户端服务地址 (cas.service_url)")
)

// Config 应用配置
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	CAS    CASConfig    `mapstructure:"cas"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CASConfig CAS 服务器配置
type CASConfig struct {
	// ServerURL CAS 服务器根地址，校验后保证以 / 结尾
	ServerURL string `mapstructure:"server_url"`
	// ServiceURL 本服务在 CAS 侧注册的 service 地址
	ServiceURL string `mapstructure:"service_url"`
	// CertPath CAS 服务器证书路径，文件不存在时降级为信任所有证书
	CertPath string `mapstructure:"cert_path"`
	// ConnectTimeout 连接超时
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// ReadTimeout 读取超时
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Load 加载配置
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// 支持环境变量覆盖，如 CAS_SERVER_URL
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal()
}

// LoadFromFile 从指定文件加载配置
func LoadFromFile(path string) (*Config, error) {
	viper.SetConfigFile(path)
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal()
}

func unmarshal() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验并规范化配置
// CAS 两个地址均为必填；服务器地址统一补齐结尾的 /
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CAS.ServerURL) == "" {
		return ErrServerURLMissing
	}
	if strings.TrimSpace(c.CAS.ServiceURL) == "" {
		return ErrServiceURLMissing
	}

	if !strings.HasSuffix(c.CAS.ServerURL, "/") {
		c.CAS.ServerURL += "/"
	}

	return nil
}

// setDefaults 设置默认值
func setDefaults() {
	// 服务器默认配置
	viper.SetDefault("server.addr", ":8081")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	// CAS 默认配置
	viper.SetDefault("cas.cert_path", "configs/server.crt")
	viper.SetDefault("cas.connect_timeout", "10s")
	viper.SetDefault("cas.read_timeout", "10s")
}
