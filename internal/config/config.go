// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Pinning   PinningConfig   `mapstructure:"pinning"`
	Media     MediaConfig     `mapstructure:"media"`
	Detection DetectionConfig `mapstructure:"detection"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level           string `mapstructure:"level"`
	Format          string `mapstructure:"format"`
	OutputPath      string `mapstructure:"output_path"`
	ErrorOutputPath string `mapstructure:"error_output_path"`
	Maxsize         int    `mapstructure:"maxsize"`
	Maxbackups      int    `mapstructure:"maxbackups"`
	Maxage          int    `mapstructure:"maxage"`
	Compress        bool   `mapstructure:"compress"`
	TimeFormat      string `mapstructure:"time_format"`
}

type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// PinningConfig 是外部文件固定（pinning）网关的配置。
// APIBaseURL 是上传/删除接口地址，GatewayDomain 用于把 CID 拼成可访问的 URL。
type PinningConfig struct {
	APIBaseURL    string `mapstructure:"api_base_url"`
	GatewayDomain string `mapstructure:"gateway_domain"`
	Token         string `mapstructure:"token"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
}

// MediaConfig 是媒体上传相关的配置。
// MaxUploadMB 是单个上传文件（含视频）的大小上限，单位 MB。
// 超限的文件在本地校验阶段就会被拒绝，不会发起任何外部请求。
type MediaConfig struct {
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

// DetectionConfig 是外部目标检测 API 的配置。
type DetectionConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	DefaultPrompt string `mapstructure:"default_prompt"`
	MaxImageMB    int64  `mapstructure:"max_image_mb"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 配置文件并解析导入到 Conf 变量中
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("fatal error unmarshalling config: %w", err))
	}
}
