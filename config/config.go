package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost         string        `mapstructure:"server_host"`
	ServerPort         int           `mapstructure:"server_port"`
	ServerDomain       string        `mapstructure:"server_domain"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout  time.Duration `mapstructure:"server_idle_timeout"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 存储配置
	StorageType              string `mapstructure:"storage_type"`
	StorageLocalPath         string `mapstructure:"storage_local_path"`
	StoragePublicURL         string `mapstructure:"storage_public_url"`
	StorageMinioEndpoint     string `mapstructure:"storage_minio_endpoint"`
	StorageMinioAccessKey    string `mapstructure:"storage_minio_access_key"`
	StorageMinioSecretKey    string `mapstructure:"storage_minio_secret_key"`
	StorageMinioUseSSL       bool   `mapstructure:"storage_minio_use_ssl"`
	StorageMinioBucketPrefix string `mapstructure:"storage_minio_bucket_prefix"`
	StorageWebDAVURL         string `mapstructure:"storage_webdav_url"`
	StorageWebDAVUsername    string `mapstructure:"storage_webdav_username"`
	StorageWebDAVPassword    string `mapstructure:"storage_webdav_password"`
	StorageWebDAVRootPath    string `mapstructure:"storage_webdav_root_path"`

	// 缓存提供者配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`
	CacheCategoryTTL   time.Duration `mapstructure:"cache_category_ttl"`

	// 认证配置
	AuthJWTSecret      string        `mapstructure:"auth_jwt_secret"`
	AuthAccessTokenTTL time.Duration `mapstructure:"auth_access_token_ttl"`
	AuthAutoConfirm    bool          `mapstructure:"auth_auto_confirm"`
	AuthMinPassword    int           `mapstructure:"auth_min_password"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitAuthRPS    float64       `mapstructure:"rate_limit_auth_rps"`
	RateLimitAuthBurst  int           `mapstructure:"rate_limit_auth_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`

	// 上传与压缩配置
	UploadMaxSizeMB    int    `mapstructure:"upload_max_size_mb"`
	UploadMaxDimension int    `mapstructure:"upload_max_dimension"`
	UploadQuality      int    `mapstructure:"upload_quality"`
	UploadMaxPixels    int    `mapstructure:"upload_max_pixels"`
	AvatarMaxDimension int    `mapstructure:"avatar_max_dimension"`
	AvatarQuality      int    `mapstructure:"avatar_quality"`
	CompressEngine     string `mapstructure:"compress_engine"`
	CategorySeedFile   string `mapstructure:"category_seed_file"`

	// 会话与界面配置
	SessionCookieName   string        `mapstructure:"session_cookie_name"`
	SessionCookieSecure bool          `mapstructure:"session_cookie_secure"`
	SessionIdleTimeout  time.Duration `mapstructure:"session_idle_timeout"`
	SearchDebounce      time.Duration `mapstructure:"search_debounce"`
	ScrollThrottle      time.Duration `mapstructure:"scroll_throttle"`
	GalleryPageSize     int           `mapstructure:"gallery_page_size"`

	// Worker 配置
	WorkerCount     int `mapstructure:"worker_count"`
	WorkerQueueSize int `mapstructure:"worker_queue_size"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		loadConfig()
	})
}

func Get() *Config {
	return &globalConfig
}

// loadConfig Core configuration loading
func loadConfig() {
	setDefaults()

	// --config 指定的文件优先，否则读取 .env
	if path := viper.GetString("config_file_path"); path != "" {
		viper.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			viper.SetConfigType(ext)
		} else {
			viper.SetConfigType("env")
		}
	} else {
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")
	}

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Info: config file not found, using defaults and environment variables")
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", viper.ConfigFileUsed())
	}

	viper.AutomaticEnv()
	for _, key := range viper.AllKeys() {
		_ = viper.BindEnv(key, strings.ToUpper(key))
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
		os.Exit(1)
	}

	globalConfig.normalize()
}

// normalize 修正非法值
func (c *Config) normalize() {
	// WorkerCount: -1 = 使用 CPU 线程数, 0 = 使用默认值
	switch {
	case c.WorkerCount < 0:
		c.WorkerCount = runtime.GOMAXPROCS(0)
	case c.WorkerCount == 0:
		c.WorkerCount = getCpus()
	}

	if c.GalleryPageSize <= 0 {
		c.GalleryPageSize = 20
	}
	if c.UploadQuality <= 0 || c.UploadQuality > 100 {
		c.UploadQuality = 75
	}
	if c.AvatarQuality <= 0 || c.AvatarQuality > 100 {
		c.AvatarQuality = 80
	}
	if c.AuthMinPassword <= 0 {
		c.AuthMinPassword = 6
	}
}

// setDefaults 设置默认值
func setDefaults() {
	// 服务器配置默认值
	viper.SetDefault("server_host", "127.0.0.1")
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_domain", "")
	viper.SetDefault("server_read_timeout", "15s")
	viper.SetDefault("server_write_timeout", "60s")
	viper.SetDefault("server_idle_timeout", "120s")

	// 数据库配置默认值
	viper.SetDefault("db_type", "sqlite")
	viper.SetDefault("db_host", "localhost")
	viper.SetDefault("db_port", 5432)
	viper.SetDefault("db_username", "postgres")
	viper.SetDefault("db_password", "")
	viper.SetDefault("db_name", "image-gallery")
	viper.SetDefault("db_file_path", "./data/gallery.db")
	viper.SetDefault("db_max_open_conns", 50)
	viper.SetDefault("db_max_idle_conns", 10)
	viper.SetDefault("db_conn_max_lifetime", 3600)

	// 存储配置默认值
	viper.SetDefault("storage_type", "local")
	viper.SetDefault("storage_local_path", "./data/storage")
	viper.SetDefault("storage_public_url", "")
	viper.SetDefault("storage_minio_endpoint", "")
	viper.SetDefault("storage_minio_access_key", "")
	viper.SetDefault("storage_minio_secret_key", "")
	viper.SetDefault("storage_minio_use_ssl", false)
	viper.SetDefault("storage_minio_bucket_prefix", "gallery-")
	viper.SetDefault("storage_webdav_url", "")
	viper.SetDefault("storage_webdav_username", "")
	viper.SetDefault("storage_webdav_password", "")
	viper.SetDefault("storage_webdav_root_path", "/gallery")

	// 缓存提供者配置默认值
	viper.SetDefault("cache_type", "memory")
	viper.SetDefault("cache_redis_addr", "localhost:6379")
	viper.SetDefault("cache_redis_password", "")
	viper.SetDefault("cache_redis_db", 0)
	viper.SetDefault("cache_category_ttl", "10m")

	// 认证配置默认值
	viper.SetDefault("auth_jwt_secret", "")
	viper.SetDefault("auth_access_token_ttl", "1h")
	viper.SetDefault("auth_auto_confirm", true)
	viper.SetDefault("auth_min_password", 6)

	// 限流配置默认值
	viper.SetDefault("rate_limit_api_rps", 30.0)
	viper.SetDefault("rate_limit_api_burst", 60)
	viper.SetDefault("rate_limit_auth_rps", 0.5)
	viper.SetDefault("rate_limit_auth_burst", 5)
	viper.SetDefault("rate_limit_expire_time", "10m")

	// 上传与压缩配置默认值
	viper.SetDefault("upload_max_size_mb", 20)
	viper.SetDefault("upload_max_dimension", 1600)
	viper.SetDefault("upload_quality", 75)
	viper.SetDefault("upload_max_pixels", 50_000_000)
	viper.SetDefault("avatar_max_dimension", 200)
	viper.SetDefault("avatar_quality", 80)
	viper.SetDefault("compress_engine", "imaging")
	viper.SetDefault("category_seed_file", "./categories.yaml")

	// 会话与界面配置默认值
	viper.SetDefault("session_cookie_name", "gallery_sid")
	viper.SetDefault("session_cookie_secure", false)
	viper.SetDefault("session_idle_timeout", "2h")
	viper.SetDefault("search_debounce", "300ms")
	viper.SetDefault("scroll_throttle", "100ms")
	viper.SetDefault("gallery_page_size", 20)

	// Worker 配置默认值
	viper.SetDefault("worker_count", 0) // 0 表示使用默认值
	viper.SetDefault("worker_queue_size", 1000)
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// BaseURL 返回基础 URL
func (c *Config) BaseURL() string {
	if c.ServerDomain != "" {
		return strings.TrimRight(c.ServerDomain, "/")
	}
	host := c.ServerHost
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.ServerPort)
}

// ObjectBaseURL 返回存储对象的公开访问前缀
func (c *Config) ObjectBaseURL() string {
	if c.StoragePublicURL != "" {
		return strings.TrimRight(c.StoragePublicURL, "/")
	}
	return c.BaseURL() + "/files"
}

// getCpus 获取默认线程数量
func getCpus() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	return n
}
