package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Public    PublicConfig    `mapstructure:"public"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	BootstrapServers     []string          `mapstructure:"bootstrap_servers"`
	ClientID             string            `mapstructure:"client_id"`
	GroupID              string            `mapstructure:"group_id"`
	Enabled              bool              `mapstructure:"enabled"`
	Topics               KafkaTopicsConfig `mapstructure:"topics"`
	CommitOnDecodeError  bool              `mapstructure:"commit_on_decode_error"`
	CommitOnProcessError bool              `mapstructure:"commit_on_process_error"`
}

type KafkaTopicsConfig struct {
	VideoIngested   string `mapstructure:"video_ingested"`
	VideoTranscoded string `mapstructure:"video_transcoded"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	ExpireTime time.Duration `mapstructure:"expire_time"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// StorageConfig 对象存储配置，按逻辑桶（media / archive）区分凭证与前缀。
type StorageConfig struct {
	Media   BucketConfig `mapstructure:"media"`
	Archive BucketConfig `mapstructure:"archive"`
}

// BucketConfig 单个逻辑桶的接入配置
type BucketConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	PublicBase      string `mapstructure:"public_base"`
}

// TranscodeConfig 转码配置
type TranscodeConfig struct {
	FFmpeg       FFmpegConfig  `mapstructure:"ffmpeg"`
	AllowInline  bool          `mapstructure:"allow_inline"`
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	ProbePath   string        `mapstructure:"probe_path"`
	TempDir     string        `mapstructure:"temp_dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
	VideoCodec  string        `mapstructure:"video_codec"`
	VideoPreset string        `mapstructure:"video_preset"`
	VideoCRF    int           `mapstructure:"video_crf"`
	Threads     int           `mapstructure:"threads"`
}

// ThumbnailConfig 封面图生成配置
type ThumbnailConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
}

// WorkerConfig 轮询Worker相关配置
type WorkerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	WorkerID        string        `mapstructure:"worker_id"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	IdleDelay       time.Duration `mapstructure:"idle_delay"`
	FailureCooldown time.Duration `mapstructure:"failure_cooldown"`
	LeaseTTL        time.Duration `mapstructure:"lease_ttl"`
	ReapInterval    time.Duration `mapstructure:"reap_interval"`
}

// QueueConfig 进程内作业队列配置
type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// PublicConfig 对外访问配置
type PublicConfig struct {
	StorageBase string `mapstructure:"storage_base"`
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobalConfig 设置全局配置（必须在资源管理器初始化之前）
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.client_id", "media-transcode-service")
	viper.SetDefault("kafka.group_id", "media-transcode-group")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	viper.SetDefault("kafka.topics.video_ingested", "video.ingested")
	viper.SetDefault("kafka.topics.video_transcoded", "video.transcoded")
	viper.SetDefault("kafka.commit_on_decode_error", true)
	viper.SetDefault("kafka.commit_on_process_error", false)

	// 设置环境变量前缀
	viper.SetEnvPrefix("MEDIA_TRANSCODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Normalize()

	return &config, nil
}

// Normalize 补全配置的默认值
func (c *Config) Normalize() {
	normalizeBucket(&c.Storage.Media)
	normalizeBucket(&c.Storage.Archive)
	if c.Storage.Media.KeyPrefix == "" {
		c.Storage.Media.KeyPrefix = "videos/"
	}
	if c.Storage.Archive.KeyPrefix == "" {
		c.Storage.Archive.KeyPrefix = "archive/"
	}

	// FFmpeg默认值
	if c.Transcode.FFmpeg.TempDir == "" {
		c.Transcode.FFmpeg.TempDir = "/tmp/transcode"
	}
	if c.Transcode.FFmpeg.BinaryPath == "" {
		c.Transcode.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Transcode.FFmpeg.ProbePath == "" {
		c.Transcode.FFmpeg.ProbePath = "ffprobe"
	}
	if c.Transcode.FFmpeg.VideoCodec == "" {
		c.Transcode.FFmpeg.VideoCodec = "libx264"
	}
	if c.Transcode.FFmpeg.VideoPreset == "" {
		c.Transcode.FFmpeg.VideoPreset = "medium"
	}
	if c.Transcode.FFmpeg.VideoCRF <= 0 {
		c.Transcode.FFmpeg.VideoCRF = 23
	}
	if c.Transcode.FFmpeg.Threads < 0 {
		c.Transcode.FFmpeg.Threads = 0
	}
	if c.Transcode.FFmpeg.Timeout == 0 {
		c.Transcode.FFmpeg.Timeout = time.Hour
	}
	if c.Transcode.SignedURLTTL <= 0 {
		c.Transcode.SignedURLTTL = time.Hour
	}

	if c.Thumbnail.Width <= 0 {
		c.Thumbnail.Width = 640
	}

	// Worker相关默认值
	if c.Worker.WorkerID == "" {
		c.Worker.WorkerID = "transcode-worker"
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 3 * time.Second
	}
	if c.Worker.IdleDelay <= 0 {
		c.Worker.IdleDelay = 10 * time.Second
	}
	if c.Worker.FailureCooldown <= 0 {
		c.Worker.FailureCooldown = 30 * time.Second
	}
	if c.Worker.LeaseTTL <= 0 {
		c.Worker.LeaseTTL = 2 * time.Hour
	}
	if c.Worker.ReapInterval <= 0 {
		c.Worker.ReapInterval = 5 * time.Minute
	}

	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 100
	}

	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "media-transcode-service"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "media-transcode-group"
	}
	if c.Kafka.Topics.VideoIngested == "" {
		c.Kafka.Topics.VideoIngested = "video.ingested"
	}
	if c.Kafka.Topics.VideoTranscoded == "" {
		c.Kafka.Topics.VideoTranscoded = "video.transcoded"
	}
}

func normalizeBucket(b *BucketConfig) {
	// 兼容不同的密钥字段
	if b.AccessKeyID == "" {
		b.AccessKeyID = b.AccessKey
	}
	if b.SecretAccessKey == "" {
		b.SecretAccessKey = b.SecretKey
	}
	if b.KeyPrefix != "" && !strings.HasSuffix(b.KeyPrefix, "/") {
		b.KeyPrefix += "/"
	}
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
