package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bharatconnect/pkg/env"
)

// Directory backends
const (
	BackendFirestore  = "firestore"
	BackendSelfHosted = "selfhosted"
)

// Auth providers for the keys service
const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

// Backup KDF algorithms
const (
	KDFPBKDF2   = "pbkdf2-sha256"
	KDFArgon2id = "argon2id"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Directory DirectoryConfig
	Firebase  FirebaseConfig
	Redis     RedisConfig
	Cockroach CockroachConfig
	Cassandra CassandraConfig
	MinIO     MinIOConfig
	JWT       JWTConfig
	Device    DeviceConfig
	Backup    BackupConfig
	Log       LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int
	Environment  string // development, staging, production
	ServiceName  string
	AuthProvider string // firebase, jwt

	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	RateLimitRequests  int
	RateLimitWindow    time.Duration
}

// DirectoryConfig selects where public keys and key vaults live
type DirectoryConfig struct {
	Backend string // firestore, selfhosted
}

// FirebaseConfig holds Firebase Admin SDK configuration
type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// CockroachConfig holds CockroachDB configuration
type CockroachConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// CassandraConfig holds Cassandra configuration
type CassandraConfig struct {
	Hosts    []string
	Keyspace string
	Username string
	Password string
	Timeout  time.Duration
}

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret   string
	Audience string
}

// DeviceConfig holds device-local settings for the CLI client
type DeviceConfig struct {
	DBPath string
}

// BackupConfig holds passphrase KDF settings
type BackupConfig struct {
	KDF                 string
	PBKDF2Iterations    int
	Argon2Time          int
	Argon2MemoryKB      int
	Argon2Threads       int
	MinPassphraseLength int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, stderr, file
	FilePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         env.GetInt("PORT", 8085),
			Environment:  env.GetString("ENV", "development"),
			ServiceName:  env.GetString("SERVICE_NAME", "keys-service"),
			AuthProvider: env.GetString("AUTH_PROVIDER", AuthJWT),

			CORSAllowedOrigins: env.GetSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RequestTimeout:     env.GetDuration("REQUEST_TIMEOUT", 30*time.Second),
			RateLimitRequests:  env.GetInt("RATE_LIMIT_REQUESTS", 120),
			RateLimitWindow:    env.GetDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Directory: DirectoryConfig{
			Backend: env.GetString("DIRECTORY_BACKEND", BackendFirestore),
		},
		Firebase: FirebaseConfig{
			ProjectID:       env.GetString("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: firstNonEmpty(env.GetString("FIREBASE_CREDENTIALS_PATH", ""), os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetInt("REDIS_POOL_SIZE", 10),
			Timeout:  env.GetDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		Cockroach: CockroachConfig{
			Host:     env.GetString("COCKROACH_HOST", "localhost"),
			Port:     env.GetInt("COCKROACH_PORT", 26257),
			User:     env.GetString("COCKROACH_USER", "root"),
			Password: env.GetStringFromFile("COCKROACH_PASSWORD", ""),
			Database: env.GetString("COCKROACH_DATABASE", "bharatconnect"),
			SSLMode:  env.GetString("COCKROACH_SSLMODE", "disable"),
		},
		Cassandra: CassandraConfig{
			Hosts:    env.GetSlice("CASSANDRA_HOSTS", []string{"localhost"}),
			Keyspace: env.GetString("CASSANDRA_KEYSPACE", "bharatconnect_ks"),
			Username: env.GetStringFromFile("CASSANDRA_USER", ""),
			Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
			Timeout:  env.GetDuration("CASSANDRA_TIMEOUT", 5*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env.GetStringFromFile("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env.GetStringFromFile("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    env.GetBool("MINIO_USE_SSL", false),
			Bucket:    env.GetString("MINIO_BUCKET", "bharatconnect-backups"),
		},
		JWT: JWTConfig{
			Secret:   env.GetStringFromFile("JWT_SECRET", ""),
			Audience: env.GetString("JWT_AUDIENCE", "bharatconnect-api"),
		},
		Device: DeviceConfig{
			DBPath: env.GetString("BHARAT_DEVICE_DB", defaultDeviceDBPath()),
		},
		Backup: BackupConfig{
			KDF:                 env.GetString("BACKUP_KDF", KDFPBKDF2),
			PBKDF2Iterations:    env.GetInt("BACKUP_PBKDF2_ITERATIONS", 600000),
			Argon2Time:          env.GetInt("BACKUP_ARGON2_TIME", 3),
			Argon2MemoryKB:      env.GetInt("BACKUP_ARGON2_MEMORY_KB", 64*1024),
			Argon2Threads:       env.GetInt("BACKUP_ARGON2_THREADS", 4),
			MinPassphraseLength: env.GetInt("BACKUP_MIN_PASSPHRASE_LENGTH", 8),
		},
		Log: LogConfig{
			Level:    env.GetString("LOG_LEVEL", "info"),
			Format:   env.GetString("LOG_FORMAT", "json"),
			Output:   env.GetString("LOG_OUTPUT", "stdout"),
			FilePath: env.GetString("LOG_FILE_PATH", "/logs/app.log"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Directory.Backend {
	case BackendFirestore, BackendSelfHosted:
	default:
		return fmt.Errorf("DIRECTORY_BACKEND must be %q or %q, got %q", BackendFirestore, BackendSelfHosted, c.Directory.Backend)
	}

	switch c.Server.AuthProvider {
	case AuthFirebase, AuthJWT:
	default:
		return fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", AuthFirebase, AuthJWT, c.Server.AuthProvider)
	}

	switch c.Backup.KDF {
	case KDFPBKDF2:
		if c.Backup.PBKDF2Iterations < 100000 {
			return fmt.Errorf("BACKUP_PBKDF2_ITERATIONS must be at least 100000")
		}
	case KDFArgon2id:
		if c.Backup.Argon2Time < 1 || c.Backup.Argon2MemoryKB < 8*1024 || c.Backup.Argon2Threads < 1 {
			return fmt.Errorf("argon2id parameters too weak (time>=1, memory>=8192KB, threads>=1)")
		}
	default:
		return fmt.Errorf("BACKUP_KDF must be %q or %q, got %q", KDFPBKDF2, KDFArgon2id, c.Backup.KDF)
	}

	if c.Server.Environment == "production" && c.Server.AuthProvider == AuthJWT {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	if c.Server.AuthProvider == AuthFirebase || c.Directory.Backend == BackendFirestore {
		if c.Firebase.CredentialsPath == "" && c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_PATH is required for the firestore backend")
		}
	}

	return nil
}

func defaultDeviceDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "device.db"
	}
	return filepath.Join(home, ".bharatconnect", "device.db")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
