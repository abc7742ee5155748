package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vibast-solutions/ms-go-contact/app/logging"
	"github.com/vibast-solutions/ms-go-contact/app/operatorlog"
	"github.com/vibast-solutions/ms-go-contact/app/provider"
	"github.com/vibast-solutions/ms-go-contact/app/queue"
	"github.com/vibast-solutions/ms-go-contact/app/repository"
	"github.com/vibast-solutions/ms-go-contact/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	sinkRedis = "redis"
	sinkMySQL = "mysql"
)

// loadConfig loads configuration and the process logger.
func loadConfig() (*config.Config, *logrus.Logger) {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat)
}

// openRedis connects to Redis when REDIS_ADDR is set; a nil client means
// Redis is not configured.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

// openMySQL connects to MySQL when MYSQL_DSN is set; a nil handle means
// MySQL is not configured.
func openMySQL(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.MySQLDSN == "" {
		return nil, nil
	}

	dsn, err := mysqlDSN(cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(cfg.MySQLMaxLife)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(raw string) (string, error) {
	dsnCfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parse MYSQL_DSN: %w", err)
	}
	dsnCfg.ParseTime = true
	return dsnCfg.FormatDSN(), nil
}

// buildBackends returns the delivery chain in priority order: the
// transactional API first, then the SMTP relay. Unconfigured backends are
// left out, so the chain may be empty.
func buildBackends(ctx context.Context, cfg *config.Config) ([]provider.EmailBackend, error) {
	var backends []provider.EmailBackend

	switch cfg.PrimaryAPIProvider {
	case "", "brevo":
		if cfg.Brevo.Configured() {
			brevo, err := provider.NewBrevoProvider(cfg.Brevo.BaseURL, cfg.Brevo.APIKey, cfg.Brevo.SenderEmail, cfg.Brevo.SenderName)
			if err != nil {
				return nil, fmt.Errorf("build brevo provider: %w", err)
			}
			backends = append(backends, brevo)
		}
	case "ses":
		if cfg.SES.Configured() {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
				awsconfig.WithRegion(cfg.SES.Region),
				awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(
					credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
				)),
			)
			if err != nil {
				return nil, fmt.Errorf("load aws config: %w", err)
			}
			backends = append(backends, provider.NewSESProvider(awsCfg, cfg.SES.SourceEmail))
		}
	case "none":
	default:
		return nil, fmt.Errorf("unsupported PRIMARY_API_PROVIDER: %s", cfg.PrimaryAPIProvider)
	}

	if cfg.SMTP != nil {
		smtp, err := provider.NewSMTPProvider(cfg.SMTP.Source, cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			return nil, fmt.Errorf("build smtp provider: %w", err)
		}
		backends = append(backends, smtp)
	}

	return backends, nil
}

// buildSinks maps OPERATOR_LOG_SINKS onto the Redis stream and MySQL table.
func buildSinks(cfg *config.Config, rdb *redis.Client, db *sql.DB) ([]operatorlog.Sink, error) {
	var sinks []operatorlog.Sink
	for _, name := range cfg.OperatorLogSinks {
		switch name {
		case sinkRedis:
			if rdb == nil {
				return nil, fmt.Errorf("operator log sink %q requires REDIS_ADDR", name)
			}
			sinks = append(sinks, operatorlog.NewSink(sinkRedis, queue.NewEventProducer(rdb).Publish))
		case sinkMySQL:
			if db == nil {
				return nil, fmt.Errorf("operator log sink %q requires MYSQL_DSN", name)
			}
			sinks = append(sinks, operatorlog.NewSink(sinkMySQL, repository.NewOperatorEventRepository(db).Create))
		default:
			return nil, fmt.Errorf("unsupported operator log sink: %s", name)
		}
	}
	return sinks, nil
}
