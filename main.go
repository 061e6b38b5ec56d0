package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hrflow/hrflow/agent"
	"github.com/hrflow/hrflow/config"
	"github.com/hrflow/hrflow/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("namespace", "hrflow", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("engine-url", "http://localhost:5678", "base url of the external automation engine")
	cmd.Flags().String("engine-webhook-url", "", "webhook base url of the engine, defaults to engine-url")
	cmd.Flags().String("engine-api-key", "", "api key for the engine management api")
	cmd.Flags().Duration("engine-timeout", 0, "request timeout for engine calls")
	cmd.Flags().String("cv-parser-url", "http://localhost:8001", "base url of the cv parsing service")
	cmd.Flags().String("audit-log-file", "hrflow_audit.log", "file the audit trail is written to, empty disables")
	cmd.Flags().Duration("allowlist-ttl", 0, "ttl of the cached allow-list rules")
	cmd.Flags().String("smtp-credential-id", "", "engine credential id for mail transport")
	cmd.Flags().String("smtp-credential-name", "", "engine credential name for mail transport")
	cmd.Flags().String("db-credential-id", "", "engine credential id for the hr database")
	cmd.Flags().String("db-credential-name", "", "engine credential name for the hr database")
	cmd.Flags().String("default-sender-email", "hr@hrflow.local", "sender address for compiled mail nodes")
	cmd.Flags().String("hr-inbox-email", "", "address behind the hr.inbox recipient placeholder")
	cmd.Flags().Bool("debug", false, "enable debug logging")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.EngineConfig.BaseUrl = viper.GetString("engine-url")
	c.cfg.EngineConfig.WebhookBaseUrl = viper.GetString("engine-webhook-url")
	if c.cfg.EngineConfig.WebhookBaseUrl == "" {
		c.cfg.EngineConfig.WebhookBaseUrl = c.cfg.EngineConfig.BaseUrl
	}
	c.cfg.EngineConfig.ApiKey = viper.GetString("engine-api-key")
	c.cfg.EngineConfig.RequestTimeout = viper.GetDuration("engine-timeout")
	c.cfg.CvParserUrl = viper.GetString("cv-parser-url")
	c.cfg.AuditLogFile = viper.GetString("audit-log-file")
	c.cfg.AllowlistTTL = viper.GetDuration("allowlist-ttl")
	c.cfg.CredentialsConf.SmtpCredentialId = viper.GetString("smtp-credential-id")
	c.cfg.CredentialsConf.SmtpCredentialName = viper.GetString("smtp-credential-name")
	c.cfg.CredentialsConf.DbCredentialId = viper.GetString("db-credential-id")
	c.cfg.CredentialsConf.DbCredentialName = viper.GetString("db-credential-name")
	c.cfg.CredentialsConf.DefaultSenderEmail = viper.GetString("default-sender-email")
	c.cfg.CredentialsConf.DefaultHrInboxEmail = viper.GetString("hr-inbox-email")
	c.cfg.Debug = viper.GetBool("debug")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	if err := logger.InitLogger(c.cfg.Debug); err != nil {
		return err
	}
	defer logger.Sync()
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "hrflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
