package config

import "time"

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type Config struct {
	HttpPort        int
	StorageType     StorageType
	RedisConfig     RedisConfig
	EngineConfig    EngineConfig
	CredentialsConf CredentialsConfig
	CvParserUrl     string
	AuditLogFile    string
	AllowlistTTL    time.Duration
	Debug           bool
}

type RedisConfig struct {
	Addrs     []string
	Namespace string
	Password  string
}

// EngineConfig locates the external automation engine. Requests carry the
// ApiKey header; webhook invocations go to WebhookBaseUrl, definition
// management to BaseUrl.
type EngineConfig struct {
	BaseUrl        string
	WebhookBaseUrl string
	ApiKey         string
	RequestTimeout time.Duration
}

// CredentialsConfig names the credential records pre-provisioned inside the
// external engine. The node compiler refuses to emit email or database
// nodes when the matching identifiers are blank: that is a deployment
// error, not a per-node data error.
type CredentialsConfig struct {
	SmtpCredentialId    string
	SmtpCredentialName  string
	DbCredentialId      string
	DbCredentialName    string
	DefaultSenderEmail  string
	DefaultHrInboxEmail string
}
