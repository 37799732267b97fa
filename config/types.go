package config

type Config struct {
	Debug    bool     `mapstructure:"debug"`
	Server   Server   `mapstructure:"server"`
	Micropub Micropub `mapstructure:"micropub"`
	Content  Content  `mapstructure:"content"`
	Media    Media    `mapstructure:"media"`
}

type Server struct {
	Address   string       `mapstructure:"address" validate:"required,hostname|ip"`
	Port      int          `mapstructure:"port" validate:"required,min=1,max=65535"`
	PublicUrl string       `mapstructure:"public_url" validate:"required,url"`
	Limits    ServerLimits `mapstructure:"limits"`
}

type ServerLimits struct {
	MaxPayloadSize  uint `mapstructure:"max_payload_size"`
	MaxFileSize     uint `mapstructure:"max_file_size"`
	MaxMultipartMem uint `mapstructure:"max_multipart_mem"`
}

type Micropub struct {
	MeUrl         string        `mapstructure:"me_url" validate:"required,url"`
	TokenEndpoint string        `mapstructure:"token_endpoint" validate:"required,url"`
	SyndicateTo   []SyndicateTo `mapstructure:"syndicate_to" validate:"dive"`
	TokenCache    *TokenCache   `mapstructure:"token_cache"`
}

// SyndicateTo describes one syndication target advertised by the endpoint.
type SyndicateTo struct {
	Uid     string       `mapstructure:"uid" validate:"required"`
	Name    string       `mapstructure:"name" validate:"required"`
	Service *ServiceInfo `mapstructure:"service"`
	User    *ServiceInfo `mapstructure:"user"`
}

type ServiceInfo struct {
	Name  string `mapstructure:"name"`
	Url   string `mapstructure:"url"`
	Photo string `mapstructure:"photo"`
}

// TokenCache enables Redis-backed caching of token verification results.
type TokenCache struct {
	Address    string `mapstructure:"address" validate:"required,hostname_port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"min=0"`
}

type Content struct {
	Strategy   string                     `mapstructure:"strategy" validate:"required,oneof=noop filesystem sql git d1"`
	Filesystem *FilesystemContentStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
	SQL        *SQLContentStrategy        `mapstructure:"sql" validate:"required_if=Strategy sql"`
	Git        *GitContentStrategy        `mapstructure:"git" validate:"required_if=Strategy git"`
	D1         *D1ContentStrategy         `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type FilesystemContentStrategy struct {
	Path        string `mapstructure:"path" validate:"required,abspath"`
	PublicUrl   string `mapstructure:"public_url" validate:"required,url"`
	PathPattern string `mapstructure:"path_pattern"`
}

type SQLContentStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	PublicUrl   string  `mapstructure:"public_url" validate:"required,url"`
	TablePrefix *string `mapstructure:"table_prefix"`
}

type GitContentStrategy struct {
	Repository string                 `mapstructure:"repository" validate:"required"`
	Branch     string                 `mapstructure:"branch"`
	Path       string                 `mapstructure:"path"`
	PublicUrl  string                 `mapstructure:"public_url" validate:"required,url"`
	Auth       GitContentStrategyAuth `mapstructure:"auth"`
}

type GitContentStrategyAuth struct {
	Method string                `mapstructure:"method" validate:"required,oneof=plain ssh"`
	Plain  *UsernamePasswordAuth `mapstructure:"plain" validate:"required_if=Method plain"`
	Ssh    *SshKeyAuth           `mapstructure:"ssh" validate:"required_if=Method ssh"`
}

type UsernamePasswordAuth struct {
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
}

type SshKeyAuth struct {
	Username           string `mapstructure:"username"`
	PrivateKeyFilePath string `mapstructure:"private_key_file_path" validate:"required,file"`
	Passphrase         string `mapstructure:"passphrase"`
}

type D1ContentStrategy struct {
	AccountID   string  `mapstructure:"account_id" validate:"required"`
	DatabaseID  string  `mapstructure:"database_id" validate:"required"`
	APIToken    string  `mapstructure:"api_token" validate:"required"`
	PublicUrl   string  `mapstructure:"public_url" validate:"required,url"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`
	TablePrefix *string `mapstructure:"table_prefix"`
}

type Media struct {
	Strategy   string                   `mapstructure:"strategy" validate:"required,oneof=noop filesystem s3"`
	Filesystem *FilesystemMediaStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
	S3         *S3MediaStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
}

type FilesystemMediaStrategy struct {
	Path        string `mapstructure:"path" validate:"required,abspath"`
	PublicUrl   string `mapstructure:"public_url" validate:"required,url"`
	PathPattern string `mapstructure:"path_pattern"`
}

type S3MediaStrategy struct {
	AccessKeyId   string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId   string `mapstructure:"secret_key_id" validate:"required"`
	Region        string `mapstructure:"region" validate:"required"`
	Bucket        string `mapstructure:"bucket" validate:"required"`
	Endpoint      string `mapstructure:"endpoint"`
	PublicBaseUrl string `mapstructure:"public_base_url" validate:"required,url"`
}
