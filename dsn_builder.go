package ygggo_db

import (
	"fmt"
	"time"
)

// tlsMode is the engine-neutral TLS request a builder carries; Build maps
// it onto the driver's parameter vocabulary.
type tlsMode int

const (
	tlsUnset tlsMode = iota
	tlsDisabled
	tlsRequired
	tlsSkipVerify
	tlsVerifyCA
	tlsVerifyFull
)

// DSNBuilder builds connection strings fluently for any supported engine.
// The zero builder targets MySQL; call Engine to switch dialects. Output is
// deterministic: parameters always render in key order.
type DSNBuilder struct {
	engine   Engine
	host     string
	port     int
	username string
	password string
	database string

	tls         tlsMode
	compression bool

	timeout      time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	charset   string
	parseTime bool
	location  string

	params map[string]string
}

// NewDSNBuilder returns a builder targeting MySQL.
func NewDSNBuilder() *DSNBuilder {
	return &DSNBuilder{
		engine: EngineMySQL,
		params: make(map[string]string),
	}
}

// Engine switches the output dialect.
func (b *DSNBuilder) Engine(e Engine) *DSNBuilder {
	b.engine = e
	return b
}

// Host sets the database host.
func (b *DSNBuilder) Host(host string) *DSNBuilder {
	b.host = host
	return b
}

// Port sets the database port. Zero means the engine default.
func (b *DSNBuilder) Port(port int) *DSNBuilder {
	b.port = port
	return b
}

// Username sets the database username.
func (b *DSNBuilder) Username(username string) *DSNBuilder {
	b.username = username
	return b
}

// Password sets the database password.
func (b *DSNBuilder) Password(password string) *DSNBuilder {
	b.password = password
	return b
}

// Database sets the database name.
func (b *DSNBuilder) Database(database string) *DSNBuilder {
	b.database = database
	return b
}

// DisableTLS turns encryption off.
func (b *DSNBuilder) DisableTLS() *DSNBuilder {
	b.tls = tlsDisabled
	return b
}

// RequireTLS requires an encrypted connection.
func (b *DSNBuilder) RequireTLS() *DSNBuilder {
	b.tls = tlsRequired
	return b
}

// TLSSkipVerify requires encryption but skips certificate verification.
func (b *DSNBuilder) TLSSkipVerify() *DSNBuilder {
	b.tls = tlsSkipVerify
	return b
}

// TLSVerifyCA requires encryption with CA verification.
func (b *DSNBuilder) TLSVerifyCA() *DSNBuilder {
	b.tls = tlsVerifyCA
	return b
}

// TLSVerifyFull requires encryption with CA and hostname verification.
func (b *DSNBuilder) TLSVerifyFull() *DSNBuilder {
	b.tls = tlsVerifyFull
	return b
}

// EnableCompression enables protocol compression where the engine supports
// it.
func (b *DSNBuilder) EnableCompression() *DSNBuilder {
	b.compression = true
	return b
}

// SetTimeout sets the connection timeout.
func (b *DSNBuilder) SetTimeout(timeout time.Duration) *DSNBuilder {
	b.timeout = timeout
	return b
}

// SetReadTimeout sets the read timeout (mysql only).
func (b *DSNBuilder) SetReadTimeout(timeout time.Duration) *DSNBuilder {
	b.readTimeout = timeout
	return b
}

// SetWriteTimeout sets the write timeout (mysql only).
func (b *DSNBuilder) SetWriteTimeout(timeout time.Duration) *DSNBuilder {
	b.writeTimeout = timeout
	return b
}

// SetCharset sets the character set (client_encoding on postgres).
func (b *DSNBuilder) SetCharset(charset string) *DSNBuilder {
	b.charset = charset
	return b
}

// EnableParseTime makes the mysql driver scan DATE and DATETIME into
// time.Time.
func (b *DSNBuilder) EnableParseTime() *DSNBuilder {
	b.parseTime = true
	return b
}

// SetLocation sets the mysql session timezone location.
func (b *DSNBuilder) SetLocation(location string) *DSNBuilder {
	b.location = location
	return b
}

// SetParam sets a raw driver parameter.
func (b *DSNBuilder) SetParam(key, value string) *DSNBuilder {
	b.params[key] = value
	return b
}

// SetCollation sets the mysql collation.
func (b *DSNBuilder) SetCollation(collation string) *DSNBuilder {
	return b.SetParam("collation", collation)
}

// SetSQLMode sets the mysql session sql_mode.
func (b *DSNBuilder) SetSQLMode(mode string) *DSNBuilder {
	return b.SetParam("sql_mode", mode)
}

// SetTimeZone sets the session time zone.
func (b *DSNBuilder) SetTimeZone(timezone string) *DSNBuilder {
	return b.SetParam("time_zone", timezone)
}

// EnableMultiStatements allows multiple statements per Exec on mysql.
func (b *DSNBuilder) EnableMultiStatements() *DSNBuilder {
	return b.SetParam("multiStatements", "true")
}

// EnableInterpolateParams enables client-side parameter interpolation on
// mysql.
func (b *DSNBuilder) EnableInterpolateParams() *DSNBuilder {
	return b.SetParam("interpolateParams", "true")
}

// effectiveParams merges the explicit params with the typed settings,
// translated to the target engine's parameter names.
func (b *DSNBuilder) effectiveParams() map[string]string {
	params := make(map[string]string, len(b.params)+8)
	for k, v := range b.params {
		params[k] = v
	}
	if b.engine == EnginePostgres {
		if mode := b.pgSSLMode(); mode != "" {
			params["sslmode"] = mode
		}
		if b.timeout > 0 {
			params["connect_timeout"] = fmt.Sprintf("%d", int(b.timeout.Seconds()))
		}
		if b.charset != "" {
			params["client_encoding"] = b.charset
		}
		return params
	}
	if mode := b.mysqlTLSParam(); mode != "" {
		params["tls"] = mode
	}
	if b.compression {
		params["compress"] = "true"
	}
	if b.timeout > 0 {
		params["timeout"] = formatDuration(b.timeout)
	}
	if b.readTimeout > 0 {
		params["readTimeout"] = formatDuration(b.readTimeout)
	}
	if b.writeTimeout > 0 {
		params["writeTimeout"] = formatDuration(b.writeTimeout)
	}
	if b.charset != "" {
		params["charset"] = b.charset
	}
	if b.parseTime {
		params["parseTime"] = "true"
	}
	if b.location != "" {
		params["loc"] = b.location
	}
	return params
}

func (b *DSNBuilder) pgSSLMode() string {
	switch b.tls {
	case tlsDisabled:
		return "disable"
	case tlsRequired, tlsSkipVerify:
		return "require"
	case tlsVerifyCA:
		return "verify-ca"
	case tlsVerifyFull:
		return "verify-full"
	}
	return ""
}

func (b *DSNBuilder) mysqlTLSParam() string {
	switch b.tls {
	case tlsDisabled:
		return "false"
	case tlsRequired, tlsVerifyCA, tlsVerifyFull:
		return "true"
	case tlsSkipVerify:
		return "skip-verify"
	}
	return ""
}

// formatDuration renders a duration the way mysql DSN parameters expect.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}

// Build renders the DSN for the selected engine.
func (b *DSNBuilder) Build() string {
	cfg := b.ToConfig()
	cfg.DSN = ""
	dsn, err := dsnFromConfig(cfg)
	if err != nil {
		return ""
	}
	return dsn
}

// Validate checks that the builder describes a reachable target.
func (b *DSNBuilder) Validate() error {
	if b.engine == EngineSQLite {
		return nil
	}
	if b.host == "" {
		return fmt.Errorf("host is required")
	}
	if b.port < 0 || b.port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", b.port)
	}
	if b.database == "" {
		return fmt.Errorf("database name is required")
	}
	if b.timeout < 0 || b.readTimeout < 0 || b.writeTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// BuildWithValidation validates, then builds.
func (b *DSNBuilder) BuildWithValidation() (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	return b.Build(), nil
}

// ToConfig converts the builder into a Config for NewPool.
func (b *DSNBuilder) ToConfig() Config {
	port := b.port
	if port == 0 {
		port = b.engine.defaultPort()
	}
	return Config{
		Engine:   b.engine,
		Host:     b.host,
		Port:     port,
		Username: b.username,
		Password: b.password,
		Database: b.database,
		Params:   b.effectiveParams(),
	}
}

// FromConfig seeds a builder from an existing Config.
func FromConfig(config Config) *DSNBuilder {
	builder := NewDSNBuilder()
	if config.Engine != "" {
		builder.Engine(config.Engine)
	}
	builder.host = config.Host
	if config.Port > 0 {
		builder.port = config.Port
	}
	builder.username = config.Username
	builder.password = config.Password
	builder.database = config.Database
	for k, v := range config.Params {
		builder.SetParam(k, v)
	}
	return builder
}

// Clone copies the builder, params included.
func (b *DSNBuilder) Clone() *DSNBuilder {
	clone := *b
	clone.params = make(map[string]string, len(b.params))
	for k, v := range b.params {
		clone.params[k] = v
	}
	return &clone
}

// DevelopmentPreset tunes the builder for local development.
func (b *DSNBuilder) DevelopmentPreset() *DSNBuilder {
	if b.engine == EnginePostgres {
		return b.DisableTLS().SetTimeout(10 * time.Second)
	}
	return b.
		DisableTLS().
		SetCharset("utf8mb4").
		EnableParseTime().
		SetLocation("Local").
		SetTimeout(10 * time.Second)
}

// ProductionPreset tunes the builder for production.
func (b *DSNBuilder) ProductionPreset() *DSNBuilder {
	if b.engine == EnginePostgres {
		return b.TLSVerifyFull().SetTimeout(30 * time.Second)
	}
	return b.
		RequireTLS().
		EnableCompression().
		SetCharset("utf8mb4").
		EnableParseTime().
		SetLocation("UTC").
		SetTimeout(30 * time.Second).
		SetReadTimeout(10 * time.Second).
		SetWriteTimeout(10 * time.Second)
}

// TestingPreset tunes the builder for test runs: short timeouts, UTC.
func (b *DSNBuilder) TestingPreset() *DSNBuilder {
	if b.engine == EnginePostgres {
		return b.DisableTLS().SetTimeout(5 * time.Second)
	}
	return b.
		DisableTLS().
		SetCharset("utf8mb4").
		EnableParseTime().
		SetLocation("UTC").
		SetTimeout(5 * time.Second).
		SetReadTimeout(3 * time.Second).
		SetWriteTimeout(3 * time.Second)
}
