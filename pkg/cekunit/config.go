package cekunit

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/cekunit/cekunit/common"
)

// Timeout bounds for bulk export calls.
const (
	MinExportTimeout = 30 * time.Second
	MaxExportTimeout = 120 * time.Second
)

// MinPasswordLength is the shortest accepted USER_PASSWORD.
const MinPasswordLength = 8

// Options are the tunables read from CEKUNIT_* variables.
type Options struct {
	CacheDir      string        `env:"CEKUNIT_CACHE_DIR"`
	Timeout       time.Duration `env:"CEKUNIT_TIMEOUT" envDefault:"15s"`
	ExportTimeout time.Duration `env:"CEKUNIT_EXPORT_TIMEOUT" envDefault:"120s"`
	Proxy         string        `env:"CEKUNIT_PROXY"`
	UserAgent     string        `env:"CEKUNIT_USER_AGENT"`
	Debug         bool          `env:"CEKUNIT_DEBUG"`
}

// DefaultOptions returns the tunables used when no variable is set.
func DefaultOptions() Options {
	return Options{
		Timeout:       DefaultTimeout,
		ExportTimeout: MaxExportTimeout,
	}
}

// Credential is the email/password pair posted at login.
type Credential struct {
	Email    string
	Password string
}

// String redacts the password.
func (c Credential) String() string {
	return fmt.Sprintf("%s (password hidden)", c.Email)
}

// Config is the validated, immutable engine configuration.
// Share it by pointer; there are no setters.
type Config struct {
	baseURL    string
	credential Credential
	endpoints  map[string]string
	options    Options
}

// NewConfig builds a Config from already-resolved values. baseURL must use
// http or https; endpoints maps variable names (common.LoginEndpointEnv, ...)
// to paths and must carry the login and logout paths. The credential is only
// checked for presence; LoadConfig applies the stricter environment rules.
func NewConfig(baseURL string, cred Credential, endpoints map[string]string, opts Options) (*Config, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cred.Email) == "" {
		return nil, configError(KindConfigEmpty, common.EmailEnv, "")
	}
	if strings.TrimSpace(cred.Password) == "" {
		return nil, configError(KindConfigEmpty, common.PasswordEnv, "")
	}
	cred.Email = strings.TrimSpace(cred.Email)

	eps := make(map[string]string, len(endpoints))
	for name, path := range endpoints {
		p := normalizeEndpoint(path)
		if p == "" {
			return nil, configError(KindConfigEmpty, name, "")
		}
		eps[name] = p
	}
	for _, name := range common.RequiredEndpoints {
		if _, ok := eps[name]; !ok {
			return nil, configError(KindConfigMissing, name, "")
		}
	}

	opts, err = normalizeOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Config{
		baseURL:    base,
		credential: cred,
		endpoints:  eps,
		options:    opts,
	}, nil
}

// BaseURL returns the base URL without a trailing slash.
func (c *Config) BaseURL() string { return c.baseURL }

// Credential returns the login credential.
func (c *Config) Credential() Credential { return c.credential }

// Options returns the tunables.
func (c *Config) Options() Options { return c.options }

// Host returns the host part of the base URL, without port.
func (c *Config) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Endpoint returns the normalized path for the endpoint variable name.
func (c *Config) Endpoint(name string) (string, bool) {
	p, ok := c.endpoints[name]
	return p, ok
}

// Endpoints returns a copy of all configured endpoint paths.
func (c *Config) Endpoints() map[string]string {
	out := make(map[string]string, len(c.endpoints))
	for k, v := range c.endpoints {
		out[k] = v
	}
	return out
}

// URL returns base_url + "/" + path for the endpoint variable name.
func (c *Config) URL(name string) (string, error) {
	p, ok := c.endpoints[name]
	if !ok {
		return "", configError(KindConfigMissing, name, "")
	}
	return c.baseURL + "/" + p, nil
}

// ItemURL returns the endpoint URL with "/id" appended.
func (c *Config) ItemURL(name, id string) (string, error) {
	u, err := c.URL(name)
	if err != nil {
		return "", err
	}
	return u + "/" + url.PathEscape(id), nil
}

// LoginURL returns the full login URL.
func (c *Config) LoginURL() string {
	return c.baseURL + "/" + c.endpoints[common.LoginEndpointEnv]
}

// LogoutURL returns the full logout URL.
func (c *Config) LogoutURL() string {
	return c.baseURL + "/" + c.endpoints[common.LogoutEndpointEnv]
}

func normalizeBaseURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", configError(KindConfigEmpty, common.BaseURLEnv, "")
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", configError(KindConfigInvalidURL, common.BaseURLEnv, "must start with http:// or https://")
	}
	s = strings.TrimRight(s, "/")
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", configError(KindConfigInvalidURL, common.BaseURLEnv, "missing host")
	}
	return s, nil
}

func normalizeEndpoint(raw string) string {
	return strings.TrimLeft(strings.TrimSpace(raw), "/")
}

func normalizeOptions(o Options) (Options, error) {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Timeout < 0 {
		return o, configError(KindConfigInvalid, common.TimeoutEnv, "must be positive")
	}
	if o.ExportTimeout == 0 {
		o.ExportTimeout = MaxExportTimeout
	}
	if o.ExportTimeout < MinExportTimeout {
		o.ExportTimeout = MinExportTimeout
	}
	if o.ExportTimeout > MaxExportTimeout {
		o.ExportTimeout = MaxExportTimeout
	}
	if o.Proxy != "" {
		if _, err := ParseProxyURL(o.Proxy); err != nil {
			return o, configError(KindConfigInvalid, common.ProxyEnv, err.Error())
		}
	}
	return o, nil
}

// LoadOptions controls where LoadConfig reads from.
type LoadOptions struct {
	// EnvFile is an explicit dotenv file. When empty, CEKUNIT_ENV_FILE,
	// then .env next to the executable, then .env in the working
	// directory are tried.
	EnvFile string
	// PasswordLookup supplies the password when USER_PASSWORD is unset.
	PasswordLookup func(email string) (string, error)
}

var (
	osEnviron      = os.Environ
	osExecutable   = os.Executable
	osGetwd        = os.Getwd
	readDotenvFile = godotenv.Read
)

// LoadConfig reads the process environment overlaid on a dotenv file and
// validates it. Process variables win over file values.
func LoadConfig(lo LoadOptions) (*Config, error) {
	vars, err := LoadVars(lo.EnvFile)
	if err != nil {
		return nil, err
	}
	return ConfigFromMap(vars, lo.PasswordLookup)
}

// LoadVars returns the merged variable set LoadConfig validates, without
// validating it.
func LoadVars(envFile string) (map[string]string, error) {
	vars := environMap(osEnviron())
	file, err := findEnvFile(envFile, vars[common.EnvFileEnv])
	if err != nil {
		return nil, err
	}
	if file != "" {
		fileVars, err := readDotenvFile(file)
		if err != nil {
			return nil, configError(KindConfigInvalid, file, err.Error())
		}
		for k, v := range fileVars {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
	}
	return vars, nil
}

// ConfigFromMap validates an already-merged variable set.
func ConfigFromMap(vars map[string]string, passwordLookup func(email string) (string, error)) (*Config, error) {
	email, err := requireVar(vars, common.EmailEnv)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(email, "@") {
		return nil, configError(KindConfigInvalid, common.EmailEnv, "must contain '@'")
	}

	password, ok := vars[common.PasswordEnv]
	if !ok && passwordLookup != nil {
		p, lerr := passwordLookup(email)
		if lerr == nil {
			password, ok = p, true
		}
	}
	if !ok {
		return nil, configError(KindConfigMissing, common.PasswordEnv, "")
	}
	if strings.TrimSpace(password) == "" {
		return nil, configError(KindConfigEmpty, common.PasswordEnv, "")
	}
	if len(password) < MinPasswordLength {
		return nil, configError(KindConfigInvalid, common.PasswordEnv, "must be at least 8 characters")
	}

	base, ok := vars[common.BaseURLEnv]
	if !ok {
		return nil, configError(KindConfigMissing, common.BaseURLEnv, "")
	}

	endpoints := make(map[string]string)
	for _, name := range common.RequiredEndpoints {
		v, err := requireVar(vars, name)
		if err != nil {
			return nil, err
		}
		endpoints[name] = v
	}
	for _, name := range common.OptionalEndpoints {
		if v, ok := vars[name]; ok {
			endpoints[name] = v
		}
	}

	opts, err := env.ParseAsWithOptions[Options](env.Options{Environment: vars})
	if err != nil {
		return nil, configError(KindConfigInvalid, "CEKUNIT_*", err.Error())
	}
	return NewConfig(base, Credential{Email: email, Password: password}, endpoints, opts)
}

func requireVar(vars map[string]string, name string) (string, error) {
	v, ok := vars[name]
	if !ok {
		return "", configError(KindConfigMissing, name, "")
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", configError(KindConfigEmpty, name, "")
	}
	return v, nil
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}

// findEnvFile resolves which dotenv file to read. An explicit file must
// exist; the implicit candidates are skipped when absent.
func findEnvFile(explicit, fromEnv string) (string, error) {
	for _, f := range []string{explicit, fromEnv} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return "", configError(KindConfigInvalid, common.EnvFileEnv, err.Error())
		}
		return f, nil
	}
	var candidates []string
	if exe, err := osExecutable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ".env"))
	}
	if wd, err := osGetwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}
	for _, c := range candidates {
		_, err := os.Stat(c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", configError(KindConfigInvalid, c, err.Error())
		}
	}
	return "", nil
}
