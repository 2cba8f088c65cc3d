package cekunit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cekunit/cekunit/common"
)

func baseVars() map[string]string {
	return map[string]string{
		common.EmailEnv:          "a@b.c",
		common.PasswordEnv:       "password1",
		common.BaseURLEnv:        "https://t.example/",
		common.LoginEndpointEnv:  " /login ",
		common.LogoutEndpointEnv: "logout",
	}
}

func TestConfigFromMap_Valid(t *testing.T) {
	vars := baseVars()
	vars[common.UsersEndpointEnv] = "//admin/users"

	cfg, err := ConfigFromMap(vars, nil)
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if cfg.BaseURL() != "https://t.example" {
		t.Errorf("trailing slash not stripped: %q", cfg.BaseURL())
	}
	if cfg.LoginURL() != "https://t.example/login" || cfg.LogoutURL() != "https://t.example/logout" {
		t.Errorf("unexpected auth URLs %q %q", cfg.LoginURL(), cfg.LogoutURL())
	}
	if u, err := cfg.URL(common.UsersEndpointEnv); err != nil || u != "https://t.example/admin/users" {
		t.Errorf("unexpected users URL %q %v", u, err)
	}
	if u, err := cfg.ItemURL(common.UsersEndpointEnv, "42"); err != nil || u != "https://t.example/admin/users/42" {
		t.Errorf("unexpected item URL %q %v", u, err)
	}
	if cfg.Host() != "t.example" {
		t.Errorf("unexpected host %q", cfg.Host())
	}
	o := cfg.Options()
	if o.Timeout != 15*time.Second || o.ExportTimeout != 120*time.Second {
		t.Errorf("unexpected default timeouts %+v", o)
	}
}

func TestConfigFromMap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		kind   Kind
		field  string
	}{
		{"missing email", func(m map[string]string) { delete(m, common.EmailEnv) }, KindConfigMissing, common.EmailEnv},
		{"empty email", func(m map[string]string) { m[common.EmailEnv] = "  " }, KindConfigEmpty, common.EmailEnv},
		{"email without at", func(m map[string]string) { m[common.EmailEnv] = "admin" }, KindConfigInvalid, common.EmailEnv},
		{"missing password", func(m map[string]string) { delete(m, common.PasswordEnv) }, KindConfigMissing, common.PasswordEnv},
		{"empty password", func(m map[string]string) { m[common.PasswordEnv] = "" }, KindConfigEmpty, common.PasswordEnv},
		{"short password", func(m map[string]string) { m[common.PasswordEnv] = "short" }, KindConfigInvalid, common.PasswordEnv},
		{"missing base", func(m map[string]string) { delete(m, common.BaseURLEnv) }, KindConfigMissing, common.BaseURLEnv},
		{"empty base", func(m map[string]string) { m[common.BaseURLEnv] = " " }, KindConfigEmpty, common.BaseURLEnv},
		{"base without scheme", func(m map[string]string) { m[common.BaseURLEnv] = "t.example" }, KindConfigInvalidURL, common.BaseURLEnv},
		{"ftp base", func(m map[string]string) { m[common.BaseURLEnv] = "ftp://t.example" }, KindConfigInvalidURL, common.BaseURLEnv},
		{"missing login", func(m map[string]string) { delete(m, common.LoginEndpointEnv) }, KindConfigMissing, common.LoginEndpointEnv},
		{"empty logout", func(m map[string]string) { m[common.LogoutEndpointEnv] = "" }, KindConfigEmpty, common.LogoutEndpointEnv},
		{"empty optional", func(m map[string]string) { m[common.PICEndpointEnv] = " / " }, KindConfigEmpty, common.PICEndpointEnv},
		{"bad proxy", func(m map[string]string) { m[common.ProxyEnv] = "ftp://proxy:21" }, KindConfigInvalid, common.ProxyEnv},
		{"bad timeout", func(m map[string]string) { m[common.TimeoutEnv] = "soon" }, KindConfigInvalid, "CEKUNIT_*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := baseVars()
			tt.mutate(vars)
			_, err := ConfigFromMap(vars, nil)
			e := assertKind(t, err, tt.kind)
			if e.Name != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, e.Name)
			}
			if tt.kind == KindConfigInvalidURL && !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("invalid URL should also match ErrConfigInvalid")
			}
		})
	}
}

func TestConfigFromMap_PasswordLookup(t *testing.T) {
	vars := baseVars()
	delete(vars, common.PasswordEnv)

	var asked string
	cfg, err := ConfigFromMap(vars, func(email string) (string, error) {
		asked = email
		return "from-keyring", nil
	})
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	if asked != "a@b.c" || cfg.Credential().Password != "from-keyring" {
		t.Fatalf("lookup not used: asked=%q cred=%v", asked, cfg.Credential())
	}

	_, err = ConfigFromMap(vars, func(string) (string, error) { return "", errors.New("locked") })
	assertKind(t, err, KindConfigMissing)

	vars[common.PasswordEnv] = "explicit1"
	cfg, _ = ConfigFromMap(vars, func(string) (string, error) {
		t.Fatal("lookup must not run when USER_PASSWORD is set")
		return "", nil
	})
	if cfg.Credential().Password != "explicit1" {
		t.Fatalf("unexpected password source")
	}
}

func TestConfigFromMap_Options(t *testing.T) {
	vars := baseVars()
	vars[common.TimeoutEnv] = "5s"
	vars[common.ExportTimeoutEnv] = "10s"
	vars[common.ProxyEnv] = "socks5://127.0.0.1:1080"
	vars[common.UserAgentEnv] = "agent/1.0"
	vars[common.DebugEnv] = "true"
	vars[common.CacheDirEnv] = "/tmp/ck"

	cfg, err := ConfigFromMap(vars, nil)
	if err != nil {
		t.Fatalf("ConfigFromMap: %v", err)
	}
	o := cfg.Options()
	if o.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout %v", o.Timeout)
	}
	if o.ExportTimeout != MinExportTimeout {
		t.Errorf("expected export timeout clamped to %v, got %v", MinExportTimeout, o.ExportTimeout)
	}
	if o.Proxy != "socks5://127.0.0.1:1080" || o.UserAgent != "agent/1.0" || !o.Debug || o.CacheDir != "/tmp/ck" {
		t.Errorf("unexpected options %+v", o)
	}

	vars[common.ExportTimeoutEnv] = "10m"
	cfg, _ = ConfigFromMap(vars, nil)
	if cfg.Options().ExportTimeout != MaxExportTimeout {
		t.Errorf("expected clamp to max, got %v", cfg.Options().ExportTimeout)
	}
}

func TestConfig_URLMissingOptional(t *testing.T) {
	cfg, err := ConfigFromMap(baseVars(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = cfg.URL(common.DashboardEndpointEnv)
	e := assertKind(t, err, KindConfigMissing)
	if e.Name != common.DashboardEndpointEnv {
		t.Errorf("unexpected name %q", e.Name)
	}
}

func TestConfig_CredentialStringRedacts(t *testing.T) {
	c := Credential{Email: "a@b.c", Password: "secret-password"}
	if s := c.String(); s != "a@b.c (password hidden)" {
		t.Fatalf("unexpected %q", s)
	}
}

func withEnviron(t *testing.T, environ []string, exeDir, wd string) {
	t.Helper()
	origEnv, origExe, origWd := osEnviron, osExecutable, osGetwd
	t.Cleanup(func() { osEnviron, osExecutable, osGetwd = origEnv, origExe, origWd })
	osEnviron = func() []string { return environ }
	osExecutable = func() (string, error) { return filepath.Join(exeDir, "cekunit"), nil }
	osGetwd = func() (string, error) { return wd, nil }
}

func writeEnvFile(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

const dotenvBody = `USER_EMAIL=file@b.c
USER_PASSWORD=filepassword
BASE_URL=https://file.example
LOGIN_ENDPOINT=login
LOGOUT_ENDPOINT=logout
`

func TestLoadConfig_ProcessEnvWins(t *testing.T) {
	exeDir := t.TempDir()
	writeEnvFile(t, exeDir, dotenvBody)
	withEnviron(t, []string{"USER_EMAIL=proc@b.c"}, exeDir, t.TempDir())

	cfg, err := LoadConfig(LoadOptions{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Credential().Email != "proc@b.c" {
		t.Errorf("process env should win, got %q", cfg.Credential().Email)
	}
	if cfg.BaseURL() != "https://file.example" {
		t.Errorf("file should fill gaps, got %q", cfg.BaseURL())
	}
}

func TestLoadConfig_ExecutableDirBeforeWorkingDir(t *testing.T) {
	exeDir, wd := t.TempDir(), t.TempDir()
	writeEnvFile(t, exeDir, dotenvBody)
	writeEnvFile(t, wd, "USER_EMAIL=wd@b.c\n")
	withEnviron(t, nil, exeDir, wd)

	cfg, err := LoadConfig(LoadOptions{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Credential().Email != "file@b.c" {
		t.Errorf("expected executable-dir file, got %q", cfg.Credential().Email)
	}
}

func TestLoadConfig_WorkingDirFallback(t *testing.T) {
	wd := t.TempDir()
	writeEnvFile(t, wd, dotenvBody)
	withEnviron(t, nil, t.TempDir(), wd)

	if _, err := LoadConfig(LoadOptions{}); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(p, []byte(dotenvBody), 0600); err != nil {
		t.Fatal(err)
	}
	withEnviron(t, nil, t.TempDir(), t.TempDir())

	cfg, err := LoadConfig(LoadOptions{EnvFile: p})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL() != "https://file.example" {
		t.Errorf("unexpected base %q", cfg.BaseURL())
	}

	withEnviron(t, []string{common.EnvFileEnv + "=" + p}, t.TempDir(), t.TempDir())
	if _, err := LoadConfig(LoadOptions{}); err != nil {
		t.Fatalf("LoadConfig via %s: %v", common.EnvFileEnv, err)
	}

	_, err = LoadConfig(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")})
	assertKind(t, err, KindConfigInvalid)
}

func TestLoadConfig_NoFileNoEnv(t *testing.T) {
	withEnviron(t, nil, t.TempDir(), t.TempDir())
	_, err := LoadConfig(LoadOptions{})
	e := assertKind(t, err, KindConfigMissing)
	if e.Name != common.EmailEnv {
		t.Errorf("unexpected name %q", e.Name)
	}
}
