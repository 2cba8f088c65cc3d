// Package common provides the environment variable names shared by the
// cekunit command-line tool and the session engine.
package common

// Credential and base URL variables. All are required except USER_PASSWORD,
// which may be supplied by the OS keyring instead.
const (
	EmailEnv    = "USER_EMAIL"
	PasswordEnv = "USER_PASSWORD"
	BaseURLEnv  = "BASE_URL"
)

// Endpoint path variables.
const (
	LoginEndpointEnv          = "LOGIN_ENDPOINT"
	LogoutEndpointEnv         = "LOGOUT_ENDPOINT"
	DashboardEndpointEnv      = "DASHBOARD_ENDPOINT"
	ExportEndpointEnv         = "CEKUNIT_EXPORT_ENDPOINT"
	UniqueEndpointEnv         = "CEKUNIT_UNIQUE_ENDPOINT"
	DeleteCategoryEndpointEnv = "CEKUNIT_DELETE_CATEGORY_ENDPOINT"
	DeleteAllEndpointEnv      = "DELETE_ALL_ENDPOINT"
	ItemEndpointEnv           = "CEKUNIT_ITEM_ENDPOINT"
	InputUserEndpointEnv      = "INPUT_USER_ENDPOINT"
	InputUserExportEnv        = "INPUT_USER_EXPORT_ENDPOINT"
	InputDataEndpointEnv      = "INPUT_DATA_ENDPOINT"
	PICEndpointEnv            = "PIC_ENDPOINT"
	InputPICEndpointEnv       = "INPUT_PIC_ENDPOINT"
	PICItemEndpointEnv        = "PIC_ITEM_ENDPOINT"
	UsersEndpointEnv          = "USERS_ENDPOINT"
	UsersItemEndpointEnv      = "USERS_ITEM_ENDPOINT"
)

// RequiredEndpoints lists the endpoint variables the session engine cannot
// run without.
var RequiredEndpoints = []string{
	LoginEndpointEnv,
	LogoutEndpointEnv,
}

// OptionalEndpoints lists the endpoint variables consumed by the request
// builders. They are validated only when present.
var OptionalEndpoints = []string{
	DashboardEndpointEnv,
	ExportEndpointEnv,
	UniqueEndpointEnv,
	DeleteCategoryEndpointEnv,
	DeleteAllEndpointEnv,
	ItemEndpointEnv,
	InputUserEndpointEnv,
	InputUserExportEnv,
	InputDataEndpointEnv,
	PICEndpointEnv,
	InputPICEndpointEnv,
	PICItemEndpointEnv,
	UsersEndpointEnv,
	UsersItemEndpointEnv,
}

// Tunables parsed into cekunit.Options.
const (
	CacheDirEnv      = "CEKUNIT_CACHE_DIR"
	TimeoutEnv       = "CEKUNIT_TIMEOUT"
	ExportTimeoutEnv = "CEKUNIT_EXPORT_TIMEOUT"
	ProxyEnv         = "CEKUNIT_PROXY"
	UserAgentEnv     = "CEKUNIT_USER_AGENT"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "CEKUNIT_DEBUG"

	// EnvFileEnv points at an explicit dotenv file.
	EnvFileEnv = "CEKUNIT_ENV_FILE"
)
