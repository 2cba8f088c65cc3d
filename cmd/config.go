package cmd

const DESCRIPTION = `
cekunit keeps an authenticated session with a form-login web application.
It logs in with the credentials from your .env file (or the OS keyring),
stores the session cookies and CSRF token locally, and logs out again.
`

const (
	LoginDescription = `The login command fetches a fresh CSRF token, posts your
credentials and stores the resulting session in the cache.

Example:
        cekunit login

`
	LogoutDescription = `The logout command posts the cached CSRF token to the
logout endpoint and removes the local session. When the
server refuses, use --force to remove the local session
anyway.

Example:
        cekunit logout
        cekunit logout --force

`
	StatusDescription = `The status command prints the active configuration
(without the password) and the state of the cached session.

Example:
        cekunit status
        cekunit status --max-age 30m

`
	CleanDescription = `The clean command removes the cached session without
contacting the server.

Example:
        cekunit clean --yes

`
	CredentialDescription = `The credential command stores or removes the account
password in the OS keyring. A stored password is used
whenever USER_PASSWORD is not set.

Example:
        cekunit credential set
        cekunit credential delete --email admin@example.com

`
)
