package version

// Populated at build time via -ldflags.
var (
	AppName     = "Vault Scribe"
	AppFullName = "Vault Scribe — Discord to Markdown vault archiver"
	Version     = "dev"
	BuildDate   = ""
	GoVersion   = ""
)
