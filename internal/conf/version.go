package conf

// Build information, overridden at link time with -ldflags.
var (
	Version   = "dev"
	BuildDate = "unknown"
)
