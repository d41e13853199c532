package types

// DefaultVersion is the fallback version when AppContext is nil
const DefaultVersion = "dev"

// AppContext holds application-wide context information passed to commands
type AppContext struct {
	Version string
}

// VersionOrDefault returns the version of ctx, or DefaultVersion when ctx is nil
func (ctx *AppContext) VersionOrDefault() string {
	if ctx == nil || ctx.Version == "" {
		return DefaultVersion
	}
	return ctx.Version
}
