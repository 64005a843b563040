package entities

// Additional property keys. Availability depends on the backend:
//
//	darwin:  cd_hash, team_id, identifier, platform_id, bundle_id, short_version, bundle_version
//	windows: cd_hash, bundle_id, short_version, bundle_version, file_version, product_name, company_name
const (
	PropertyCDHash        = "cd_hash"
	PropertyBundleID      = "bundle_id"
	PropertyShortVersion  = "short_version"
	PropertyBundleVersion = "bundle_version"
	PropertyTeamID        = "team_id"
	PropertyPlatformID    = "platform_id"
	PropertyIdentifier    = "identifier"
	PropertyFileVersion   = "file_version"
	PropertyProductName   = "product_name"
	PropertyCompanyName   = "company_name"
)

// SigningInfo is the auxiliary signing information captured alongside the
// leaf certificate. Empty strings mean the backend did not expose the value.
type SigningInfo struct {
	CDHash        []byte
	TeamID        string
	Identifier    string
	BundleID      string
	ShortVersion  string
	BundleVersion string
	PlatformID    *int

	// Extra carries backend-specific properties under their final key.
	Extra map[string]string
}
