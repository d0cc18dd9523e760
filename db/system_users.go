package db

// System user UUIDs for automated lead activity entries.
// Stored in lead_activities.created_by for entries no person wrote.
const (
	// SystemUserCRM writes lifecycle entries (lead created, status changed)
	SystemUserCRM = "00000000-0000-0000-0000-000000000001"

	// SystemUserImport marks leads pulled in by bulk import
	SystemUserImport = "00000000-0000-0000-0000-000000000002"

	// SystemUserWebForm marks leads coming from website forms
	SystemUserWebForm = "00000000-0000-0000-0000-000000000003"
)

// GetSystemUserBySource returns the system user that logs lifecycle entries for a lead source
func GetSystemUserBySource(source string) string {
	switch source {
	case "import", "csv":
		return SystemUserImport
	case "website", "webform":
		return SystemUserWebForm
	default:
		return SystemUserCRM
	}
}
