package sla

// StatusClass is how the SLA rules see a lead's free-form status
type StatusClass int

const (
	// StatusUnrecognized covers every pipeline stage, LOST and unknown values
	StatusUnrecognized StatusClass = iota
	// StatusNew is a lead nobody has acknowledged yet
	StatusNew
)

// ClassifyStatus maps a raw lead status to a StatusClass.
// Only the literals "NEW" and "new" are new; "New" or " NEW" are not.
// TODO: confirm with sales ops whether mixed-case statuses should count as new.
func ClassifyStatus(status string) StatusClass {
	switch status {
	case "NEW", "new":
		return StatusNew
	default:
		return StatusUnrecognized
	}
}
