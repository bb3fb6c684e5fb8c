package signals

// PhoneType is the line type reported by the phone validation service.
type PhoneType string

const (
	PhoneTypeMobile   PhoneType = "MOBILE"
	PhoneTypePrepaid  PhoneType = "PREPAID"
	PhoneTypeLandline PhoneType = "LANDLINE"
	PhoneTypeVoip     PhoneType = "VOIP"
	PhoneTypeInvalid  PhoneType = "INVALID"
	PhoneTypeOther    PhoneType = "OTHER"
)

// SessionVelocity is the three-level session activity signal supplied by the
// edge layer. Zero means the header was absent or carried an unknown value.
type SessionVelocity int

const (
	SessionVelocityUnset  SessionVelocity = 0
	SessionVelocityLow    SessionVelocity = 1
	SessionVelocityMedium SessionVelocity = 2
	SessionVelocityHigh   SessionVelocity = 3
)

func ParseSessionVelocity(value string) SessionVelocity {
	switch value {
	case "low":
		return SessionVelocityLow
	case "medium":
		return SessionVelocityMedium
	case "high":
		return SessionVelocityHigh
	default:
		return SessionVelocityUnset
	}
}

// RequestSignals accumulates everything known about one SMS generation
// attempt. It is owned by a single evaluation run and discarded afterwards.
// Optional fields are pointers so that "never observed" stays distinguishable
// from "observed and negative": scoring skips absent factors instead of
// treating them as zero.
type RequestSignals struct {
	IP        string
	RequestID string
	Phone     string

	IPCountry     *string
	AnonymizingIP bool
	DatacenterIP  bool
	BotSignal     bool

	SessionVelocity SessionVelocity

	PhoneCountry *string
	PhoneType    *PhoneType

	IPCount          *int64
	PhoneCount       *int64
	PhonePrefixCount *int64

	threats []string
}

// AddThreat appends a threat label in detection order.
func (s *RequestSignals) AddThreat(label string) {
	s.threats = append(s.threats, label)
}

func (s *RequestSignals) Threats() []string {
	return s.threats
}

// PhonePrefix derives the grouping key for prefix-level velocity by stripping
// the trailing suffixLength characters from the phone number. Numbers no
// longer than the suffix all share the empty prefix, so they land in one
// partition instead of each getting their own.
func (s *RequestSignals) PhonePrefix(suffixLength int) string {
	if suffixLength <= 0 {
		return s.Phone
	}
	if len(s.Phone) <= suffixLength {
		return ""
	}
	return s.Phone[:len(s.Phone)-suffixLength]
}
