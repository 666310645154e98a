package entity

// FallbackName is shown when a user has no resolvable display name
const FallbackName = "Un usuario"

// Profile is the public part of a marketplace user
type Profile struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// DisplayName returns the full name, or FallbackName when it is blank
func (p *Profile) DisplayName() string {
	if p == nil || p.FullName == "" {
		return FallbackName
	}
	return p.FullName
}
