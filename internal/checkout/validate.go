package checkout

import (
	"regexp"
	"strings"

	"storefront/internal/model"
)

// The backend enforces these same shapes; they must match exactly or a form
// the client accepts gets rejected server-side after the round trip.
var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateAddress checks a shipping address against the backend's rules and
// returns the first violation as a field-tagged validation error. Landmark
// is optional and never checked. Validation never reaches the network.
func ValidateAddress(addr *model.Address) error {
	if strings.TrimSpace(addr.FullName) == "" {
		return model.NewValidationError("full_name", "must not be empty")
	}
	if !phonePattern.MatchString(addr.Phone) {
		return model.NewValidationError("phone", "must be exactly 10 digits")
	}
	if !emailPattern.MatchString(addr.Email) {
		return model.NewValidationError("email", "must look like local@domain.tld")
	}
	if strings.TrimSpace(addr.Street) == "" {
		return model.NewValidationError("street", "must not be empty")
	}
	if strings.TrimSpace(addr.City) == "" {
		return model.NewValidationError("city", "must not be empty")
	}
	if strings.TrimSpace(addr.State) == "" {
		return model.NewValidationError("state", "must not be empty")
	}
	if !pincodePattern.MatchString(addr.Pincode) {
		return model.NewValidationError("pincode", "must be exactly 6 digits")
	}
	return nil
}
