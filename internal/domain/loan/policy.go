package loan

import (
	"credhealth/internal/domain/hospital"
	"credhealth/internal/domain/user"
)

// Authorize decides whether c may fire t on l. h is the loan's hospital and is only
// consulted for hospital-side triggers.
func Authorize(t Trigger, c user.Caller, l *Loan, h *hospital.Hospital) error {
	if !c.Authenticated() {
		return user.ErrUnauthenticated
	}
	switch t {
	case TriggerApprove, TriggerReject, TriggerDisburse:
		return CanActForHospital(c, h)
	case TriggerRepay:
		if c.IsSystem() || (l != nil && l.PatientID == c.UserID) {
			return nil
		}
		return user.ErrUnauthorized
	case TriggerDefault:
		if c.IsSystem() {
			return nil
		}
		return user.ErrUnauthorized
	case TriggerRequest:
		return nil
	}
	return user.ErrUnauthorized
}

// CanActForHospital requires a hospital admin listed in h's admin set. Holding the role at
// another hospital is not enough.
func CanActForHospital(c user.Caller, h *hospital.Hospital) error {
	if !c.Authenticated() {
		return user.ErrUnauthenticated
	}
	if c.Role != user.RoleHospitalAdmin || !h.HasAdmin(c.UserID) {
		return user.ErrUnauthorized
	}
	return nil
}
