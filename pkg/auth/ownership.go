package auth

// AssertOwner returns ErrForbidden unless identityID owns the resource.
// Empty ids never match.
func AssertOwner(ownerID, identityID string) error {
	if ownerID == "" || identityID == "" || ownerID != identityID {
		return ErrForbidden
	}
	return nil
}
