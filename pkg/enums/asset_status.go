package enums

// AssetStatus is the lifecycle tag stamped on stored objects so bucket
// policies can distinguish winning uploads from everything else.
type AssetStatus string

const (
	AssetStatusUnselected AssetStatus = "unselected"
	AssetStatusSelected   AssetStatus = "selected"
)

// String returns the literal string for the status.
func (a AssetStatus) String() string {
	return string(a)
}

// IsValid reports whether the status is a known value.
func (a AssetStatus) IsValid() bool {
	switch a {
	case AssetStatusUnselected, AssetStatusSelected:
		return true
	}
	return false
}
