package diag

// FeatureStatus is the terminal state of an optional feature. There are no
// transitions: every resolution is an independent, stateless decision.
type FeatureStatus string

const (
	FeatureEnabled                = FeatureStatus("ENABLED")
	FeatureDisabledByConfig       = FeatureStatus("DISABLED_BY_CONFIG")
	FeatureDisabledNotImplemented = FeatureStatus("DISABLED_NOT_IMPLEMENTED")
	FeatureDisabledRuntimeError   = FeatureStatus("DISABLED_RUNTIME_ERROR")
)

// FeatureStatusResolver maps three observations about an optional feature
// onto one terminal status. Config intent is checked first: an operator
// switching a feature off should see DISABLED_BY_CONFIG even when the
// implementation is also missing or broken.
type FeatureStatusResolver struct{}

// NewFeatureStatusResolver creates a resolver.
func NewFeatureStatusResolver() *FeatureStatusResolver {
	return &FeatureStatusResolver{}
}

// Resolve returns the feature status for the given config flag,
// implementation-present flag, and captured runtime error.
func (r *FeatureStatusResolver) Resolve(enabledInConfig, implemented bool, runtimeErr error) FeatureStatus {
	switch {
	case !enabledInConfig:
		return FeatureDisabledByConfig
	case !implemented:
		return FeatureDisabledNotImplemented
	case runtimeErr != nil:
		return FeatureDisabledRuntimeError
	default:
		return FeatureEnabled
	}
}
