package formcheck

// Features is a bitset of optional WebAssembly proposals. Proposal-gating
// the instruction decode itself is out of scope (see SPEC_FULL.md §1).
// Config stores the bitset, but no check in this package reads it: every
// opcode the checker recognizes is validated whatever features are enabled.
type Features uint32

const (
	FeatureSignExtensionOps Features = 1 << iota
	FeatureReferenceTypes
	FeatureBulkMemory
	FeatureSIMD
	FeatureTailCall
	FeatureMultiMemory
	FeatureMultiValue
)

// FeaturesMVP enables none of the post-1.0 proposals.
const FeaturesMVP Features = 0

// FeaturesAll enables every proposal this package understands.
const FeaturesAll Features = FeatureSignExtensionOps | FeatureReferenceTypes | FeatureBulkMemory |
	FeatureSIMD | FeatureTailCall | FeatureMultiMemory | FeatureMultiValue

// IsEnabled reports whether every bit set in feature is also set in f.
func (f Features) IsEnabled(feature Features) bool {
	return f&feature == feature
}

// Set returns a copy of f with feature toggled to enabled.
func (f Features) Set(feature Features, enabled bool) Features {
	if enabled {
		return f | feature
	}
	return f &^ feature
}
