package biobridge

// Unbounded is the sentinel value for ShimConfig.MaxPreservedCapacity
// meaning "never trim retained outbound storage."
const Unbounded = -1

// ShimConfig holds the construction-time parameters for a Shim. It
// follows the Default*Config/Validate convention used throughout this
// codebase's configuration types.
type ShimConfig struct {
	// MaxPreservedCapacity bounds how large the outbound buffer's
	// backing storage may remain after an extraction. Use Unbounded to
	// disable trimming entirely.
	MaxPreservedCapacity int `yaml:"max_preserved_capacity" json:"max_preserved_capacity"`

	// InitialOutboundCapacity sizes the first outbound buffer allocated
	// for a new Shim, before any data has been written to it.
	InitialOutboundCapacity int `yaml:"initial_outbound_capacity" json:"initial_outbound_capacity"`
}

// DefaultShimConfig returns a ShimConfig with sensible defaults: a small
// initial outbound allocation and a preserved-capacity cap generous
// enough to absorb a handful of TLS records without reallocating on
// every extraction.
func DefaultShimConfig() ShimConfig {
	return ShimConfig{
		MaxPreservedCapacity:    16 * 1024,
		InitialOutboundCapacity: 4 * 1024,
	}
}

// Validate checks the configuration for errors.
func (c ShimConfig) Validate() error {
	if c.MaxPreservedCapacity != Unbounded && c.MaxPreservedCapacity < 0 {
		return ErrInvalidMaxPreservedCapacity
	}
	if c.InitialOutboundCapacity < 0 {
		return ErrInvalidInitialOutboundCapacity
	}
	return nil
}
