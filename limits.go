package poculum

const (
	// MaxEncodeElements caps the element (or pair) count of a List or Map on
	// encode.
	MaxEncodeElements = 1_000_000

	// Decode ceilings for container element counts, per length class.
	MaxFixContainerLen = 1000
	Max16ContainerLen  = 10_000
	Max32ContainerLen  = 100_000

	// MaxScalar32Len caps the declared length of string32 and bytes32
	// payloads on decode, independent of how many bytes are present.
	MaxScalar32Len = 100 * 1024 * 1024

	// DefaultMaxDepth is the container nesting bound used when
	// Options.MaxDepth is zero.
	DefaultMaxDepth = 512

	maxUint32Len = 1<<32 - 1
)

// containerCeiling returns the decode ceiling for a container whose length
// was carried by the given tag.
func containerCeiling(tag byte) int {
	switch tag {
	case tagList16, tagMap16:
		return Max16ContainerLen
	case tagList32, tagMap32:
		return Max32ContainerLen
	default:
		return MaxFixContainerLen
	}
}
