package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the build-input serialization format.
//
// These tags are frozen. Once assigned, a tag byte must never change
// meaning; adding new tags is fine. Changing one silently invalidates every
// build cache on disk, so bump HashVersion instead.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing build caches.
const HashVersion byte = 1

// Record tags. Each tag identifies a record kind in the serialized stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Top-level records
	TagFunction    byte = 0x01
	TagClass       byte = 0x02
	TagEnvironment byte = 0x03

	// Function parts
	TagParameter  byte = 0x10
	TagDataType   byte = 0x11
	TagConstant   byte = 0x12
	TagCode       byte = 0x13
	TagDefaultArg byte = 0x14
	TagGlobalName byte = 0x15

	// Class parts
	TagMember       byte = 0x20
	TagSignal       byte = 0x21
	TagFunctionHash byte = 0x22
	TagDependency   byte = 0x23

	// Environment parts
	TagSetting        byte = 0x30
	TagPass           byte = 0x31
	TagDisallow       byte = 0x32
	TagGlobalConstant byte = 0x33

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagFunction, TagClass, TagEnvironment,
	TagParameter, TagDataType, TagConstant, TagCode, TagDefaultArg, TagGlobalName,
	TagMember, TagSignal, TagFunctionHash, TagDependency,
	TagSetting, TagPass, TagDisallow, TagGlobalConstant,
}
