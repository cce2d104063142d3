package ir

// Version constants stamped onto every Generation IR.
const (
	// EngineVersion is the patch-generation engine version.
	EngineVersion = "0.4.0"

	// ABXCoreVersion is the abx-core library version the engine links.
	ABXCoreVersion = "1.2.1"
)
