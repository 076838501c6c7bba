package fat16

// Trace is a hook for ad-hoc diagnostic output, off by default. The original
// driver gated its own debug prints behind a commented-out
// `#define DEBUG_FAT16`; this preserves that same "compiled out unless
// someone wants it" stance without adding a logging dependency the rest of
// the driver doesn't use anywhere else. Assign a function to enable it, e.g.
// in a test or a debug build of a consuming binary.
var Trace func(format string, args ...any) = func(string, ...any) {}
