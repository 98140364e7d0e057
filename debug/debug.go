package debug

// DEBUG turns on internal assertions and disassembly dumps.
const DEBUG = false
