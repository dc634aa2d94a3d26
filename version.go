package yax

// Version is the release of the yax library and CLI.
const Version = "0.3.0"
