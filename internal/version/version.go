package version

// Version is the current version of assigncall.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/faizanamer123/openassign-call/internal/version.Version=v1.0.0'"
var Version = "dev"
