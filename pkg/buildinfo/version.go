// Package buildinfo holds version information injected at build time:
//
//	go build -ldflags "-X github.com/matzehuels/flowsketch/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/flowsketch/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/flowsketch/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent is sent with outgoing provider requests.
func UserAgent() string {
	return fmt.Sprintf("flowsketch/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

// Info is the JSON shape served by the API health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Get returns the current build info.
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
