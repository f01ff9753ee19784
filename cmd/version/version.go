package version

import (
	"fmt"
	"io"
)

// 这些变量在编译时由 ldflags 覆盖, 默认值用于 go run
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func PrintFullVersion(w io.Writer) {
	fmt.Fprintf(w, "Version:    %s\n", Version)
	fmt.Fprintf(w, "Git Commit: %s\n", Commit)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
}
