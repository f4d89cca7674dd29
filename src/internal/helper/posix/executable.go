// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package posix

import (
	"os"
	"strings"
)

// ProgramName is used when the invocation name cannot be determined.
const ProgramName = "netconf-tls-client"

// ExecutableName returns the name the program was invoked as, without
// directories or a ".exe" suffix, for use in usage lines.
func ExecutableName() string {
	if len(os.Args) == 0 {
		return ProgramName
	}
	return BaseName(os.Args[0])
}

// BaseName strips directories written with either separator and a trailing
// ".exe" from arg0. An empty result falls back to ProgramName.
func BaseName(arg0 string) string {
	if i := strings.LastIndexAny(arg0, `/\`); i >= 0 {
		arg0 = arg0[i+1:]
	}
	arg0 = strings.TrimSuffix(arg0, ".exe")
	if arg0 == "" {
		return ProgramName
	}
	return arg0
}
