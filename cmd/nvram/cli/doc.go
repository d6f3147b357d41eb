// Copyright 2026 Data Respons Solutions AB
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the nvram tool:
// a Command tree with pflag flag sets, structured help output, typo
// suggestions for unknown commands and flags, the ExitError
// convention for handled non-zero exits, and the standard command
// logger.
package cli
