package config

import "strings"

// envKeyReplacer maps config keys like "run.workers" to the environment
// variable form RUN_WORKERS (prefixed with SWARMDOC_ by viper).
var envKeyReplacer = strings.NewReplacer(".", "_")

// Keys lists the recognized configuration keys in display order.
var Keys = []string{
	"content.root",
	"content.extensions",
	"content.exclude_names",
	"run.workers",
	"run.progress_file",
	"run.prompt_file",
	"locks.dir",
	"locks.max_age",
	"processor.command",
	"processor.timeout",
	"gate.command",
	"commit.message",
	"commit.paths",
}
