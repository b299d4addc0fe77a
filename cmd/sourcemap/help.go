package main

import (
	"fmt"
	flag "github.com/spf13/pflag"
)

var (
	flagSources        []string
	flagRemovals       []string
	flagTrustOwners    bool
	flagStripInjected  bool
	flagStripSimulcast bool
	flagValidate       bool
	flagConference     string
	flagMaxSsrcs       int
	flagMaxGroups      int
	flagSummary        bool
	flagOutput         string
	flagLogLevel       string
	flagHelp           bool
)

func init() {
	flag.StringArrayVarP(&flagSources, "source", "s", nil, "Advertisement file to merge, [OWNER=]FILE")
	flag.StringArrayVarP(&flagRemovals, "remove", "r", nil, "Advertisement file to subtract, [OWNER=]FILE")
	flag.BoolVarP(&flagTrustOwners, "trust-owners", "", false, "Attribute sources to embedded ssrc-info owners")
	flag.BoolVarP(&flagStripInjected, "strip-injected", "", false, "Drop server-injected sources")
	flag.BoolVarP(&flagStripSimulcast, "strip-simulcast", "", false, "Keep only primary simulcast layers")
	flag.BoolVarP(&flagValidate, "validate", "", false, "Reject conflicting or oversized advertisements")
	flag.StringVarP(&flagConference, "conference", "", "cli", "Conference name for validation logs")
	flag.IntVarP(&flagMaxSsrcs, "max-ssrcs", "", 20, "Per-endpoint source limit")
	flag.IntVarP(&flagMaxGroups, "max-groups", "", 20, "Per-endpoint ssrc-group limit")
	flag.BoolVarP(&flagSummary, "summary", "", false, "Print a JSON summary instead of the jingle tree")
	flag.StringVarP(&flagOutput, "output", "o", "", "Write to FILE instead of stdout")
	flag.StringVarP(&flagLogLevel, "log-level", "", "info", "Log level")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
}

const helpString = `Conference media-source bookkeeping tool

Usage: sourcemap [OPTION]...

Merges media-source advertisements into one conference-wide source map and
renders the result as an indented jingle document. Accepted input roots:
<jingle>, <sources>, or a bare <content>.

Advertisements:
  -s, --source=[OWNER=]FILE  Merge FILE's sources under OWNER (repeatable).
                               Without OWNER a fresh endpoint id is minted,
                               unless --trust-owners is set.
  -r, --remove=[OWNER=]FILE  Subtract FILE's sources from OWNER (repeatable).
                               Removals need OWNER or --trust-owners to name
                               an endpoint that was merged before.
      --trust-owners         Attribute sources to the owners embedded in
                               their ssrc-info annotations

Transformations:
      --strip-injected       Drop server-injected sources
      --strip-simulcast      Keep only primary simulcast layers

Validation:
      --validate             Reject conflicting or oversized advertisements
                               instead of merging blindly
      --conference=NAME      Conference name used in validation logs
                               (default: cli)
      --max-ssrcs=NUM        Per-endpoint source limit (default: 20,
                               env: SOURCEMAP_MAX_SSRCS)
      --max-groups=NUM       Per-endpoint ssrc-group limit (default: 20,
                               env: SOURCEMAP_MAX_GROUPS)

Output:
  -o, --output=FILE          Write to FILE instead of stdout
      --summary              Print a JSON summary instead of the jingle tree
      --log-level=LEVEL      One of trace, debug, info, warn, error
                               (default: info, env: SOURCEMAP_LOG_LEVEL)

Miscellaneous:
  -h, --help                 Print usage information and exit

Settings also load from a .env file in the working directory.`

func help() {
	fmt.Println(helpString)
}
