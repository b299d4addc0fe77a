package main

import (
	"fmt"
	"github.com/beevik/etree"
	"github.com/confcore/sourcemap"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"os"
	"strconv"
	"strings"
)

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}

	if err := run(); err != nil {
		logrus.WithError(err).Fatal("sourcemap failed")
	}
}

func run() error {
	// Settings from a .env file surface through os.Getenv below; not having
	// one is fine.
	_ = godotenv.Load()

	level := stringSetting(flagLogLevel, "log-level", "SOURCEMAP_LOG_LEVEL")
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown log level %q", level)
	}
	logrus.SetLevel(logLevel)
	logrus.SetOutput(os.Stderr)

	log := logrus.WithField("conference", flagConference)

	conference := sourcemap.NewConferenceSourceMap()
	var validated *sourcemap.ValidatingConferenceSourceMap
	if flagValidate {
		validated = sourcemap.NewValidatingConferenceSourceMap(flagConference, sourcemap.ValidationLimits{
			MaxSsrcsPerEndpoint:      intSetting(flagMaxSsrcs, "max-ssrcs", "SOURCEMAP_MAX_SSRCS"),
			MaxSsrcGroupsPerEndpoint: intSetting(flagMaxGroups, "max-groups", "SOURCEMAP_MAX_GROUPS"),
		})
	}

	for _, arg := range flagSources {
		if err := merge(conference, validated, arg); err != nil {
			return err
		}
	}
	for _, arg := range flagRemovals {
		if err := subtract(conference, validated, arg); err != nil {
			return err
		}
	}
	if validated != nil {
		conference = validated.Copy()
	}

	if flagStripInjected {
		conference.RemoveInjected()
	}
	if flagStripSimulcast {
		conference.StripSimulcast()
	}

	return write(log, conference)
}

// loadAdvertisement reads one [OWNER=]FILE argument into a map of its own.
// Without an explicit owner the embedded annotations are honored when
// --trust-owners is set; otherwise a fresh endpoint id is minted.
func loadAdvertisement(arg string) (sourcemap.ConferenceSourceMap, error) {
	owner, path := splitOwnerArg(arg)

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	contents, err := sourcemap.ContentElements(doc.Root())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if owner == "" && flagTrustOwners {
		parsed, err := sourcemap.SourceMapFromJingle(contents)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return parsed, nil
	}

	set, err := sourcemap.SourceSetFromJingle(contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if owner == "" {
		owner = sourcemap.EndpointId(uuid.NewString())
	}
	parsed := sourcemap.NewConferenceSourceMap()
	parsed.AddEndpoint(owner, set)
	return parsed, nil
}

func merge(conference sourcemap.ConferenceSourceMap, validated *sourcemap.ValidatingConferenceSourceMap, arg string) error {
	parsed, err := loadAdvertisement(arg)
	if err != nil {
		return err
	}
	if validated == nil {
		conference.Add(parsed)
		return nil
	}
	for _, owner := range parsed.Owners() {
		set, _ := parsed.Get(owner)
		if _, err := validated.TryToAdd(owner, set); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

func subtract(conference sourcemap.ConferenceSourceMap, validated *sourcemap.ValidatingConferenceSourceMap, arg string) error {
	parsed, err := loadAdvertisement(arg)
	if err != nil {
		return err
	}
	if validated == nil {
		conference.Remove(parsed)
		return nil
	}
	for _, owner := range parsed.Owners() {
		set, _ := parsed.Get(owner)
		if _, err := validated.TryToRemove(owner, set); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

func write(log *logrus.Entry, conference sourcemap.ConferenceSourceMap) error {
	var out string
	if flagSummary {
		out = createConferenceSummary(log, conference)
	} else {
		doc := etree.NewDocument()
		doc.SetRoot(sourcemap.NewJingleElement("source-add", conference.ToJingle()))
		doc.Indent(2)
		rendered, err := doc.WriteToString()
		if err != nil {
			return err
		}
		out = rendered
	}

	if flagOutput != "" {
		return os.WriteFile(flagOutput, []byte(out), 0644)
	}
	fmt.Println(out)
	return nil
}

func splitOwnerArg(arg string) (sourcemap.EndpointId, string) {
	if parts := strings.SplitN(arg, "=", 2); len(parts) == 2 {
		return sourcemap.EndpointId(parts[0]), parts[1]
	}
	return "", arg
}

// stringSetting resolves a flag against its environment fallback: an
// explicitly set flag wins, then the environment, then the flag default.
func stringSetting(flagValue, flagName, envName string) string {
	if !flag.CommandLine.Changed(flagName) {
		if v := os.Getenv(envName); v != "" {
			return v
		}
	}
	return flagValue
}

func intSetting(flagValue int, flagName, envName string) int {
	if !flag.CommandLine.Changed(flagName) {
		if v := os.Getenv(envName); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return flagValue
}
