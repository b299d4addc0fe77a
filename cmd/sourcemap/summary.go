package main

import (
	"encoding/json"
	"github.com/confcore/sourcemap"
	"github.com/confcore/sourcemap/internal/sets"
	"github.com/sirupsen/logrus"
	"sort"
)

const emptyJson = "{}"

// createConferenceSummary renders the conference as indented JSON: overall
// per-media counts plus a per-owner breakdown.
func createConferenceSummary(log *logrus.Entry, view sourcemap.SourceMapView) string {
	owners := make([]map[string]interface{}, 0, view.Size())
	mediaTotals := map[sourcemap.MediaType]int{}
	groupTotal := 0
	injectedTotal := 0

	for _, owner := range view.Owners() {
		set, _ := view.Get(owner)

		ssrcs := make([]uint32, 0)
		msids := sets.New[string]()
		injected := 0
		for _, source := range set.Sources() {
			ssrcs = append(ssrcs, source.Ssrc)
			mediaTotals[source.MediaType]++
			if source.Injected {
				injected++
				injectedTotal++
			}
			if source.Msid != "" {
				msids.Add(source.Msid)
			}
		}

		groups := make([]string, 0)
		for _, group := range set.SsrcGroups() {
			groups = append(groups, group.String())
			groupTotal++
		}

		msidList := msids.GetSlice()
		sort.Strings(msidList)

		owners = append(owners, map[string]interface{}{
			"owner":    string(owner),
			"ssrcs":    ssrcs,
			"msids":    msidList,
			"groups":   groups,
			"injected": injected,
		})
	}

	msg := map[string]interface{}{
		"endpoints":    view.Size(),
		"audioSources": mediaTotals[sourcemap.Audio],
		"videoSources": mediaTotals[sourcemap.Video],
		"ssrcGroups":   groupTotal,
		"injected":     injectedTotal,
		"owners":       owners,
	}
	msgBytes, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		log.WithError(err).Error("error while converting to JSON")
		return emptyJson
	}
	return string(msgBytes)
}
