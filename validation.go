package sourcemap

import (
	"fmt"
	"github.com/sirupsen/logrus"
)

// ValidationLimits caps what a single endpoint may advertise.
type ValidationLimits struct {
	MaxSsrcsPerEndpoint      int
	MaxSsrcGroupsPerEndpoint int
}

var DefaultValidationLimits = ValidationLimits{
	MaxSsrcsPerEndpoint:      20,
	MaxSsrcGroupsPerEndpoint: 20,
}

// ValidatingConferenceSourceMap guards a conference map against malformed or
// conflicting advertisements. It keeps conference-wide ssrc and msid indices
// so a client cannot claim another endpoint's identifiers. TryToAdd and
// TryToRemove are atomic: on error nothing changes.
//
// Like ConferenceSourceMap it is not safe for concurrent mutation.
type ValidatingConferenceSourceMap struct {
	m      ConferenceSourceMap
	limits ValidationLimits
	log    *logrus.Entry

	ssrcOwners map[uint32]EndpointId
	msidOwners map[ /*msid*/ string]EndpointId
}

// NewValidatingConferenceSourceMap creates an empty guarded map for the
// named conference. Zero limit fields fall back to DefaultValidationLimits.
func NewValidatingConferenceSourceMap(conferenceName string, limits ValidationLimits) *ValidatingConferenceSourceMap {
	if limits.MaxSsrcsPerEndpoint <= 0 {
		limits.MaxSsrcsPerEndpoint = DefaultValidationLimits.MaxSsrcsPerEndpoint
	}
	if limits.MaxSsrcGroupsPerEndpoint <= 0 {
		limits.MaxSsrcGroupsPerEndpoint = DefaultValidationLimits.MaxSsrcGroupsPerEndpoint
	}
	return &ValidatingConferenceSourceMap{
		m:          NewConferenceSourceMap(),
		limits:     limits,
		log:        log.WithField("conference", conferenceName),
		ssrcOwners: make(map[uint32]EndpointId),
		msidOwners: make(map[string]EndpointId),
	}
}

// TryToAdd validates an endpoint's advertisement and merges it in. Sources
// and groups the endpoint already signaled collapse silently (union
// semantics); the returned set is the accepted delta, what actually became
// part of the conference and should be signaled onward.
func (v *ValidatingConferenceSourceMap) TryToAdd(owner EndpointId, set EndpointSourceSet) (EndpointSourceSet, error) {
	existing, _ := v.m.Get(owner)

	ownerSsrcs := make(map[uint32]bool, len(existing.sources)+len(set.sources))
	for source := range existing.sources {
		ownerSsrcs[source.Ssrc] = true
	}

	var newSources []Source
	for _, source := range set.Sources() {
		if existing.sources.Contains(source) {
			continue
		}
		if source.Ssrc == 0 {
			return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
				fmt.Errorf("%w, ssrc = 0", InvalidSsrcError))
		}
		if ssrcOwner, used := v.ssrcOwners[source.Ssrc]; used || ownerSsrcs[source.Ssrc] {
			if !used {
				ssrcOwner = owner
			}
			return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
				fmt.Errorf("%w, ssrc = %d, owner = %s", SsrcAlreadyUsedError, source.Ssrc, ssrcOwner))
		}
		if msidOwner, used := v.msidOwners[source.Msid]; source.Msid != "" && used && msidOwner != owner {
			return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
				fmt.Errorf("%w, msid = %q, owner = %s", MsidConflictError, source.Msid, msidOwner))
		}
		ownerSsrcs[source.Ssrc] = true
		newSources = append(newSources, source)
	}

	if len(existing.sources)+len(newSources) > v.limits.MaxSsrcsPerEndpoint {
		return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
			fmt.Errorf("%w, count = %d, limit = %d", TooManySourcesError,
				len(existing.sources)+len(newSources), v.limits.MaxSsrcsPerEndpoint))
	}

	var newGroups []SsrcGroup
	for _, group := range set.SsrcGroups() {
		if _, ok := existing.ssrcGroups[group.key()]; ok {
			continue
		}
		if len(group.Ssrcs) == 0 {
			return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
				fmt.Errorf("%w, empty %s group", InvalidGroupError, group.Semantics))
		}
		if group.Semantics == SemanticsFid && len(group.Ssrcs) != 2 {
			return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
				fmt.Errorf("%w, FID group must pair exactly 2 ssrcs, got %d", InvalidGroupError, len(group.Ssrcs)))
		}
		if group.Semantics == SemanticsSim && len(group.Ssrcs) < 2 {
			return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
				fmt.Errorf("%w, SIM group needs at least 2 ssrcs, got %d", InvalidGroupError, len(group.Ssrcs)))
		}
		for _, ssrc := range group.Ssrcs {
			if !ownerSsrcs[ssrc] {
				return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
					fmt.Errorf("%w, grouped ssrc %d is not advertised by the endpoint", InvalidGroupError, ssrc))
			}
		}
		newGroups = append(newGroups, group)
	}

	if len(existing.ssrcGroups)+len(newGroups) > v.limits.MaxSsrcGroupsPerEndpoint {
		return EndpointSourceSet{}, v.reject(rejectedAdd, owner,
			fmt.Errorf("%w, count = %d, limit = %d", TooManySsrcGroupsError,
				len(existing.ssrcGroups)+len(newGroups), v.limits.MaxSsrcGroupsPerEndpoint))
	}

	delta := NewEndpointSourceSet(newSources, newGroups)
	if delta.IsEmpty() {
		return delta, nil
	}
	v.m.AddEndpoint(owner, delta)
	for _, source := range newSources {
		v.ssrcOwners[source.Ssrc] = owner
		if source.Msid != "" {
			v.msidOwners[source.Msid] = owner
		}
	}
	return delta, nil
}

// TryToRemove withdraws part of an endpoint's advertisement. Unlike
// ConferenceSourceMap.Remove it is strict: withdrawing a source or group the
// endpoint never signaled is an error. Returns the removed delta; the
// endpoint's entry disappears when nothing remains.
func (v *ValidatingConferenceSourceMap) TryToRemove(owner EndpointId, set EndpointSourceSet) (EndpointSourceSet, error) {
	if set.IsEmpty() {
		return EndpointSourceSet{}, nil
	}
	existing, ok := v.m.Get(owner)
	if !ok {
		return EndpointSourceSet{}, v.reject(rejectedRemove, owner,
			fmt.Errorf("%w, endpoint has no signaled sources", UnknownSourceError))
	}
	for _, source := range set.Sources() {
		if !existing.sources.Contains(source) {
			return EndpointSourceSet{}, v.reject(rejectedRemove, owner,
				fmt.Errorf("%w, ssrc = %d", UnknownSourceError, source.Ssrc))
		}
	}
	for _, group := range set.SsrcGroups() {
		if _, ok := existing.ssrcGroups[group.key()]; !ok {
			return EndpointSourceSet{}, v.reject(rejectedRemove, owner,
				fmt.Errorf("%w, group = %s", UnknownSourceError, group))
		}
	}

	v.m.RemoveEndpoint(owner, set)
	remaining, _ := v.m.Get(owner)
	for _, source := range set.Sources() {
		delete(v.ssrcOwners, source.Ssrc)
		if source.Msid == "" {
			continue
		}
		stillUsed := false
		for s := range remaining.sources {
			if s.Msid == source.Msid {
				stillUsed = true
				break
			}
		}
		if !stillUsed {
			delete(v.msidOwners, source.Msid)
		}
	}
	return set, nil
}

// View shares the underlying map for read-only consumption.
func (v *ValidatingConferenceSourceMap) View() ReadOnlyConferenceSourceMap {
	return v.m.ReadOnly()
}

// Copy returns a mutable snapshot, detached from the validated state.
func (v *ValidatingConferenceSourceMap) Copy() ConferenceSourceMap {
	return v.m.Copy()
}

const (
	rejectedAdd    = "rejected source advertisement"
	rejectedRemove = "rejected source withdrawal"
)

func (v *ValidatingConferenceSourceMap) reject(action string, owner EndpointId, err error) error {
	v.log.WithError(err).WithField("owner", string(owner)).Warn(action)
	return err
}
