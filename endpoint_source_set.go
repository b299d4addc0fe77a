package sourcemap

import (
	"github.com/beevik/etree"
	"github.com/confcore/sourcemap/internal/sets"
	"github.com/sirupsen/logrus"
	"sort"
	"strings"
)

var log = logrus.WithField("module", "sourcemap")

// EndpointSourceSet is everything one endpoint advertises: a set of sources
// and a set of ssrc groups. Both fields are sets — insertion order is
// irrelevant and duplicates collapse silently.
//
// The zero value is the empty set. Values are immutable: Union, Subtract and
// the Strip/Without derivations construct new instances, so instances can be
// shared freely once built.
type EndpointSourceSet struct {
	sources    sets.Set[Source]
	ssrcGroups map[ /*SsrcGroup.key*/ string]SsrcGroup
}

func NewEndpointSourceSet(sources []Source, ssrcGroups []SsrcGroup) EndpointSourceSet {
	set := EndpointSourceSet{
		sources:    sets.NewSized[Source](len(sources)),
		ssrcGroups: make(map[string]SsrcGroup, len(ssrcGroups)),
	}
	for _, source := range sources {
		set.sources.Add(source)
	}
	for _, group := range ssrcGroups {
		set.ssrcGroups[group.key()] = group
	}
	return set
}

// SourceSetFromJingle parses a list of content elements into one combined
// set across all media kinds. Embedded ssrc-info owner annotations are
// ignored: the caller knows which endpoint the advertisement came from and
// is authoritative. A bad media kind, ssrc or group semantics aborts the
// whole parse; the caller decides whether to skip or fail the signal.
func SourceSetFromJingle(contents []*etree.Element) (EndpointSourceSet, error) {
	var sources []Source
	var ssrcGroups []SsrcGroup
	for _, content := range contents {
		mediaType, err := contentMediaType(content)
		if err != nil {
			return EndpointSourceSet{}, err
		}
		payload := contentPayload(content)
		for _, el := range sourceElements(payload) {
			source, err := ParseSource(mediaType, el)
			if err != nil {
				return EndpointSourceSet{}, err
			}
			sources = append(sources, source)
		}
		for _, el := range ssrcGroupElements(payload) {
			group, err := ParseSsrcGroup(el)
			if err != nil {
				return EndpointSourceSet{}, err
			}
			ssrcGroups = append(ssrcGroups, group)
		}
	}
	return NewEndpointSourceSet(sources, ssrcGroups), nil
}

// ToJingle renders one content element per media kind present (audio before
// video). Sources come first, each annotated with owner when it is non-empty,
// followed by the groups attributed to that media kind. A group whose ssrcs
// match no advertised source is attached to the first content built and
// flagged in the log; with no content to attach to it is dropped.
func (s EndpointSourceSet) ToJingle(owner EndpointId) []*etree.Element {
	sources := s.Sources()

	var contents []*etree.Element
	var firstDescription *etree.Element
	descriptions := make(map[MediaType]*etree.Element, len(mediaTypes))

	for _, mediaType := range mediaTypes {
		for _, source := range sources {
			if source.MediaType != mediaType {
				continue
			}
			description, ok := descriptions[mediaType]
			if !ok {
				var content *etree.Element
				content, description = newContentElement(mediaType)
				contents = append(contents, content)
				descriptions[mediaType] = description
				if firstDescription == nil {
					firstDescription = description
				}
			}
			description.AddChild(source.ToElement(owner))
		}
	}

	for _, group := range s.SsrcGroups() {
		var description *etree.Element
		if mediaType, ok := groupMediaType(group, sources); ok {
			description = descriptions[mediaType]
		} else if firstDescription != nil {
			log.WithField("group", group.String()).
				Warn("ssrc-group matches no advertised source, attaching to first content")
			description = firstDescription
		} else {
			log.WithField("group", group.String()).
				Warn("dropping ssrc-group, no content to attach it to")
			continue
		}
		description.AddChild(group.ToElement())
	}
	return contents
}

// groupMediaType attributes a media kind to a group by cross-referencing the
// sources sharing its ssrcs. A group spanning media kinds resolves to the
// first match in group order.
func groupMediaType(group SsrcGroup, sources []Source) (MediaType, bool) {
	for _, ssrc := range group.Ssrcs {
		for _, source := range sources {
			if source.Ssrc == ssrc {
				return source.MediaType, true
			}
		}
	}
	return 0, false
}

// Union returns the set union on both fields.
func (s EndpointSourceSet) Union(other EndpointSourceSet) EndpointSourceSet {
	union := EndpointSourceSet{
		sources:    s.sources.Union(other.sources),
		ssrcGroups: make(map[string]SsrcGroup, len(s.ssrcGroups)+len(other.ssrcGroups)),
	}
	for key, group := range s.ssrcGroups {
		union.ssrcGroups[key] = group
	}
	for key, group := range other.ssrcGroups {
		union.ssrcGroups[key] = group
	}
	return union
}

// Subtract returns the set difference, applied to the two fields
// independently: removing a source does not remove groups that still
// reference its ssrc. Callers that care strip such groups themselves.
func (s EndpointSourceSet) Subtract(other EndpointSourceSet) EndpointSourceSet {
	difference := EndpointSourceSet{
		sources:    s.sources.Diff(other.sources),
		ssrcGroups: make(map[string]SsrcGroup, len(s.ssrcGroups)),
	}
	for key, group := range s.ssrcGroups {
		if _, removed := other.ssrcGroups[key]; !removed {
			difference.ssrcGroups[key] = group
		}
	}
	return difference
}

func (s EndpointSourceSet) IsEmpty() bool {
	return len(s.sources) == 0 && len(s.ssrcGroups) == 0
}

func (s EndpointSourceSet) Equal(other EndpointSourceSet) bool {
	if len(s.ssrcGroups) != len(other.ssrcGroups) || !s.sources.Equal(other.sources) {
		return false
	}
	for key := range s.ssrcGroups {
		if _, ok := other.ssrcGroups[key]; !ok {
			return false
		}
	}
	return true
}

// Sources returns the sources in canonical order. The slice is a copy.
func (s EndpointSourceSet) Sources() []Source {
	sources := s.sources.GetSlice()
	sort.Slice(sources, func(i, j int) bool {
		return compareSources(sources[i], sources[j]) < 0
	})
	return sources
}

// SsrcGroups returns the groups in canonical order. The slice is a copy.
func (s EndpointSourceSet) SsrcGroups() []SsrcGroup {
	groups := make([]SsrcGroup, 0, len(s.ssrcGroups))
	for _, group := range s.ssrcGroups {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return compareGroups(groups[i], groups[j]) < 0
	})
	return groups
}

// WithoutInjected filters out sources flagged as injected, keeping all
// groups: injected sources are never grouped in practice.
func (s EndpointSourceSet) WithoutInjected() EndpointSourceSet {
	injected := false
	for source := range s.sources {
		if source.Injected {
			injected = true
			break
		}
	}
	if !injected {
		return s
	}
	filtered := EndpointSourceSet{
		sources:    sets.New[Source](),
		ssrcGroups: s.ssrcGroups,
	}
	for source := range s.sources {
		if !source.Injected {
			filtered.sources.Add(source)
		}
	}
	return filtered
}

// StripSimulcast reduces every simulcast group to its primary layer: the
// secondary layers' sources are removed along with their retransmission
// pairs, the SIM groups disappear, and the primary's own FID group survives.
// Sets that signal no simulcast are returned unchanged.
func (s EndpointSourceSet) StripSimulcast() EndpointSourceSet {
	simulcast := false
	for _, group := range s.ssrcGroups {
		if group.Semantics == SemanticsSim {
			simulcast = true
			break
		}
	}
	if !simulcast {
		return s
	}

	removedSsrcs := sets.New[uint32]()
	for _, group := range s.ssrcGroups {
		if group.Semantics != SemanticsSim {
			continue
		}
		for i, ssrc := range group.Ssrcs {
			if i > 0 {
				removedSsrcs.Add(ssrc)
			}
		}
	}
	// An RTX pair headed by a dropped layer loses its repair ssrcs too.
	for _, group := range s.ssrcGroups {
		if group.Semantics != SemanticsFid || len(group.Ssrcs) == 0 {
			continue
		}
		if removedSsrcs.Contains(group.Ssrcs[0]) {
			for _, ssrc := range group.Ssrcs[1:] {
				removedSsrcs.Add(ssrc)
			}
		}
	}

	stripped := EndpointSourceSet{
		sources:    sets.New[Source](),
		ssrcGroups: make(map[string]SsrcGroup, len(s.ssrcGroups)),
	}
	for source := range s.sources {
		if !removedSsrcs.Contains(source.Ssrc) {
			stripped.sources.Add(source)
		}
	}
groups:
	for key, group := range s.ssrcGroups {
		if group.Semantics == SemanticsSim {
			continue
		}
		for _, ssrc := range group.Ssrcs {
			if removedSsrcs.Contains(ssrc) {
				continue groups
			}
		}
		stripped.ssrcGroups[key] = group
	}
	return stripped
}

func (s EndpointSourceSet) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, source := range s.Sources() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(source.String())
	}
	for i, group := range s.SsrcGroups() {
		if i > 0 || len(s.sources) > 0 {
			b.WriteString(", ")
		}
		b.WriteString(group.String())
	}
	b.WriteByte(']')
	return b.String()
}
