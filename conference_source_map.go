package sourcemap

import (
	"fmt"
	"github.com/beevik/etree"
	"sort"
	"strings"
)

// EndpointId identifies one conference participant. It is opaque to this
// package; the empty string is a legal map key meaning "no owner recorded".
type EndpointId string

// SourceMapView is the read capability of a conference source map. Both the
// mutable map and its read-only wrapper implement it, so components can
// publish conference state without handing out mutators.
type SourceMapView interface {
	Get(owner EndpointId) (EndpointSourceSet, bool)
	Owners() []EndpointId
	Size() int
	IsEmpty() bool
	ToJingle() []*etree.Element
	SourceElements(mediaType MediaType) []*etree.Element
	SsrcGroupElements(mediaType MediaType) []*etree.Element
	Copy() ConferenceSourceMap
	String() string
}

// ConferenceSourceMap maps every participant of a conference to the sources
// it advertises. At most one entry per owner; an owner with nothing left is
// deleted rather than kept with an empty set.
//
// Not safe for concurrent mutation. The owning context serializes access and
// shares state with readers through ReadOnly.
type ConferenceSourceMap map[EndpointId]EndpointSourceSet

func NewConferenceSourceMap() ConferenceSourceMap {
	return make(ConferenceSourceMap)
}

// SourceMapFromJingle parses content elements into a conference map, the
// inverse of ToJingle: each source is attributed to the owner embedded in
// its ssrc-info annotation, or to the empty owner when none is present. A
// group goes to the owner of the first of its ssrcs advertised by any
// source, falling back to the empty owner.
func SourceMapFromJingle(contents []*etree.Element) (ConferenceSourceMap, error) {
	ownedSources := make(map[EndpointId][]Source)
	ssrcOwners := make(map[uint32]EndpointId)
	var groups []SsrcGroup
	for _, content := range contents {
		mediaType, err := contentMediaType(content)
		if err != nil {
			return nil, err
		}
		payload := contentPayload(content)
		for _, el := range sourceElements(payload) {
			source, err := ParseSource(mediaType, el)
			if err != nil {
				return nil, err
			}
			owner := sourceOwner(el)
			ownedSources[owner] = append(ownedSources[owner], source)
			if _, ok := ssrcOwners[source.Ssrc]; !ok {
				ssrcOwners[source.Ssrc] = owner
			}
		}
		for _, el := range ssrcGroupElements(payload) {
			group, err := ParseSsrcGroup(el)
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
	}

	ownedGroups := make(map[EndpointId][]SsrcGroup)
	for _, group := range groups {
		var owner EndpointId
		for _, ssrc := range group.Ssrcs {
			if o, ok := ssrcOwners[ssrc]; ok {
				owner = o
				break
			}
		}
		ownedGroups[owner] = append(ownedGroups[owner], group)
	}

	m := NewConferenceSourceMap()
	for owner, sources := range ownedSources {
		m.AddEndpoint(owner, NewEndpointSourceSet(sources, ownedGroups[owner]))
	}
	for owner, ownerGroups := range ownedGroups {
		if _, ok := ownedSources[owner]; !ok {
			m.AddEndpoint(owner, NewEndpointSourceSet(nil, ownerGroups))
		}
	}
	return m, nil
}

// Add merges another map in: union per owner, creating entries on demand.
// Re-adding sources already present is idempotent.
func (m ConferenceSourceMap) Add(other SourceMapView) {
	for _, owner := range other.Owners() {
		if set, ok := other.Get(owner); ok {
			m.AddEndpoint(owner, set)
		}
	}
}

// AddEndpoint merges a single endpoint's sources in. Merging an empty set
// changes nothing: absence of an owner key, not an empty entry, is how "no
// sources" is represented.
func (m ConferenceSourceMap) AddEndpoint(owner EndpointId, set EndpointSourceSet) {
	if set.IsEmpty() {
		return
	}
	if existing, ok := m[owner]; ok {
		m[owner] = existing.Union(set)
		return
	}
	m[owner] = set
}

// Remove subtracts another map out. Owners or sources absent from this map
// are silently skipped: removal ensures absence, it does not assert presence.
func (m ConferenceSourceMap) Remove(other SourceMapView) {
	for _, owner := range other.Owners() {
		if set, ok := other.Get(owner); ok {
			m.RemoveEndpoint(owner, set)
		}
	}
}

// RemoveEndpoint subtracts from a single endpoint's entry, deleting the
// entry entirely when nothing remains.
func (m ConferenceSourceMap) RemoveEndpoint(owner EndpointId, set EndpointSourceSet) {
	existing, ok := m[owner]
	if !ok {
		return
	}
	remaining := existing.Subtract(set)
	if remaining.IsEmpty() {
		delete(m, owner)
		return
	}
	m[owner] = remaining
}

// RemoveInjected replaces every entry with its WithoutInjected view, owners
// left with nothing are deleted. Returns the map for chaining.
func (m ConferenceSourceMap) RemoveInjected() ConferenceSourceMap {
	for owner, set := range m {
		remaining := set.WithoutInjected()
		if remaining.IsEmpty() {
			delete(m, owner)
			continue
		}
		m[owner] = remaining
	}
	return m
}

// StripSimulcast reduces every entry to its primary simulcast layer, owners
// left with nothing are deleted. Returns the map for chaining.
func (m ConferenceSourceMap) StripSimulcast() ConferenceSourceMap {
	for owner, set := range m {
		stripped := set.StripSimulcast()
		if stripped.IsEmpty() {
			delete(m, owner)
			continue
		}
		m[owner] = stripped
	}
	return m
}

// Copy returns a structural copy. The sets themselves are immutable, so the
// copy and the original share them safely.
func (m ConferenceSourceMap) Copy() ConferenceSourceMap {
	copied := make(ConferenceSourceMap, len(m))
	for owner, set := range m {
		copied[owner] = set
	}
	return copied
}

// ReadOnly wraps the map, backed by the same storage, exposing accessors
// only. Mutation attempts do not compile instead of failing at run time.
func (m ConferenceSourceMap) ReadOnly() ReadOnlyConferenceSourceMap {
	return ReadOnlyConferenceSourceMap{m: m}
}

func (m ConferenceSourceMap) Get(owner EndpointId) (EndpointSourceSet, bool) {
	set, ok := m[owner]
	return set, ok
}

// Owners returns the owners in lexicographic order, keeping rendering and
// logs reproducible.
func (m ConferenceSourceMap) Owners() []EndpointId {
	owners := make([]EndpointId, 0, len(m))
	for owner := range m {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

func (m ConferenceSourceMap) Size() int {
	return len(m)
}

func (m ConferenceSourceMap) IsEmpty() bool {
	return len(m) == 0
}

// ToJingle renders the whole conference as one content element per media
// kind: every owner's sources co-resident in the matching content, each
// annotated with its owner.
func (m ConferenceSourceMap) ToJingle() []*etree.Element {
	var contents []*etree.Element
	descriptions := make(map[ /*content name*/ string]*etree.Element, len(mediaTypes))
	for _, owner := range m.Owners() {
		for _, content := range m[owner].ToJingle(owner) {
			name := content.SelectAttrValue(nameAttrName, "")
			description, ok := descriptions[name]
			if !ok {
				contents = append(contents, content)
				descriptions[name] = descriptionElement(content)
				continue
			}
			for _, child := range descriptionElement(content).ChildElements() {
				description.AddChild(child)
			}
		}
	}
	return contents
}

// SourceElements flattens one media kind's sources across all owners into
// owner-annotated elements, for callers that need a flat list rather than
// the content tree.
func (m ConferenceSourceMap) SourceElements(mediaType MediaType) []*etree.Element {
	var elements []*etree.Element
	for _, owner := range m.Owners() {
		for _, source := range m[owner].Sources() {
			if source.MediaType == mediaType {
				elements = append(elements, source.ToElement(owner))
			}
		}
	}
	return elements
}

// SsrcGroupElements flattens one media kind's groups across all owners.
// A group's media kind comes from the sources sharing its ssrcs; groups
// matching no source have no media kind and appear in no flat list.
func (m ConferenceSourceMap) SsrcGroupElements(mediaType MediaType) []*etree.Element {
	var elements []*etree.Element
	for _, owner := range m.Owners() {
		set := m[owner]
		sources := set.Sources()
		for _, group := range set.SsrcGroups() {
			if groupMedia, ok := groupMediaType(group, sources); ok && groupMedia == mediaType {
				elements = append(elements, group.ToElement())
			}
		}
	}
	return elements
}

func (m ConferenceSourceMap) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, owner := range m.Owners() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", owner, m[owner])
	}
	b.WriteByte('}')
	return b.String()
}

// ReadOnlyConferenceSourceMap shares the wrapped map's backing storage: the
// owner keeps mutating through the original reference and readers observe
// the result, without ever being able to mutate it themselves.
type ReadOnlyConferenceSourceMap struct {
	m ConferenceSourceMap
}

func (r ReadOnlyConferenceSourceMap) Get(owner EndpointId) (EndpointSourceSet, bool) {
	return r.m.Get(owner)
}

func (r ReadOnlyConferenceSourceMap) Owners() []EndpointId {
	return r.m.Owners()
}

func (r ReadOnlyConferenceSourceMap) Size() int {
	return r.m.Size()
}

func (r ReadOnlyConferenceSourceMap) IsEmpty() bool {
	return r.m.IsEmpty()
}

func (r ReadOnlyConferenceSourceMap) ToJingle() []*etree.Element {
	return r.m.ToJingle()
}

func (r ReadOnlyConferenceSourceMap) SourceElements(mediaType MediaType) []*etree.Element {
	return r.m.SourceElements(mediaType)
}

func (r ReadOnlyConferenceSourceMap) SsrcGroupElements(mediaType MediaType) []*etree.Element {
	return r.m.SsrcGroupElements(mediaType)
}

// Copy returns a mutable copy, detached from the wrapped map.
func (r ReadOnlyConferenceSourceMap) Copy() ConferenceSourceMap {
	return r.m.Copy()
}

func (r ReadOnlyConferenceSourceMap) String() string {
	return r.m.String()
}
