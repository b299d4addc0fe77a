package sourcemap

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func audioSources(ssrcs ...uint32) []Source {
	sources := make([]Source, 0, len(ssrcs))
	for _, ssrc := range ssrcs {
		sources = append(sources, Source{Ssrc: ssrc, MediaType: Audio})
	}
	return sources
}

func videoSources(ssrcs ...uint32) []Source {
	sources := make([]Source, 0, len(ssrcs))
	for _, ssrc := range ssrcs {
		sources = append(sources, Source{Ssrc: ssrc, MediaType: Video})
	}
	return sources
}

func TestNewEndpointSourceSetDeduplicates(t *testing.T) {
	set := NewEndpointSourceSet(
		[]Source{{Ssrc: 1, MediaType: Audio}, {Ssrc: 1, MediaType: Audio}},
		[]SsrcGroup{
			{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}},
			{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}},
		},
	)
	assert.Len(t, set.Sources(), 1)
	assert.Len(t, set.SsrcGroups(), 1)
}

func TestIsEmpty(t *testing.T) {
	var zero EndpointSourceSet
	assert.True(t, zero.IsEmpty())
	assert.True(t, NewEndpointSourceSet(nil, nil).IsEmpty())
	assert.False(t, NewEndpointSourceSet(audioSources(1), nil).IsEmpty())
	assert.False(t, NewEndpointSourceSet(nil, []SsrcGroup{{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}}}).IsEmpty())
}

func TestEndpointSourceSetEqual(t *testing.T) {
	group := SsrcGroup{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}}
	a := NewEndpointSourceSet(audioSources(1, 2), []SsrcGroup{group})
	b := NewEndpointSourceSet(audioSources(2, 1), []SsrcGroup{group})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewEndpointSourceSet(audioSources(1, 2), nil)))
	assert.False(t, a.Equal(NewEndpointSourceSet(audioSources(1), []SsrcGroup{group})))
}

func TestUnion(t *testing.T) {
	group := SsrcGroup{Semantics: SemanticsFid, Ssrcs: []uint32{2, 3}}
	a := NewEndpointSourceSet(videoSources(1, 2), nil)
	b := NewEndpointSourceSet(videoSources(2, 3), []SsrcGroup{group})

	union := a.Union(b)
	assert.Equal(t, videoSources(1, 2, 3), union.Sources())
	assert.Len(t, union.SsrcGroups(), 1)

	// commutative and idempotent
	assert.True(t, union.Equal(b.Union(a)))
	assert.True(t, union.Equal(union.Union(b)))

	// operands untouched
	assert.Len(t, a.Sources(), 2)
	assert.Empty(t, a.SsrcGroups())
}

func TestSubtractIsRightInverseOfUnion(t *testing.T) {
	base := NewEndpointSourceSet(videoSources(1, 2, 3), nil)
	group := SsrcGroup{Semantics: SemanticsSim, Ssrcs: []uint32{4, 5, 6}}
	added := NewEndpointSourceSet(videoSources(1, 2, 3, 4, 5, 6), []SsrcGroup{group})

	union := base.Union(added)
	assert.Len(t, union.Sources(), 6)

	difference := union.Subtract(base)
	assert.Equal(t, videoSources(4, 5, 6), difference.Sources())
	require.Len(t, difference.SsrcGroups(), 1)
	assert.True(t, difference.SsrcGroups()[0].Equal(group))
}

func TestSubtractLeavesGroupsDangling(t *testing.T) {
	group := SsrcGroup{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}}
	set := NewEndpointSourceSet(videoSources(1, 2), []SsrcGroup{group})

	remaining := set.Subtract(NewEndpointSourceSet(videoSources(1, 2), nil))

	// removing sources does not prune groups referencing their ssrcs
	assert.Empty(t, remaining.Sources())
	assert.Len(t, remaining.SsrcGroups(), 1)
	assert.False(t, remaining.IsEmpty())
}

func TestSourcesAreSortedCopies(t *testing.T) {
	set := NewEndpointSourceSet([]Source{
		{Ssrc: 2, MediaType: Video},
		{Ssrc: 1, MediaType: Video},
		{Ssrc: 1, MediaType: Audio},
	}, nil)

	sources := set.Sources()
	assert.Equal(t, []Source{
		{Ssrc: 1, MediaType: Audio},
		{Ssrc: 1, MediaType: Video},
		{Ssrc: 2, MediaType: Video},
	}, sources)

	sources[0] = Source{Ssrc: 99, MediaType: Audio}
	assert.Equal(t, uint32(1), set.Sources()[0].Ssrc)
}

func TestWithoutInjected(t *testing.T) {
	group := SsrcGroup{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}}
	set := NewEndpointSourceSet([]Source{
		{Ssrc: 1, MediaType: Audio, Injected: true},
		{Ssrc: 2, MediaType: Video},
	}, []SsrcGroup{group})

	filtered := set.WithoutInjected()
	require.Len(t, filtered.Sources(), 1)
	assert.Equal(t, uint32(2), filtered.Sources()[0].Ssrc)
	assert.Len(t, filtered.SsrcGroups(), 1)

	// original untouched
	assert.Len(t, set.Sources(), 2)

	allInjected := NewEndpointSourceSet([]Source{{Ssrc: 3, MediaType: Audio, Injected: true}}, nil)
	assert.True(t, allInjected.WithoutInjected().IsEmpty())
}

func TestStripSimulcast(t *testing.T) {
	set := NewEndpointSourceSet(videoSources(1, 2, 3, 4, 5, 6), []SsrcGroup{
		{Semantics: SemanticsSim, Ssrcs: []uint32{1, 2, 3}},
		{Semantics: SemanticsFid, Ssrcs: []uint32{1, 4}},
		{Semantics: SemanticsFid, Ssrcs: []uint32{2, 5}},
		{Semantics: SemanticsFid, Ssrcs: []uint32{3, 6}},
	})

	stripped := set.StripSimulcast()
	assert.Equal(t, videoSources(1, 4), stripped.Sources())
	require.Len(t, stripped.SsrcGroups(), 1)
	assert.True(t, stripped.SsrcGroups()[0].Equal(SsrcGroup{Semantics: SemanticsFid, Ssrcs: []uint32{1, 4}}))
}

func TestStripSimulcastWithoutSimGroups(t *testing.T) {
	set := NewEndpointSourceSet(videoSources(1, 2), []SsrcGroup{{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}}})
	assert.True(t, set.StripSimulcast().Equal(set))
}

func TestToJingleOrdersContentsByMedia(t *testing.T) {
	set := NewEndpointSourceSet([]Source{
		{Ssrc: 20, MediaType: Audio},
		{Ssrc: 10, MediaType: Video},
		{Ssrc: 11, MediaType: Video},
	}, []SsrcGroup{{Semantics: SemanticsFid, Ssrcs: []uint32{10, 11}}})

	contents := set.ToJingle("room@conf/ep1")
	require.Len(t, contents, 2)
	assert.Equal(t, "audio", contents[0].SelectAttrValue("name", ""))
	assert.Equal(t, "video", contents[1].SelectAttrValue("name", ""))

	audio := descriptionElement(contents[0])
	require.NotNil(t, audio)
	assert.Len(t, sourceElements(audio), 1)
	assert.Empty(t, ssrcGroupElements(audio))

	video := descriptionElement(contents[1])
	require.NotNil(t, video)
	assert.Len(t, sourceElements(video), 2)
	groups := ssrcGroupElements(video)
	require.Len(t, groups, 1)
	assert.Equal(t, "FID", groups[0].SelectAttrValue("semantics", ""))

	for _, el := range sourceElements(video) {
		info := el.SelectElement("ssrc-info")
		require.NotNil(t, info)
		assert.Equal(t, "room@conf/ep1", info.SelectAttrValue("owner", ""))
	}
}

func TestToJingleAttachesUnmatchedGroupToFirstContent(t *testing.T) {
	set := NewEndpointSourceSet(audioSources(1),
		[]SsrcGroup{{Semantics: SemanticsFid, Ssrcs: []uint32{98, 99}}})

	contents := set.ToJingle("")
	require.Len(t, contents, 1)
	assert.Len(t, ssrcGroupElements(descriptionElement(contents[0])), 1)
}

func TestToJingleDropsGroupWithoutAnyContent(t *testing.T) {
	set := NewEndpointSourceSet(nil, []SsrcGroup{{Semantics: SemanticsFid, Ssrcs: []uint32{1, 2}}})
	assert.Empty(t, set.ToJingle(""))
}

func TestWireRoundTrip(t *testing.T) {
	original := NewEndpointSourceSet([]Source{
		{Ssrc: 1, MediaType: Audio, Msid: "stream track", Cname: "cn"},
		{Ssrc: 2, MediaType: Video, Injected: true},
		{Ssrc: 3, MediaType: Video},
	}, []SsrcGroup{{Semantics: SemanticsFid, Ssrcs: []uint32{2, 3}}})

	// the embedded owner annotation is not part of the parsed value
	parsed, err := SourceSetFromJingle(original.ToJingle("room@conf/someone"))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(original))
}

func TestSourceSetFromJingleMarkup(t *testing.T) {
	root := parseElement(t, `
		<jingle xmlns="urn:xmpp:jingle:1">
		  <content name="video">
		    <description xmlns="urn:xmpp:jingle:apps:rtp:1" media="video">
		      <source xmlns="urn:xmpp:jingle:apps:rtp:ssma:0" ssrc="1111">
		        <parameter name="msid" value="s t"/>
		      </source>
		      <source ssrc="2222"/>
		      <ssrc-group xmlns="urn:xmpp:jingle:apps:rtp:ssma:0" semantics="FID">
		        <source ssrc="1111"/>
		        <source ssrc="2222"/>
		      </ssrc-group>
		    </description>
		  </content>
		</jingle>`)

	contents, err := ContentElements(root)
	require.NoError(t, err)
	set, err := SourceSetFromJingle(contents)
	require.NoError(t, err)

	assert.Len(t, set.Sources(), 2)
	require.Len(t, set.SsrcGroups(), 1)
	assert.Equal(t, "FID 1111 2222", set.SsrcGroups()[0].String())
}

func TestSourceSetFromJingleBadMedia(t *testing.T) {
	contents, err := ContentElements(parseElement(t, `<content name="application"/>`))
	require.NoError(t, err)
	_, err = SourceSetFromJingle(contents)
	assert.ErrorIs(t, err, UnknownMediaTypeError)
}

func TestEndpointSourceSetString(t *testing.T) {
	set := NewEndpointSourceSet(audioSources(5), []SsrcGroup{{Semantics: SemanticsSim, Ssrcs: []uint32{5, 6}}})
	assert.Equal(t, "[audio:5, SIM 5 6]", set.String())
	assert.Equal(t, "[]", EndpointSourceSet{}.String())
}
