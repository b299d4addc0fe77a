package sourcemap

import (
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func parseElement(t *testing.T, markup string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(markup))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func TestContentElements(t *testing.T) {
	jingle := parseElement(t, `
		<jingle xmlns="urn:xmpp:jingle:1" action="source-add">
			<content name="audio"/>
			<content name="video"/>
		</jingle>`)
	contents, err := ContentElements(jingle)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, "audio", contents[0].SelectAttrValue("name", ""))
	assert.Equal(t, "video", contents[1].SelectAttrValue("name", ""))

	sources := parseElement(t, `<sources><content name="audio"/></sources>`)
	contents, err = ContentElements(sources)
	require.NoError(t, err)
	assert.Len(t, contents, 1)

	content := parseElement(t, `<content name="video"/>`)
	contents, err = ContentElements(content)
	require.NoError(t, err)
	assert.Len(t, contents, 1)
}

func TestContentElementsRejectsUnknownRoot(t *testing.T) {
	root := parseElement(t, `<iq type="set"/>`)
	_, err := ContentElements(root)
	assert.ErrorIs(t, err, MalformedDescriptionError)

	_, err = ContentElements(nil)
	assert.ErrorIs(t, err, MalformedDescriptionError)
}

func TestNewJingleElement(t *testing.T) {
	content, _ := newContentElement(Audio)
	el := NewJingleElement("source-add", []*etree.Element{content})

	assert.Equal(t, "jingle", el.Tag)
	assert.Equal(t, jingleNamespace, el.SelectAttrValue("xmlns", ""))
	assert.Equal(t, "source-add", el.SelectAttrValue("action", ""))
	assert.Len(t, el.SelectElements("content"), 1)
}

func TestContentMediaType(t *testing.T) {
	// the description's media attribute wins over the content name
	content := parseElement(t, `
		<content name="video-1">
			<description xmlns="urn:xmpp:jingle:apps:rtp:1" media="video"/>
		</content>`)
	mediaType, err := contentMediaType(content)
	require.NoError(t, err)
	assert.Equal(t, Video, mediaType)

	bare := parseElement(t, `<content name="audio"/>`)
	mediaType, err = contentMediaType(bare)
	require.NoError(t, err)
	assert.Equal(t, Audio, mediaType)

	unknown := parseElement(t, `<content name="data"/>`)
	_, err = contentMediaType(unknown)
	assert.ErrorIs(t, err, UnknownMediaTypeError)
}

func TestParseSsrcAttr(t *testing.T) {
	el := parseElement(t, `<source ssrc="4294967295"/>`)
	ssrc, err := parseSsrcAttr(el)
	require.NoError(t, err)
	assert.Equal(t, uint32(4294967295), ssrc)

	for _, markup := range []string{
		`<source/>`,
		`<source ssrc="-1"/>`,
		`<source ssrc="4294967296"/>`,
		`<source ssrc="abc"/>`,
	} {
		_, err := parseSsrcAttr(parseElement(t, markup))
		assert.ErrorIs(t, err, InvalidSsrcError, markup)
	}
}
