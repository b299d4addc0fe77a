package sourcemap

import (
	"fmt"
	"github.com/beevik/etree"
	"strconv"
)

// Wire vocabulary for the source-advertisement subtree of a Jingle session
// description, per XEP-0167 and the source-specific media attributes of
// RFC 5576 (XEP-0339), plus the Jitsi owner annotation:
//
//	<content name="{media}">
//	  <description xmlns="urn:xmpp:jingle:apps:rtp:1" media="{media}">
//	    <source xmlns="urn:xmpp:jingle:apps:rtp:ssma:0" ssrc="{u32}">
//	      <parameter name="msid" value="..."/>
//	      <ssrc-info xmlns="http://jitsi.org/jitmeet" owner="..."/>
//	    </source>
//	    <ssrc-group xmlns="urn:xmpp:jingle:apps:rtp:ssma:0" semantics="FID">
//	      <source ssrc="{u32}"/>
//	    </ssrc-group>
//	  </description>
//	</content>
//
// The element tree itself is handled by the etree library; nothing in this
// package touches raw markup.

const (
	jingleElementName      = "jingle"
	contentElementName     = "content"
	descriptionElementName = "description"
	sourceElementName      = "source"
	parameterElementName   = "parameter"
	ssrcInfoElementName    = "ssrc-info"
	ssrcGroupElementName   = "ssrc-group"
	sourcesElementName     = "sources"

	jingleNamespace         = "urn:xmpp:jingle:1"
	rtpDescriptionNamespace = "urn:xmpp:jingle:apps:rtp:1"
	ssmaNamespace           = "urn:xmpp:jingle:apps:rtp:ssma:0"
	ssrcInfoNamespace       = "http://jitsi.org/jitmeet"

	actionAttrName    = "action"
	nameAttrName      = "name"
	mediaAttrName     = "media"
	ssrcAttrName      = "ssrc"
	injectedAttrName  = "injected"
	valueAttrName     = "value"
	ownerAttrName     = "owner"
	semanticsAttrName = "semantics"

	msidParameterName  = "msid"
	cnameParameterName = "cname"
)

func newContentElement(mediaType MediaType) (content, description *etree.Element) {
	content = etree.NewElement(contentElementName)
	content.CreateAttr(nameAttrName, mediaType.String())
	description = content.CreateElement(descriptionElementName)
	description.CreateAttr("xmlns", rtpDescriptionNamespace)
	description.CreateAttr(mediaAttrName, mediaType.String())
	return content, description
}

func newSourceElement(ssrc uint32) *etree.Element {
	el := etree.NewElement(sourceElementName)
	el.CreateAttr("xmlns", ssmaNamespace)
	el.CreateAttr(ssrcAttrName, strconv.FormatUint(uint64(ssrc), 10))
	return el
}

func addParameterElement(parent *etree.Element, name, value string) {
	param := parent.CreateElement(parameterElementName)
	param.CreateAttr(nameAttrName, name)
	param.CreateAttr(valueAttrName, value)
}

func descriptionElement(content *etree.Element) *etree.Element {
	return content.SelectElement(descriptionElementName)
}

// contentMediaType resolves the media kind of a content subtree: the
// description's media attribute when present, the content name otherwise.
func contentMediaType(content *etree.Element) (MediaType, error) {
	media := content.SelectAttrValue(nameAttrName, "")
	if description := descriptionElement(content); description != nil {
		if m := description.SelectAttrValue(mediaAttrName, ""); m != "" {
			media = m
		}
	}
	return ParseMediaType(media)
}

// contentPayload is the element holding source and ssrc-group children:
// normally the description, but bare contents without one are tolerated.
func contentPayload(content *etree.Element) *etree.Element {
	if description := descriptionElement(content); description != nil {
		return description
	}
	return content
}

func sourceElements(parent *etree.Element) []*etree.Element {
	return parent.SelectElements(sourceElementName)
}

func ssrcGroupElements(parent *etree.Element) []*etree.Element {
	return parent.SelectElements(ssrcGroupElementName)
}

func parseSsrcAttr(el *etree.Element) (uint32, error) {
	text := el.SelectAttrValue(ssrcAttrName, "")
	if text == "" {
		return 0, fmt.Errorf("%w, missing ssrc attribute on <%s>", InvalidSsrcError, el.Tag)
	}
	ssrc, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w, ssrc = %q", InvalidSsrcError, text)
	}
	return uint32(ssrc), nil
}

func sourceOwner(el *etree.Element) EndpointId {
	info := el.SelectElement(ssrcInfoElementName)
	if info == nil {
		return ""
	}
	return EndpointId(info.SelectAttrValue(ownerAttrName, ""))
}

// NewJingleElement wraps a list of content elements into a <jingle> element
// carrying the given action, e.g. "source-add".
func NewJingleElement(action string, contents []*etree.Element) *etree.Element {
	el := etree.NewElement(jingleElementName)
	el.CreateAttr("xmlns", jingleNamespace)
	if action != "" {
		el.CreateAttr(actionAttrName, action)
	}
	for _, content := range contents {
		el.AddChild(content)
	}
	return el
}

// ContentElements extracts the content list from a parsed document root.
// Accepted roots: a <jingle> or <sources> wrapper holding contents, or a
// single bare <content>.
func ContentElements(root *etree.Element) ([]*etree.Element, error) {
	if root == nil {
		return nil, fmt.Errorf("%w, empty document", MalformedDescriptionError)
	}
	switch root.Tag {
	case contentElementName:
		return []*etree.Element{root}, nil
	case jingleElementName, sourcesElementName:
		return root.SelectElements(contentElementName), nil
	}
	return nil, fmt.Errorf("%w, unexpected root <%s>", MalformedDescriptionError, root.Tag)
}
