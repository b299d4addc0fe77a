package sourcemap

import (
	"fmt"
	"github.com/beevik/etree"
	"strconv"
	"strings"
)

// Source describes a single media source advertised in a conference,
// identified by its RTP synchronization source. The zero Msid/Cname mean
// the tag is absent. Injected marks a source added administratively by the
// bridge rather than advertised by the client that nominally owns it.
//
// Source is an immutable value: it is comparable, equality covers every
// field, and parsing or derivation always constructs a fresh value.
type Source struct {
	Ssrc      uint32
	MediaType MediaType
	Msid      string
	Cname     string
	Injected  bool
}

// ParseSource reads one <source> element. The media kind is not carried by
// the element itself and must be supplied from the enclosing content. A
// missing or malformed ssrc attribute fails with InvalidSsrcError; all other
// fields default when absent. The ssrc-info owner annotation, if any, is not
// part of the value (the caller is authoritative for ownership).
func ParseSource(mediaType MediaType, el *etree.Element) (Source, error) {
	ssrc, err := parseSsrcAttr(el)
	if err != nil {
		return Source{}, err
	}

	source := Source{Ssrc: ssrc, MediaType: mediaType}

	// Absent or unparseable text both mean "not injected".
	if injected, err := strconv.ParseBool(el.SelectAttrValue(injectedAttrName, "")); err == nil {
		source.Injected = injected
	}

	var msidSeen, cnameSeen bool
	for _, param := range el.SelectElements(parameterElementName) {
		value := param.SelectAttrValue(valueAttrName, "")
		switch param.SelectAttrValue(nameAttrName, "") {
		case msidParameterName:
			if !msidSeen {
				source.Msid = value
				msidSeen = true
			}
		case cnameParameterName:
			if !cnameSeen {
				source.Cname = value
				cnameSeen = true
			}
		}
	}
	return source, nil
}

// ToElement renders the source as a <source> element. Absent optional fields
// are omitted; the injected attribute appears only when set. When owner is
// non-empty an ssrc-info annotation carrying it is attached.
func (s Source) ToElement(owner EndpointId) *etree.Element {
	el := newSourceElement(s.Ssrc)
	if s.Injected {
		el.CreateAttr(injectedAttrName, "true")
	}
	if s.Msid != "" {
		addParameterElement(el, msidParameterName, s.Msid)
	}
	if s.Cname != "" {
		addParameterElement(el, cnameParameterName, s.Cname)
	}
	if owner != "" {
		info := el.CreateElement(ssrcInfoElementName)
		info.CreateAttr("xmlns", ssrcInfoNamespace)
		info.CreateAttr(ownerAttrName, string(owner))
	}
	return el
}

func (s Source) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d", s.MediaType, s.Ssrc)
	if s.Msid != "" {
		fmt.Fprintf(&b, " msid=%s", s.Msid)
	}
	if s.Cname != "" {
		fmt.Fprintf(&b, " cname=%s", s.Cname)
	}
	if s.Injected {
		b.WriteString(" injected")
	}
	return b.String()
}

// compareSources is a total order over every field, used to render sources
// deterministically.
func compareSources(a, b Source) int {
	if a.Ssrc != b.Ssrc {
		if a.Ssrc < b.Ssrc {
			return -1
		}
		return 1
	}
	if a.MediaType != b.MediaType {
		if a.MediaType < b.MediaType {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Msid, b.Msid); c != 0 {
		return c
	}
	if c := strings.Compare(a.Cname, b.Cname); c != 0 {
		return c
	}
	switch {
	case a.Injected == b.Injected:
		return 0
	case b.Injected:
		return -1
	default:
		return 1
	}
}
