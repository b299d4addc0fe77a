package sourcemap

import (
	"fmt"
	"github.com/beevik/etree"
	"strconv"
	"strings"
)

type GroupSemantics uint

const (
	// SemanticsSim groups the layers of a simulcast source.
	SemanticsSim GroupSemantics = iota
	// SemanticsFid pairs a source with its retransmission (RTX) stream.
	SemanticsFid
	// SemanticsFec pairs a source with its forward-error-correction stream.
	SemanticsFec
)

func (s GroupSemantics) String() string {
	return [...]string{
		"SIM",
		"FID",
		"FEC",
	}[s]
}

// ParseGroupSemantics matches s against the recognized semantics tokens,
// ignoring case. Unrecognized tokens fail with UnknownSemanticsError.
func ParseGroupSemantics(s string) (GroupSemantics, error) {
	switch strings.ToUpper(s) {
	case "SIM":
		return SemanticsSim, nil
	case "FID":
		return SemanticsFid, nil
	case "FEC":
		return SemanticsFec, nil
	}
	return 0, fmt.Errorf("%w, semantics = %q", UnknownSemanticsError, s)
}

// SsrcGroup ties related ssrcs together under one semantics. Order is
// significant and preserved exactly as signaled: the first entry is the
// primary (e.g. the stream an RTX source repairs), and duplicates are not
// collapsed. The value is media-agnostic; a media kind is attributed only
// during serialization, from the Source values sharing its ssrcs.
type SsrcGroup struct {
	Semantics GroupSemantics
	Ssrcs     []uint32
}

// ParseSsrcGroup reads one <ssrc-group> element, preserving the document
// order of its child sources. An unrecognized semantics token or a bad child
// ssrc aborts the parse of this group.
func ParseSsrcGroup(el *etree.Element) (SsrcGroup, error) {
	semantics, err := ParseGroupSemantics(el.SelectAttrValue(semanticsAttrName, ""))
	if err != nil {
		return SsrcGroup{}, err
	}
	children := sourceElements(el)
	ssrcs := make([]uint32, 0, len(children))
	for _, child := range children {
		ssrc, err := parseSsrcAttr(child)
		if err != nil {
			return SsrcGroup{}, err
		}
		ssrcs = append(ssrcs, ssrc)
	}
	return SsrcGroup{Semantics: semantics, Ssrcs: ssrcs}, nil
}

// ToElement renders the group with one bare <source ssrc=…/> child per ssrc
// in sequence order.
func (g SsrcGroup) ToElement() *etree.Element {
	el := etree.NewElement(ssrcGroupElementName)
	el.CreateAttr("xmlns", ssmaNamespace)
	el.CreateAttr(semanticsAttrName, g.Semantics.String())
	for _, ssrc := range g.Ssrcs {
		child := el.CreateElement(sourceElementName)
		child.CreateAttr(ssrcAttrName, strconv.FormatUint(uint64(ssrc), 10))
	}
	return el
}

func (g SsrcGroup) Equal(other SsrcGroup) bool {
	if g.Semantics != other.Semantics || len(g.Ssrcs) != len(other.Ssrcs) {
		return false
	}
	for i, ssrc := range g.Ssrcs {
		if other.Ssrcs[i] != ssrc {
			return false
		}
	}
	return true
}

func (g SsrcGroup) String() string {
	return g.key()
}

// key is the canonical text form ("FID 1234 5678"), which doubles as the
// group's set-membership identity.
func (g SsrcGroup) key() string {
	var b strings.Builder
	b.WriteString(g.Semantics.String())
	for _, ssrc := range g.Ssrcs {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(ssrc), 10))
	}
	return b.String()
}

// compareGroups orders by semantics, then element-wise by ssrc, then by
// length; like compareSources it exists for deterministic rendering.
func compareGroups(a, b SsrcGroup) int {
	if a.Semantics != b.Semantics {
		if a.Semantics < b.Semantics {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Ssrcs) && i < len(b.Ssrcs); i++ {
		if a.Ssrcs[i] != b.Ssrcs[i] {
			if a.Ssrcs[i] < b.Ssrcs[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a.Ssrcs) == len(b.Ssrcs):
		return 0
	case len(a.Ssrcs) < len(b.Ssrcs):
		return -1
	default:
		return 1
	}
}
