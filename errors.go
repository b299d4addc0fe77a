package sourcemap

import (
	"errors"
)

var UnknownMediaTypeError = errors.New("unknown media type")
var MalformedDescriptionError = errors.New("malformed media description")
var UnknownSemanticsError = errors.New("unknown ssrc-group semantics")
var InvalidSsrcError = errors.New("invalid ssrc")
var SsrcAlreadyUsedError = errors.New("ssrc already in use")
var MsidConflictError = errors.New("msid already in use by another endpoint")
var TooManySourcesError = errors.New("too many sources for endpoint")
var TooManySsrcGroupsError = errors.New("too many ssrc groups for endpoint")
var InvalidGroupError = errors.New("invalid ssrc group")
var UnknownSourceError = errors.New("source has not been signaled")
