package deeplink

import "strings"

// DefaultDetailType is the card-detail type used when the link omits one.
const DefaultDetailType = "receivedcard"

const (
	pathInteresting     = "received/interesting"
	pathInterestingFlat = "received-interesting"
	pathNotes           = "card-notes"
	pathNotesDetail     = "card-notes/detail"
	prefixNotes         = "card-notes/"
	prefixCardShare     = "card-share/"
	prefixCardDetail    = "card-detail/"
	queryNoteID         = "noteId"
	queryCardID         = "cardId"
	querySave           = "save"
	queryType           = "type"
)

// Intent is the closed set of navigation intents a deep link can carry.
// Only the types in this package implement it.
type Intent interface {
	isIntent()
}

// Interesting opens the received "interesting" cards screen.
type Interesting struct{}

// Notes opens the card notes list, or a single note when Detail is set.
type Notes struct {
	Detail bool
	NoteID string
	CardID string
}

// CardShare opens a shared card, saving it first when ShouldSave is set.
type CardShare struct {
	CardID     string
	ShouldSave bool
}

// CardDetail opens a card's detail view.
type CardDetail struct {
	CardID string
	Type   string
}

// Unknown is any link that matches no known route.
type Unknown struct {
	Path string
}

func (Interesting) isIntent() {}
func (Notes) isIntent()       {}
func (CardShare) isIntent()   {}
func (CardDetail) isIntent()  {}
func (Unknown) isIntent()     {}

// Classify maps a normalized link to its intent. Prefix families overlap, so
// the checks run from most to least specific.
func Classify(link NormalizedLink) Intent {
	path := link.Path
	switch {
	case path == pathInteresting || path == pathInterestingFlat:
		return Interesting{}

	case path == pathNotes || strings.HasPrefix(path, prefixNotes):
		return Notes{
			Detail: path == pathNotesDetail,
			NoteID: link.Param(queryNoteID),
			CardID: link.Param(queryCardID),
		}

	case strings.HasPrefix(path, prefixCardShare):
		return CardShare{
			CardID:     firstSegment(path, prefixCardShare),
			ShouldSave: link.Param(querySave) == "true",
		}

	case strings.HasPrefix(path, prefixCardDetail):
		detailType := link.Param(queryType)
		if detailType == "" {
			detailType = DefaultDetailType
		}
		return CardDetail{
			CardID: firstSegment(path, prefixCardDetail),
			Type:   detailType,
		}
	}
	return Unknown{Path: path}
}
