package reorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mikey-austin/signage/pkg/signage"
)

// MoveToDialog moves one item to an explicit 1-based position.
type MoveToDialog struct {
	ItemID    int64
	Name      string
	PlayOrder int
	Length    int
}

// NewMoveToDialog opens the dialog for item in a list of length items.
func NewMoveToDialog(item signage.PlaylistItem, length int) MoveToDialog {
	return MoveToDialog{ItemID: item.MoveID(), Name: item.Name, PlayOrder: item.PlayOrder, Length: length}
}

// Validate parses the requested position.
func (d MoveToDialog) Validate(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, errors.New("Please enter a valid whole number")
	}
	if n < 1 {
		return 0, errors.New("playOrder must be >= 1")
	}
	if n > d.Length {
		return 0, fmt.Errorf("playOrder must be <= %d", d.Length)
	}
	return n, nil
}

// Body builds the move request for a validated position.
func (d MoveToDialog) Body(playOrder int) signage.MoveItemBody {
	return signage.MoveItemBody{PlaylistFileID: d.ItemID, PlayOrder: playOrder}
}
