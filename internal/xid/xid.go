package xid

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	idLength = 10
)

// New returns "<prefix>-<yyyymmdd>-<nanoid>". The date part keeps ids sortable
// per day when read off a receipt.
func New(prefix string, at time.Time) string {
	id, err := gonanoid.Generate(alphabet, idLength)
	if err != nil {
		id = fmt.Sprintf("%d", at.UnixNano())
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), id)
}
