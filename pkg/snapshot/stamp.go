package snapshot

import (
	"strings"
	"time"
)

// StampLayout is ISO-8601 at second precision with "T" and ":" replaced by "-".
// All fields are zero padded so string order equals chronological order.
const StampLayout = "2006-01-02-15-04-05"

// Stamp is a backup timestamp, a UTC instant truncated to whole seconds.
type Stamp struct {
	t time.Time
}

func NewStamp(t time.Time) Stamp {
	return Stamp{t: t.UTC().Truncate(time.Second)}
}

func ParseStamp(v string) (Stamp, error) {
	t, err := time.ParseInLocation(StampLayout, v, time.UTC)
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{t: t}, nil
}

func (s Stamp) String() string {
	return s.t.Format(StampLayout)
}

// Compare returns -1, 0 or +1 like time.Time.Compare
func (s Stamp) Compare(o Stamp) int {
	return s.t.Compare(o.t)
}

// Backup names one stored backup. Date is the key with the backup prefix removed,
// which is the stamp for every backup this package wrote.
type Backup struct {
	Key   string `json:"key"`
	Date  string `json:"date"`
	stamp Stamp
	valid bool
}

func newBackup(key string) Backup {
	b := Backup{
		Key:  key,
		Date: strings.TrimPrefix(key, BackupPrefix),
	}
	if s, err := ParseStamp(b.Date); err == nil {
		b.stamp, b.valid = s, true
	}
	return b
}

func (b Backup) compare(o Backup) int {
	if b.valid && o.valid {
		if c := b.stamp.Compare(o.stamp); c != 0 {
			return c
		}
	}
	return strings.Compare(b.Date, o.Date)
}
