package snapshot

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var emptyDocument = []byte(`{"tiles":[],"table":[]}`)

// Document is the raw JSON value of the funnel dataset. Its content is
// opaque, the bytes are stored and returned exactly as received.
type Document []byte

// EmptyDocument returns {"tiles":[],"table":[]}
func EmptyDocument() Document {
	return append(Document(nil), emptyDocument...)
}

func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *Document) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], b...)
	return nil
}

// IsNull is true for a missing value or a JSON null.
func (d Document) IsNull() bool {
	v := bytes.TrimSpace(d)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

// IsEmpty reports whether the document has neither tiles nor table entries.
// Values that do not look like a funnel dataset at all are not empty.
func (d Document) IsEmpty() bool {
	if d.IsNull() {
		return true
	}
	var v struct {
		Tiles []jsoniter.RawMessage `json:"tiles"`
		Table []jsoniter.RawMessage `json:"table"`
	}
	if err := json.Unmarshal(d, &v); err != nil {
		return false
	}
	return len(v.Tiles) == 0 && len(v.Table) == 0
}
