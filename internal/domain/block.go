package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BlockKind enumerates the supported content block types.
type BlockKind string

const (
	BlockText      BlockKind = "text"
	BlockImage     BlockKind = "image"
	BlockQuote     BlockKind = "quote"
	BlockList      BlockKind = "list"
	BlockSeparator BlockKind = "separator"
)

// Block is one ordered, typed content unit within a campaign. Only the
// settings struct matching Kind is populated; the others stay nil. Unknown
// kinds are preserved through marshalling and render to nothing.
type Block struct {
	ID      string    `json:"id"`
	Kind    BlockKind `json:"type"`
	Content string    `json:"content"`

	Image *ImageSettings `json:"image,omitempty"`
	Quote *QuoteSettings `json:"quote,omitempty"`
	List  *ListSettings  `json:"list,omitempty"`
}

// ImageSettings carries the fields applicable to image blocks.
type ImageSettings struct {
	ImageID string `json:"image_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Path    string `json:"path,omitempty"`
}

// QuoteSettings carries the fields applicable to quote blocks.
type QuoteSettings struct {
	Author string `json:"author,omitempty"`
}

// ListSettings carries the fields applicable to list blocks.
type ListSettings struct {
	Ordered bool `json:"ordered"`
}

// Blocks is an ordered block sequence stored as a JSONB column.
// Order is significant and preserved.
type Blocks []Block

// Value implements driver.Valuer for JSONB storage.
func (b Blocks) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSONB storage.
func (b *Blocks) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("blocks: cannot scan %T", value)
	}
	return json.Unmarshal(data, b)
}
