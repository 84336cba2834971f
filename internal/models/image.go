package models

import "github.com/goccy/go-json"

// Image is one picture referenced by the dataset. FileName is either absolute
// or relative to the dataset image directory.
type Image struct {
	ID           int             `json:"id"`
	FileName     string          `json:"file_name"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	License      json.RawMessage `json:"license,omitempty"`
	DateCaptured json.RawMessage `json:"date_captured,omitempty"`
	Extra        Extra           `json:"-"`
}

type imageAlias Image

// MarshalJSON writes the named fields followed by any preserved keys.
func (i Image) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(imageAlias(i))
	if err != nil {
		return nil, err
	}
	return AppendExtra(b, i.Extra)
}

// UnmarshalJSON reads the named fields and keeps the rest in Extra.
func (i *Image) UnmarshalJSON(data []byte) error {
	var a imageAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := SplitExtra(data, "id", "file_name", "width", "height", "license", "date_captured")
	if err != nil {
		return err
	}
	a.Extra = extra
	*i = Image(a)
	return nil
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	out := *i
	out.License = append(json.RawMessage(nil), i.License...)
	out.DateCaptured = append(json.RawMessage(nil), i.DateCaptured...)
	out.Extra = i.Extra.Clone()
	return &out
}
