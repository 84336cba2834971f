package models

import "github.com/goccy/go-json"

// Category is a labeled object class.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
	Extra         Extra  `json:"-"`
}

type categoryAlias Category

// MarshalJSON writes the named fields followed by any preserved keys.
func (c Category) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(categoryAlias(c))
	if err != nil {
		return nil, err
	}
	return AppendExtra(b, c.Extra)
}

// UnmarshalJSON reads the named fields and keeps the rest in Extra.
func (c *Category) UnmarshalJSON(data []byte) error {
	var a categoryAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := SplitExtra(data, "id", "name", "supercategory")
	if err != nil {
		return err
	}
	a.Extra = extra
	*c = Category(a)
	return nil
}

// Clone returns a deep copy.
func (c *Category) Clone() *Category {
	out := *c
	out.Extra = c.Extra.Clone()
	return &out
}
