package shipping

import (
	"bytes"
	"encoding/json"
)

// Province accepts either a bare name or a {code,name} object on the wire.
type Province struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
}

func (p *Province) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Province{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*p = Province{Name: name}
		return nil
	}
	type raw Province
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*p = Province(r)
	return nil
}

type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

type Origin struct {
	Province string
	Point    *Point
}

type Destination struct {
	Province Province `json:"province"`
	District string   `json:"district,omitempty"`
	Ward     string   `json:"ward,omitempty"`
	Point    *Point   `json:"point,omitempty"`
}

// Listing is the part of a marketplace listing the engine reads.
type Listing struct {
	Config *Config
	Origin Origin
}
