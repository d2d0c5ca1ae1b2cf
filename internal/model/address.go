package model

import "time"

type Division struct {
	Code string `gorm:"column:code;size:32" json:"code"`
	Name string `gorm:"column:name;size:128" json:"name"`
}

type Address struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserUID   string    `gorm:"column:user_uid;size:128;index;not null"`
	Label     string    `gorm:"column:label;size:64"`
	FullName  string    `gorm:"column:full_name;size:120;not null"`
	Phone     string    `gorm:"column:phone;size:16;not null"`
	Province  Division  `gorm:"embedded;embeddedPrefix:province_"`
	District  Division  `gorm:"embedded;embeddedPrefix:district_"`
	Ward      Division  `gorm:"embedded;embeddedPrefix:ward_"`
	Street    string    `gorm:"column:street;size:255;not null"`
	Location  GeoPoint  `gorm:"embedded;embeddedPrefix:geo_"`
	IsDefault bool      `gorm:"column:is_default;index;not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Address) TableName() string {
	return "addresses"
}

// AddressSnapshot is copied onto orders and swaps so later edits to the
// address book do not rewrite history.
type AddressSnapshot struct {
	RecipientName string  `gorm:"column:recipient_name;size:120"`
	Phone         string  `gorm:"column:phone;size:16"`
	Province      string  `gorm:"column:province;size:128"`
	District      string  `gorm:"column:district;size:128"`
	Ward          string  `gorm:"column:ward;size:128"`
	Street        string  `gorm:"column:street;size:255"`
	Lng           float64 `gorm:"column:lng"`
	Lat           float64 `gorm:"column:lat"`
}

func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		RecipientName: a.FullName,
		Phone:         a.Phone,
		Province:      a.Province.Name,
		District:      a.District.Name,
		Ward:          a.Ward.Name,
		Street:        a.Street,
		Lng:           a.Location.Lng,
		Lat:           a.Location.Lat,
	}
}
